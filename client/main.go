// Interactive line-oriented test client for the ghost server.
//
//	login <pseudonym> | rooms | join <id> | leave
//	say <text> | play <letter> | challenge | p2p <pseudonym> | quit
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/ghostnet/ghostserver/protocol"
)

func send(conn net.Conn, op protocol.OpCode, payload []byte) {
	if _, err := conn.Write(protocol.Encode(op, payload)); err != nil {
		log.Fatalf("write failed: %v", err)
	}
}

func sendData(conn net.Conn, msg protocol.DataMessage) {
	payload, err := protocol.EncodeData(msg)
	if err != nil {
		log.Printf("encode failed: %v", err)
		return
	}
	send(conn, protocol.Data, payload)
}

func readFrame(conn net.Conn) (protocol.OpCode, []byte, error) {
	header := make([]byte, protocol.HeaderSize)
	if _, err := io.ReadFull(conn, header); err != nil {
		return 0, nil, err
	}
	length, err := protocol.DecodeHeader(header)
	if err != nil {
		return 0, nil, err
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(conn, body); err != nil {
		return 0, nil, err
	}
	return protocol.DecodeBody(body)
}

func readLoop(conn net.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		op, payload, err := readFrame(conn)
		if err != nil {
			log.Printf("disconnected: %v", err)
			return
		}

		switch op {
		case protocol.Ping:
			send(conn, protocol.Pong, nil)
		case protocol.RespLogin:
			if len(payload) == 1 && payload[0] == protocol.LoginAccepted {
				log.Println("login accepted")
			} else {
				log.Println("login refused")
			}
		case protocol.RoomList:
			rooms, err := protocol.DecodeRoomList(payload)
			if err != nil {
				log.Printf("bad room list: %v", err)
				continue
			}
			for _, r := range rooms {
				log.Printf("room %d %q (%d/%d)", r.ID, r.Name, r.Players, r.Capacity)
			}
		case protocol.RespRoom:
			members, err := protocol.DecodeRoomMembers(payload)
			if err != nil {
				log.Printf("bad member list: %v", err)
				continue
			}
			log.Printf("joined, members: %s", strings.Join(members, ", "))
		case protocol.Notify:
			kind, pseudonym, err := protocol.DecodeNotify(payload)
			if err != nil {
				continue
			}
			if kind == protocol.NotifyJoin {
				log.Printf("%s joined the room", pseudonym)
			} else {
				log.Printf("%s left the room", pseudonym)
			}
		case protocol.Data:
			printData(payload)
		case protocol.ReqP2PStart:
			log.Printf("p2p request from %s (reply not automated)", string(payload))
		case protocol.RespP2PConnect:
			addr, port, err := protocol.DecodeP2PConnect(payload)
			if err == nil {
				log.Printf("peer reachable at %s:%d", addr, port)
			}
		case protocol.Error:
			log.Printf("server error: %s", string(payload))
		default:
			log.Printf("<- %s (%d bytes)", op, len(payload))
		}
	}
}

func printData(payload []byte) {
	msg, err := protocol.DecodeData(payload)
	if err != nil {
		log.Printf("bad DATA payload: %v", err)
		return
	}
	switch v := msg.(type) {
	case protocol.GameStateData:
		log.Printf("fragment=%q active=%s scores=%v event=%q", v.Fragment, v.ActivePlayer, v.Scores, v.Event)
	case protocol.ChatData:
		log.Printf("[%s] %s", v.Sender, v.Message)
	case protocol.BroadcastData:
		log.Printf("** %s: %s **", v.Sender, v.Message)
	case protocol.GameOverData:
		log.Printf("GAME OVER: %s spelled GHOST", v.Loser)
	}
}

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	log.Printf("connected to %s", *addr)

	done := make(chan struct{})
	go readLoop(conn, done)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-done:
			return
		default:
		}
		if !scanner.Scan() {
			return
		}
		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 2)
		cmd := fields[0]
		arg := ""
		if len(fields) > 1 {
			arg = fields[1]
		}

		switch cmd {
		case "login":
			send(conn, protocol.ReqLogin, []byte(arg))
		case "rooms":
			send(conn, protocol.ReqListRooms, nil)
		case "join":
			id, err := strconv.ParseUint(arg, 10, 32)
			if err != nil {
				fmt.Println("usage: join <room id>")
				continue
			}
			send(conn, protocol.ReqJoin, protocol.EncodeJoinReq(uint32(id)))
		case "leave":
			send(conn, protocol.ReqLeave, nil)
		case "say":
			sendData(conn, protocol.ChatData{Message: arg})
		case "play":
			sendData(conn, protocol.PlayLetterData{Letter: arg})
		case "challenge":
			sendData(conn, protocol.ChallengeData{})
		case "p2p":
			send(conn, protocol.ReqP2PInit, []byte(arg))
		case "quit":
			return
		case "":
		default:
			fmt.Println("commands: login rooms join leave say play challenge p2p quit")
		}
	}
}
