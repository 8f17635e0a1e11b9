// Package protocol implements the length-prefixed binary wire protocol:
// frame encoding, the opcode space, typed payload layouts, and the tagged
// JSON envelope carried by the DATA opcode.
package protocol

// OpCode identifies the meaning of a frame body. Values are part of the wire
// contract and must match the client side.
type OpCode uint8

const (
	ReqLogin       OpCode = 0x01
	RespLogin      OpCode = 0x02
	ReqJoin        OpCode = 0x03
	RespRoom       OpCode = 0x04
	RoomList       OpCode = 0x05
	ReqLeave       OpCode = 0x06
	Notify         OpCode = 0x07
	Data           OpCode = 0x08
	ReqListRooms   OpCode = 0x09
	ReqP2PInit     OpCode = 0x0A
	ReqP2PStart    OpCode = 0x0B
	RespP2PReady   OpCode = 0x0C
	RespP2PConnect OpCode = 0x0D
	Ping           OpCode = 0xFD
	Pong           OpCode = 0xFE
	Error          OpCode = 0xFF
)

var opcodeNames = map[OpCode]string{
	ReqLogin:       "REQ_LOGIN",
	RespLogin:      "RESP_LOGIN",
	ReqJoin:        "REQ_JOIN",
	RespRoom:       "RESP_ROOM",
	RoomList:       "ROOM_LIST",
	ReqLeave:       "REQ_LEAVE",
	Notify:         "NOTIFY",
	Data:           "DATA",
	ReqListRooms:   "REQ_LIST_ROOMS",
	ReqP2PInit:     "REQ_P2P_INIT",
	ReqP2PStart:    "REQ_P2P_START",
	RespP2PReady:   "RESP_P2P_READY",
	RespP2PConnect: "RESP_P2P_CONNECT",
	Ping:           "PING",
	Pong:           "PONG",
	Error:          "ERROR",
}

func (op OpCode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// RESP_LOGIN status byte.
const (
	LoginAccepted = 0x00
	LoginRefused  = 0x01
)

// NOTIFY type byte.
type NotifyType uint8

const (
	NotifyJoin  NotifyType = 0x00
	NotifyLeave NotifyType = 0x01
)
