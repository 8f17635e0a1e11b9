package protocol

import (
	"encoding/binary"
	"fmt"
)

// RoomInfo is one entry of a ROOM_LIST payload.
type RoomInfo struct {
	ID       uint32
	Name     string
	Players  uint8
	Capacity uint8
}

// EncodeJoinReq builds a REQ_JOIN payload: 4-byte big-endian room id.
func EncodeJoinReq(roomID uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, roomID)
	return buf
}

func DecodeJoinReq(payload []byte) (uint32, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("%w: REQ_JOIN payload must be 4 bytes, got %d", ErrFraming, len(payload))
	}
	return binary.BigEndian.Uint32(payload), nil
}

// EncodeRoomMembers builds a RESP_ROOM payload: 1-byte member count followed
// by length-prefixed UTF-8 pseudonyms.
func EncodeRoomMembers(pseudonyms []string) ([]byte, error) {
	if len(pseudonyms) > 255 {
		return nil, fmt.Errorf("%w: too many members (%d)", ErrFraming, len(pseudonyms))
	}
	buf := []byte{byte(len(pseudonyms))}
	for _, p := range pseudonyms {
		raw := []byte(p)
		if len(raw) > 255 {
			return nil, fmt.Errorf("%w: pseudonym too long", ErrFraming)
		}
		buf = append(buf, byte(len(raw)))
		buf = append(buf, raw...)
	}
	return buf, nil
}

func DecodeRoomMembers(payload []byte) ([]string, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("%w: RESP_ROOM payload too short", ErrFraming)
	}
	count := int(payload[0])
	members := make([]string, 0, count)
	rest := payload[1:]
	for i := 0; i < count; i++ {
		if len(rest) < 1 {
			return nil, fmt.Errorf("%w: truncated RESP_ROOM entry %d", ErrFraming, i)
		}
		n := int(rest[0])
		if len(rest) < 1+n {
			return nil, fmt.Errorf("%w: truncated RESP_ROOM entry %d", ErrFraming, i)
		}
		members = append(members, string(rest[1:1+n]))
		rest = rest[1+n:]
	}
	return members, nil
}

// EncodeRoomList builds a ROOM_LIST payload: 4-byte count, then per room
// (4-byte id, 1-byte name length, name, 1-byte players, 1-byte capacity).
func EncodeRoomList(rooms []RoomInfo) ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(rooms)))
	for _, r := range rooms {
		name := []byte(r.Name)
		if len(name) > 255 {
			return nil, fmt.Errorf("%w: room name too long", ErrFraming)
		}
		entry := make([]byte, 4)
		binary.BigEndian.PutUint32(entry, r.ID)
		entry = append(entry, byte(len(name)))
		entry = append(entry, name...)
		entry = append(entry, r.Players, r.Capacity)
		buf = append(buf, entry...)
	}
	return buf, nil
}

func DecodeRoomList(payload []byte) ([]RoomInfo, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: ROOM_LIST payload too short", ErrFraming)
	}
	count := binary.BigEndian.Uint32(payload[:4])
	rest := payload[4:]
	rooms := make([]RoomInfo, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(rest) < 5 {
			return nil, fmt.Errorf("%w: truncated ROOM_LIST entry %d", ErrFraming, i)
		}
		id := binary.BigEndian.Uint32(rest[:4])
		nameLen := int(rest[4])
		if len(rest) < 5+nameLen+2 {
			return nil, fmt.Errorf("%w: truncated ROOM_LIST entry %d", ErrFraming, i)
		}
		rooms = append(rooms, RoomInfo{
			ID:       id,
			Name:     string(rest[5 : 5+nameLen]),
			Players:  rest[5+nameLen],
			Capacity: rest[5+nameLen+1],
		})
		rest = rest[5+nameLen+2:]
	}
	return rooms, nil
}

// EncodeNotify builds a NOTIFY payload: 1-byte type plus UTF-8 pseudonym.
func EncodeNotify(kind NotifyType, pseudonym string) []byte {
	return append([]byte{byte(kind)}, pseudonym...)
}

func DecodeNotify(payload []byte) (NotifyType, string, error) {
	if len(payload) < 1 {
		return 0, "", fmt.Errorf("%w: NOTIFY payload too short", ErrFraming)
	}
	return NotifyType(payload[0]), string(payload[1:]), nil
}

// EncodeP2PReady builds a RESP_P2P_READY payload: length-prefixed requester
// pseudonym plus 4-byte big-endian listen port.
func EncodeP2PReady(requester string, port uint32) ([]byte, error) {
	raw := []byte(requester)
	if len(raw) > 255 {
		return nil, fmt.Errorf("%w: pseudonym too long", ErrFraming)
	}
	buf := append([]byte{byte(len(raw))}, raw...)
	portBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(portBytes, port)
	return append(buf, portBytes...), nil
}

func DecodeP2PReady(payload []byte) (requester string, port uint32, err error) {
	if len(payload) < 1 {
		return "", 0, fmt.Errorf("%w: RESP_P2P_READY payload too short", ErrFraming)
	}
	n := int(payload[0])
	if len(payload) != 1+n+4 {
		return "", 0, fmt.Errorf("%w: RESP_P2P_READY payload malformed", ErrFraming)
	}
	return string(payload[1 : 1+n]), binary.BigEndian.Uint32(payload[1+n:]), nil
}

// EncodeP2PConnect builds a RESP_P2P_CONNECT payload: length-prefixed IP
// address string plus 4-byte big-endian port.
func EncodeP2PConnect(address string, port uint32) ([]byte, error) {
	raw := []byte(address)
	if len(raw) > 255 {
		return nil, fmt.Errorf("%w: address too long", ErrFraming)
	}
	buf := append([]byte{byte(len(raw))}, raw...)
	portBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(portBytes, port)
	return append(buf, portBytes...), nil
}

func DecodeP2PConnect(payload []byte) (address string, port uint32, err error) {
	if len(payload) < 1 {
		return "", 0, fmt.Errorf("%w: RESP_P2P_CONNECT payload too short", ErrFraming)
	}
	n := int(payload[0])
	if len(payload) != 1+n+4 {
		return "", 0, fmt.Errorf("%w: RESP_P2P_CONNECT payload malformed", ErrFraming)
	}
	return string(payload[1 : 1+n]), binary.BigEndian.Uint32(payload[1+n:]), nil
}
