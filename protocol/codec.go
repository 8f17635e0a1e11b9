package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed length-prefix size in bytes.
const HeaderSize = 4

// DefaultMaxFrameSize caps the body length a receiver will buffer. Anything
// larger is a protocol violation, not a big message.
const DefaultMaxFrameSize = 10 * 1024 * 1024

// ErrFraming reports a malformed or oversize frame. Framing errors are fatal
// for the connection that produced them.
var ErrFraming = errors.New("framing error")

// Encode serializes one frame: 4-byte big-endian length, 1-byte opcode,
// payload verbatim. The length counts the opcode plus the payload.
func Encode(op OpCode, payload []byte) []byte {
	buf := make([]byte, HeaderSize+1+len(payload))
	binary.BigEndian.PutUint32(buf[0:HeaderSize], uint32(1+len(payload)))
	buf[HeaderSize] = byte(op)
	copy(buf[HeaderSize+1:], payload)
	return buf
}

// DecodeHeader extracts the body length from a 4-byte header.
func DecodeHeader(header []byte) (uint32, error) {
	if len(header) != HeaderSize {
		return 0, fmt.Errorf("%w: header must be %d bytes, got %d", ErrFraming, HeaderSize, len(header))
	}
	return binary.BigEndian.Uint32(header), nil
}

// DecodeBody splits a frame body into opcode and payload. The body is the
// `length` bytes that follow the header.
func DecodeBody(body []byte) (OpCode, []byte, error) {
	if len(body) == 0 {
		return 0, nil, fmt.Errorf("%w: empty body", ErrFraming)
	}
	return OpCode(body[0]), body[1:], nil
}
