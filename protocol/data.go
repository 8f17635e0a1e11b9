package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DATA payload type discriminators.
const (
	DataGameState  = "GAME_STATE"
	DataChat       = "CHAT"
	DataBroadcast  = "BROADCAST"
	DataGameOver   = "GAME_OVER"
	DataPlayLetter = "PLAY_LETTER"
	DataChallenge  = "CHALLENGE"
)

// WaitingForPlayers is the active_player sentinel sent while a room has
// fewer than two members.
const WaitingForPlayers = "waiting"

// ErrUnknownDataType reports a DATA envelope whose type discriminator is not
// part of the protocol. Unknown types are rejected, never silently relayed.
var ErrUnknownDataType = errors.New("unknown DATA message type")

// DataMessage is the closed set of payloads the DATA opcode can carry.
type DataMessage interface {
	dataType() string
}

// GameStateData is a full snapshot of a room's game, broadcast after every
// membership or turn change.
type GameStateData struct {
	Type         string            `json:"type"`
	Fragment     string            `json:"frag"`
	Scores       map[string]string `json:"scores"`
	ActivePlayer string            `json:"active_player"`
	Event        string            `json:"event,omitempty"`
}

// ChatData is a room-scoped chat line, relayed verbatim.
type ChatData struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// BroadcastData is an administrative message fanned out to every
// authenticated session.
type BroadcastData struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// GameOverData names the eliminated player.
type GameOverData struct {
	Type  string `json:"type"`
	Loser string `json:"loser"`
}

// PlayLetterData is the client move: append one letter to the fragment.
type PlayLetterData struct {
	Type   string `json:"type"`
	Letter string `json:"letter"`
}

// ChallengeData is the client move contesting the previous player's letter.
type ChallengeData struct {
	Type string `json:"type"`
}

func (GameStateData) dataType() string  { return DataGameState }
func (ChatData) dataType() string       { return DataChat }
func (BroadcastData) dataType() string  { return DataBroadcast }
func (GameOverData) dataType() string   { return DataGameOver }
func (PlayLetterData) dataType() string { return DataPlayLetter }
func (ChallengeData) dataType() string  { return DataChallenge }

// EncodeData marshals a DATA payload, stamping its type discriminator so
// callers cannot send a mislabeled variant.
func EncodeData(msg DataMessage) ([]byte, error) {
	switch v := msg.(type) {
	case GameStateData:
		v.Type = DataGameState
		return json.Marshal(v)
	case ChatData:
		v.Type = DataChat
		return json.Marshal(v)
	case BroadcastData:
		v.Type = DataBroadcast
		return json.Marshal(v)
	case GameOverData:
		v.Type = DataGameOver
		return json.Marshal(v)
	case PlayLetterData:
		v.Type = DataPlayLetter
		return json.Marshal(v)
	case ChallengeData:
		v.Type = DataChallenge
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownDataType, msg)
	}
}

// DecodeData parses a DATA payload into its concrete variant.
func DecodeData(payload []byte) (DataMessage, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("malformed DATA envelope: %w", err)
	}

	var (
		msg DataMessage
		err error
	)
	switch env.Type {
	case DataGameState:
		var v GameStateData
		err = json.Unmarshal(payload, &v)
		msg = v
	case DataChat:
		var v ChatData
		err = json.Unmarshal(payload, &v)
		msg = v
	case DataBroadcast:
		var v BroadcastData
		err = json.Unmarshal(payload, &v)
		msg = v
	case DataGameOver:
		var v GameOverData
		err = json.Unmarshal(payload, &v)
		msg = v
	case DataPlayLetter:
		var v PlayLetterData
		err = json.Unmarshal(payload, &v)
		msg = v
	case DataChallenge:
		var v ChallengeData
		err = json.Unmarshal(payload, &v)
		msg = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataType, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
	}
	return msg, nil
}
