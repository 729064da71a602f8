package transport

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pongd/pongd/internal/game"
)

// Inbound message types.
const (
	inMoveUp    = "move_up"
	inMoveDown  = "move_down"
	inStop      = "stop"
	inForfeit   = "forfeit"
	inGameInput = "game_input"
	inJoinPvP   = "join_pvp_game"
)

// Outbound frame types beyond the snapshot frames of package session.
const (
	outJoined = "pvp_joined"
	outError  = "error"
)

type wsIn struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsInGameInput struct {
	PlayerID string `json:"playerId"`
	Type     string `json:"type"`
	Token    string `json:"token"`
}

type wsInJoin struct {
	Username string `json:"username"`
}

type wsOut struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type wsOutJoined struct {
	MatchID  string `json:"matchId"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

// controlInput maps a control message type to a simulation input.
func controlInput(t string) (game.Input, bool) {
	switch t {
	case inMoveUp:
		return game.MoveUp, true
	case inMoveDown:
		return game.MoveDown, true
	case inStop:
		return game.Stop, true
	case inForfeit:
		return game.Forfeit, true
	}
	return "", false
}

// codec encodes outbound frames for one connection.
type codec interface {
	name() string
	encode(v interface{}) ([]byte, error)
	frameType() int
}

func codecFor(name string) (codec, error) {
	switch name {
	case "", "json":
		return jsonCodec{}, nil
	case "msgpack":
		return msgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", name)
}

type jsonCodec struct{}

func (jsonCodec) name() string { return "json" }

func (jsonCodec) encode(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) frameType() int { return websocket.TextMessage }

// msgpackCodec reuses the json field names so both encodings carry the
// same keys.
type msgpackCodec struct{}

func (msgpackCodec) name() string { return "msgpack" }

func (msgpackCodec) encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) frameType() int { return websocket.BinaryMessage }
