package game

import (
	"encoding/json"
	"fmt"
)

// Message type for WebSocket communication between client and server.
type MessageType string

const (
	MsgTypeResult MessageType = "result" // Client reports a finished round
	MsgTypeScores MessageType = "scores" // Server sends the scoreboard
	MsgTypePing   MessageType = "ping"   // Server pings client to measure RTT
	MsgTypePong   MessageType = "pong"   // Client responds to ping
	MsgTypeError  MessageType = "error"  // Server sends an error message
)

// WsMessage represents a WebSocket message.
type WsMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewWsMessage creates a new WsMessage with a marshaled payload.
func NewWsMessage(msgType MessageType, payload interface{}) (WsMessage, error) {
	if payload == nil {
		return WsMessage{Type: msgType}, nil
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return WsMessage{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return WsMessage{
		Type:    msgType,
		Payload: payloadBytes,
	}, nil
}

// Parse unmarshals the message payload into one of the message types (ResultMessage, ScoresMessage, etc.)
func (m *WsMessage) Parse() (any, error) {
	var target any
	switch m.Type {
	case MsgTypeResult:
		target = &ResultMessage{}
	case MsgTypeScores:
		target = &ScoresMessage{}
	case MsgTypePing:
		target = &PingMessage{}
	case MsgTypePong:
		target = &PongMessage{}
	case MsgTypeError:
		target = &ErrorMessage{}
	default:
		return nil, fmt.Errorf("unknown message type: %s", m.Type)
	}

	if len(m.Payload) == 0 {
		return target, nil
	}

	err := json.Unmarshal(m.Payload, target)
	return target, err
}

// ResultMessage is the payload for MsgTypeResult
type ResultMessage struct {
	Result Result `json:"result"`
}

// Scoreboard aggregates the results of all reported rounds.
type Scoreboard struct {
	Wins        int      `json:"wins"`
	Losses      int      `json:"losses"`
	BestSeconds int      `json:"best_seconds"` // Fastest win, 0 if there are no wins
	BestMoves   int      `json:"best_moves"`   // Fewest moves in a win, 0 if there are no wins
	Recent      []Result `json:"recent"`       // Most recent rounds first
}

// ScoresMessage is the payload for MsgTypeScores
type ScoresMessage struct {
	Scoreboard Scoreboard `json:"scoreboard"`
}

// PingMessage is the payload for MsgTypePing
type PingMessage struct {
	ServerTime int64 `json:"server_time"` // Nanoseconds since Unix epoch
}

// PongMessage is the payload for MsgTypePong
type PongMessage struct {
	ServerTime int64 `json:"server_time"` // Same value from Ping
	ClientTime int64 `json:"client_time"` // Client's own timestamp
}

// ErrorMessage is the payload for MsgTypeError
type ErrorMessage struct {
	Message string `json:"message"`
}
