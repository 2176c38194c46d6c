package ws

import (
	"encoding/json"

	"github.com/partypad/backend/internal/lobby"
)

type MessageType string

const (
	// client -> server
	MsgCreateSession   MessageType = "create-session"
	MsgJoinSessionRoom MessageType = "join-session-room"
	MsgJoinSession     MessageType = "join-session"
	MsgInput           MessageType = "input"
	MsgTargetReady     MessageType = "target-ready"
	MsgEndSession      MessageType = "end-session"

	// server -> client
	MsgSessionCreated MessageType = "session-created"
	MsgJoinAccepted   MessageType = "join-accepted"
	MsgJoinRejected   MessageType = "join-rejected"
	MsgRosterChanged  MessageType = "roster-changed"
	MsgRelayEvent     MessageType = "relay-event"
	MsgSessionEnded   MessageType = "session-ended"
	MsgError          MessageType = "error"
)

// Message is an inbound frame; the payload is decoded per message type.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Envelope is an outbound frame.
type Envelope struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type JoinRequest struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
}

type RoomRequest struct {
	Code string `json:"code"`
}

type InputRequest struct {
	Code   string       `json:"code"`
	Type   string       `json:"type,omitempty"`
	Action lobby.Action `json:"action"`
}

type ErrorPayload struct {
	Reason string `json:"reason"`
}

type SessionEndedPayload struct {
	Code string `json:"code"`
}
