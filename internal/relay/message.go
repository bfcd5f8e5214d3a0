package relay

import (
	"encoding/json"
	"errors"
)

type MessageType string

const (
	// Client-originated signaling payloads, relayed verbatim.
	MessageTypeOffer        MessageType = "offer"
	MessageTypeAnswer       MessageType = "answer"
	MessageTypeICECandidate MessageType = "ice-candidate"

	// Server-originated presence and lifecycle events.
	MessageTypePeerJoined    MessageType = "peer-joined"
	MessageTypePeerLeft      MessageType = "peer-left"
	MessageTypeServerClosing MessageType = "server-closing"
)

// Close codes sent to peers, distinguishing why the server ended the
// connection. The 4xxx range is reserved for application use.
const (
	CloseAuthFailure       = 4001
	CloseProtocolViolation = 4002
	CloseServerShutdown    = 4003
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrNotInRoom      = errors.New("not in a room")
)

// Envelope is the post-handshake wire format. Payload is opaque to the
// relay: an SDP blob or ICE candidate descriptor, never inspected.
type Envelope struct {
	Type     MessageType     `json:"type"`
	Identity string          `json:"identity,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

func (e *Envelope) relayable() bool {
	switch e.Type {
	case MessageTypeOffer, MessageTypeAnswer, MessageTypeICECandidate:
		return true
	default:
		return false
	}
}
