package server

import (
	"encoding/json"

	"github.com/wI2L/jsondiff"

	"github.com/alimasry/go-collab-blocks/wire"
)

// Message types exchanged over WebSocket.
const (
	MsgJoin  = "join"
	MsgLeave = "leave"
	MsgOp    = "op"
	MsgAck   = "ack"
	MsgDoc   = "doc"
	MsgPatch = "patch"
	MsgError = "error"
)

// Client modes. CRDT clients run their own replica and exchange
// envelopes; patch clients only render and receive JSON patches of the
// blocks that changed.
const (
	ModeCRDT  = "crdt"
	ModePatch = "patch"
)

// ClientMessage is a message from client to server.
type ClientMessage struct {
	Type  string         `json:"type"`
	DocID string         `json:"docId,omitempty"`
	Mode  string         `json:"mode,omitempty"`
	Seq   int            `json:"seq,omitempty"`
	Op    *wire.Envelope `json:"op,omitempty"`
}

// ServerMessage is a message from server to client.
type ServerMessage struct {
	Type     string          `json:"type"`
	DocID    string          `json:"docId,omitempty"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
	Revision int             `json:"revision"`
	Seq      int             `json:"seq,omitempty"`
	Stale    bool            `json:"stale,omitempty"`
	Op       *wire.Envelope  `json:"op,omitempty"`
	BlockID  string          `json:"blockId,omitempty"`
	Patch    jsondiff.Patch  `json:"patch,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Name     string          `json:"name,omitempty"`
	Color    string          `json:"color,omitempty"`
	Message  string          `json:"message,omitempty"`
	Clients  []ClientInfo    `json:"clients,omitempty"`
}

// ClientInfo describes a connected user.
type ClientInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Mode  string `json:"mode"`
}

// Encode serializes a ServerMessage to JSON bytes.
func (m ServerMessage) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}
