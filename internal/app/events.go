package app

import (
	"encoding/json"

	"github.com/ankern/pairline/internal/domain"
)

// Event type tags. The names are the wire contract with clients.
const (
	EvtIdentityAssigned  = "identity-assigned"
	EvtError             = "error"
	EvtParticipantJoined = "participant-joined"
	EvtParticipantLeft   = "participant-left"
	EvtJoinRoom          = "join-room"
	EvtLeaveRoom         = "leave-room"
	EvtDirectCallInvite  = "direct-call-invite"
	EvtCallOffer         = "call-offer"
	EvtCallAnswer        = "call-answer"
	EvtIceCandidate      = "ice-candidate"
	EvtPing              = "ping"
	EvtPong              = "pong"
)

// Notification is one outbound event addressed to one connection. The
// transport adapter marshals Event and delivers it best-effort.
type Notification struct {
	To    domain.ConnID
	Event any
}

type IdentityAssigned struct {
	Type string        `json:"type"`
	ID   domain.ConnID `json:"id"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type ParticipantJoined struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connectionId"`
}

type ParticipantLeft struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connectionId"`
}

// DirectCallInvite is the forwarded form of a direct invite: the
// target id is consumed for addressing and stripped from the payload.
type DirectCallInvite struct {
	Type       string          `json:"type"`
	SignalData json.RawMessage `json:"signalData"`
	From       string          `json:"from"`
	Name       string          `json:"name"`
}

type CallOffer struct {
	Type       string          `json:"type"`
	SignalData json.RawMessage `json:"signalData"`
	From       string          `json:"from"`
	Name       string          `json:"name"`
}

type CallAnswer struct {
	Type       string          `json:"type"`
	SignalData json.RawMessage `json:"signalData"`
	To         string          `json:"to"`
}

type IceCandidate struct {
	Type      string          `json:"type"`
	Candidate json.RawMessage `json:"candidate"`
}

type Pong struct {
	Type string `json:"type"`
}
