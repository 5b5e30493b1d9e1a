// Package app holds the connection-lifecycle handler: it binds
// inbound connection events to registry operations and produces the
// outbound notifications the transport should deliver.
package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/ankern/pairline/internal/core"
	"github.com/ankern/pairline/internal/domain"
)

// Handler turns one inbound event into registry mutations plus a list
// of notifications. It never touches the transport, so tests assert
// on the returned list instead of socket writes.
type Handler struct {
	Registry *core.Registry
}

func NewHandler(reg *core.Registry) *Handler {
	return &Handler{Registry: reg}
}

// OnConnect echoes the transport-assigned identity back so the client
// can use it for direct-addressed signaling.
func (h *Handler) OnConnect(cid domain.ConnID) []Notification {
	log.Info().Str("module", "app.handler").Str("conn", string(cid)).Msg("connected")
	return []Notification{{To: cid, Event: IdentityAssigned{Type: EvtIdentityAssigned, ID: cid}}}
}

// OnJoin admits the connection into the room. Registry failures go
// back to the requester only; nothing else changes. On success the
// prior occupant learns about the newcomer, and anyone left behind in
// an implicitly abandoned room gets a participant-left.
func (h *Handler) OnJoin(cid domain.ConnID, roomID domain.RoomID) []Notification {
	res, err := h.Registry.Join(roomID, cid)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.handler").Str("conn", string(cid)).Str("room", string(roomID)).Msg("join rejected")
		return []Notification{{To: cid, Event: ErrorEvent{Type: EvtError, Error: err.Error()}}}
	}

	var notes []Notification
	for _, ev := range res.Evicted {
		notes = append(notes, departureNotes(ev.Remaining, cid)...)
	}
	for _, other := range res.Others {
		notes = append(notes, Notification{To: other, Event: ParticipantJoined{Type: EvtParticipantJoined, ConnectionID: cid}})
	}
	return notes
}

// OnLeave removes the connection from the room; a missing room or
// membership is best-effort cleanup, not an error.
func (h *Handler) OnLeave(cid domain.ConnID, roomID domain.RoomID) []Notification {
	res := h.Registry.Leave(roomID, cid)
	if !res.Removed {
		return nil
	}
	return departureNotes(res.Remaining, cid)
}

// OnDirectInvite forwards the invite to the target connection without
// any room-membership check. This is the out-of-band "ring" used
// before a room is joined; bypassing room scoping here is deliberate.
func (h *Handler) OnDirectInvite(cid domain.ConnID, target domain.ConnID, signal json.RawMessage, from, name string) []Notification {
	log.Debug().Str("module", "app.handler").Str("conn", string(cid)).Str("target", string(target)).Msg("direct invite")
	return []Notification{{To: target, Event: DirectCallInvite{
		Type:       EvtDirectCallInvite,
		SignalData: signal,
		From:       from,
		Name:       name,
	}}}
}

// OnOffer relays a call offer to the other room members. The payload
// is opaque and forwarded verbatim.
func (h *Handler) OnOffer(cid domain.ConnID, roomID domain.RoomID, signal json.RawMessage, from, name string) []Notification {
	return h.fanOut(roomID, cid, CallOffer{
		Type:       EvtCallOffer,
		SignalData: signal,
		From:       from,
		Name:       name,
	})
}

// OnAnswer relays a call answer to the other room members.
func (h *Handler) OnAnswer(cid domain.ConnID, roomID domain.RoomID, signal json.RawMessage, to string) []Notification {
	return h.fanOut(roomID, cid, CallAnswer{
		Type:       EvtCallAnswer,
		SignalData: signal,
		To:         to,
	})
}

// OnCandidate relays an ICE candidate to the other room members.
func (h *Handler) OnCandidate(cid domain.ConnID, roomID domain.RoomID, candidate json.RawMessage) []Notification {
	return h.fanOut(roomID, cid, IceCandidate{
		Type:      EvtIceCandidate,
		Candidate: candidate,
	})
}

// OnPing answers the keepalive probe.
func (h *Handler) OnPing(cid domain.ConnID) []Notification {
	return []Notification{{To: cid, Event: Pong{Type: EvtPong}}}
}

// OnDisconnect strips the connection from every room it is in and
// tells any remaining co-participant. Safe to run twice: the second
// pass finds nothing.
func (h *Handler) OnDisconnect(cid domain.ConnID) []Notification {
	var notes []Notification
	for _, ev := range h.Registry.RemoveEverywhere(cid) {
		notes = append(notes, departureNotes(ev.Remaining, cid)...)
	}
	log.Info().Str("module", "app.handler").Str("conn", string(cid)).Msg("disconnected")
	return notes
}

// fanOut addresses an event to every room member except the sender.
// An unknown room or an empty recipient set delivers to nobody, which
// is fine for a best-effort relay.
func (h *Handler) fanOut(roomID domain.RoomID, from domain.ConnID, event any) []Notification {
	room, ok := h.Registry.GetRoom(roomID)
	if !ok {
		return nil
	}
	var notes []Notification
	for _, p := range room.Participants {
		if p == from {
			continue
		}
		notes = append(notes, Notification{To: p, Event: event})
	}
	return notes
}

func departureNotes(remaining []domain.ConnID, cid domain.ConnID) []Notification {
	notes := make([]Notification, 0, len(remaining))
	for _, other := range remaining {
		notes = append(notes, Notification{To: other, Event: ParticipantLeft{Type: EvtParticipantLeft, ConnectionID: cid}})
	}
	return notes
}
