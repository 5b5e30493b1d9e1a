// Package core owns the in-memory room/community registry. All
// membership invariants live here: room capacity, community↔room
// consistency, delete-on-empty.
package core

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ankern/pairline/internal/domain"
)

// RoomInfo is a read-only listing view (no participant identities).
type RoomInfo struct {
	ID           domain.RoomID `json:"id"`
	Participants int           `json:"participants"`
}

// LeaveResult reports what a Leave actually did. Removed is false when
// the room or the membership did not exist (best-effort cleanup, not
// an error).
type LeaveResult struct {
	Removed     bool
	RoomDeleted bool
	CommunityID domain.CommunityID
	Remaining   []domain.ConnID
}

// Eviction reports one room touched by RemoveEverywhere.
type Eviction struct {
	RoomID      domain.RoomID
	CommunityID domain.CommunityID
	RoomDeleted bool
	Remaining   []domain.ConnID
}

// Registry is the single shared mutable resource of the relay. Every
// method executes atomically under one mutex so the capacity
// check-then-append sequence can never interleave with another writer.
type Registry struct {
	mu          sync.Mutex
	rooms       map[domain.RoomID]*domain.Room
	communities map[domain.CommunityID][]domain.RoomID
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[domain.RoomID]*domain.Room),
		communities: make(map[domain.CommunityID][]domain.RoomID),
	}
}

// CreateRoom inserts an empty room owned by the community, creating
// the community entry on first use. A colliding generated id is
// regenerated, never clobbered.
func (r *Registry) CreateRoom(cid domain.CommunityID) domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := domain.RoomID(NewRoomID())
	for {
		if _, taken := r.rooms[id]; !taken {
			break
		}
		log.Warn().Str("module", "core.registry").Str("room", string(id)).Msg("room id collision, regenerating")
		id = domain.RoomID(NewRoomID())
	}

	r.rooms[id] = &domain.Room{ID: id, CommunityID: cid}
	r.communities[cid] = append(r.communities[cid], id)
	log.Info().Str("module", "core.registry").Str("room", string(id)).Str("community", string(cid)).Msg("room created")
	return id
}

// ListRooms returns the community's rooms in creation order. An
// unknown community yields an empty slice. A community entry pointing
// at a missing room record is a defect; it is logged, healed by
// dropping the entry, and never listed.
func (r *Registry) ListRooms(cid domain.CommunityID) []RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.communities[cid]
	out := make([]RoomInfo, 0, len(ids))
	kept := ids[:0]
	for _, id := range ids {
		room, ok := r.rooms[id]
		if !ok {
			log.Error().Str("module", "core.registry").Str("room", string(id)).Str("community", string(cid)).Msg("dangling room id in community, dropping")
			continue
		}
		kept = append(kept, id)
		out = append(out, RoomInfo{ID: id, Participants: len(room.Participants)})
	}
	if len(kept) != len(ids) {
		r.communities[cid] = kept
	}
	return out
}

// GetRoom returns a snapshot copy of the room.
func (r *Registry) GetRoom(id domain.RoomID) (domain.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return domain.Room{}, false
	}
	snap := *room
	snap.Participants = append([]domain.ConnID(nil), room.Participants...)
	return snap, true
}

// JoinResult reports a successful join: the occupants present before
// the join, and any room the connection was implicitly evicted from
// (a connection sits in at most one room at a time).
type JoinResult struct {
	Others  []domain.ConnID
	Evicted []Eviction
}

// Join appends the connection to the room. Fails with
// domain.ErrRoomNotFound or domain.ErrRoomFull; a failed join mutates
// nothing. Rejoining the current room is a no-op success. If the
// connection was in another room, it leaves it in the same critical
// section, so no interleaved operation can observe it in two rooms.
func (r *Registry) Join(id domain.RoomID, conn domain.ConnID) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return JoinResult{}, domain.ErrRoomNotFound
	}
	for _, p := range room.Participants {
		if p == conn {
			others := make([]domain.ConnID, 0, len(room.Participants)-1)
			for _, q := range room.Participants {
				if q != conn {
					others = append(others, q)
				}
			}
			return JoinResult{Others: others}, nil
		}
	}
	if len(room.Participants) >= domain.MaxParticipants {
		return JoinResult{}, domain.ErrRoomFull
	}

	evicted := r.removeEverywhereLocked(conn)
	others := append([]domain.ConnID(nil), room.Participants...)
	room.Participants = append(room.Participants, conn)
	log.Info().Str("module", "core.registry").Str("room", string(id)).Str("conn", string(conn)).Msg("joined room")
	return JoinResult{Others: others, Evicted: evicted}, nil
}

// Leave removes the connection from the room if present. Absent room
// or membership is a no-op. Emptying the room deletes it from both the
// room table and its community's set in the same critical section.
func (r *Registry) Leave(id domain.RoomID, conn domain.ConnID) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id, conn)
}

// RemoveEverywhere strips the connection from every room it appears in
// (expected at most one, but correct regardless) and deletes any room
// that becomes empty. Idempotent: a second call for the same identity
// finds nothing.
func (r *Registry) RemoveEverywhere(conn domain.ConnID) []Eviction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeEverywhereLocked(conn)
}

func (r *Registry) removeEverywhereLocked(conn domain.ConnID) []Eviction {
	var touched []domain.RoomID
	for id, room := range r.rooms {
		for _, p := range room.Participants {
			if p == conn {
				touched = append(touched, id)
				break
			}
		}
	}
	sort.Slice(touched, func(i, j int) bool { return touched[i] < touched[j] })

	out := make([]Eviction, 0, len(touched))
	for _, id := range touched {
		res := r.removeLocked(id, conn)
		out = append(out, Eviction{
			RoomID:      id,
			CommunityID: res.CommunityID,
			RoomDeleted: res.RoomDeleted,
			Remaining:   res.Remaining,
		})
	}
	return out
}

func (r *Registry) removeLocked(id domain.RoomID, conn domain.ConnID) LeaveResult {
	room, ok := r.rooms[id]
	if !ok {
		return LeaveResult{}
	}

	removed := false
	var kept []domain.ConnID
	for _, p := range room.Participants {
		if p == conn {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if !removed {
		return LeaveResult{CommunityID: room.CommunityID}
	}
	room.Participants = kept

	res := LeaveResult{
		Removed:     true,
		CommunityID: room.CommunityID,
		Remaining:   append([]domain.ConnID(nil), kept...),
	}
	log.Info().Str("module", "core.registry").Str("room", string(id)).Str("conn", string(conn)).Msg("left room")

	if len(kept) == 0 {
		// Capture the owner before dropping the record; the community
		// set update needs it.
		owner := room.CommunityID
		delete(r.rooms, id)
		r.dropFromCommunity(owner, id)
		res.RoomDeleted = true
		log.Info().Str("module", "core.registry").Str("room", string(id)).Str("community", string(owner)).Msg("room deleted")
	}
	return res
}

func (r *Registry) dropFromCommunity(cid domain.CommunityID, id domain.RoomID) {
	ids := r.communities[cid]
	kept := ids[:0]
	for _, rid := range ids {
		if rid != id {
			kept = append(kept, rid)
		}
	}
	if len(kept) == 0 {
		delete(r.communities, cid)
		return
	}
	r.communities[cid] = kept
}
