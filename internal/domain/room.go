// Package domain contains entity without logic, just meta-data
package domain

type (
	RoomID      string
	CommunityID string
	// ConnID is the transport-assigned identity of one live connection.
	// It is never reused after the transport reports disconnection.
	ConnID string
)

// MaxParticipants caps a room at a one-on-one pair.
const MaxParticipants = 2

// Room pairs up to two connections for signaling exchange.
// CommunityID is immutable for the room's lifetime.
type Room struct {
	ID           RoomID
	CommunityID  CommunityID
	Participants []ConnID
}
