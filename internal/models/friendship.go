package models

import (
	"time"

	"github.com/google/uuid"
)

// Friendship statuses.
const (
	FriendshipStatusPending  = "pending"
	FriendshipStatusAccepted = "accepted"
	FriendshipStatusDeclined = "declined"
	FriendshipStatusBlocked  = "blocked"
)

// Friendship represents a social connection request between two users
type Friendship struct {
	ID          uuid.UUID  `json:"id"`
	RequesterID uuid.UUID  `json:"requester_id"`
	AddresseeID uuid.UUID  `json:"addressee_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	// Annotations for API responses
	Requester *User `json:"requester,omitempty"`
	Addressee *User `json:"addressee,omitempty"`
}

// FriendshipConnects reports whether a friendship in the given status still
// ties the pair together. Declined rows do not block a fresh request.
func FriendshipConnects(status string) bool {
	return status != FriendshipStatusDeclined
}
