package models

import (
	"time"

	"github.com/google/uuid"
)

// Trade request statuses. Completed is stored but no transition reaches it
// yet; a meetup confirmation step would set it.
const (
	TradeStatusPending   = "pending"
	TradeStatusAccepted  = "accepted"
	TradeStatusDeclined  = "declined"
	TradeStatusCompleted = "completed"
)

// TradeRequest represents a proposal to swap one item for another
type TradeRequest struct {
	ID              uuid.UUID `json:"id"`
	RequesterID     uuid.UUID `json:"requester_id"`
	RequesterItemID uuid.UUID `json:"requester_item_id"`
	TargetID        uuid.UUID `json:"target_id"`
	TargetItemID    uuid.UUID `json:"target_item_id"`
	Status          string    `json:"status"`
	Note            string    `json:"note,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Annotations for API responses
	RequesterItem  *Item      `json:"requester_item,omitempty"`
	TargetItem     *Item      `json:"target_item,omitempty"`
	Requester      *User      `json:"requester,omitempty"`
	Target         *User      `json:"target,omitempty"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
}

// TradeActive reports whether a request in the given status still occupies
// its (requester, target item) slot.
func TradeActive(status string) bool {
	return status == TradeStatusPending || status == TradeStatusAccepted
}
