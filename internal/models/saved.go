package models

import (
	"time"

	"github.com/google/uuid"
)

// SavedItem represents a bookmarked item
type SavedItem struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ItemID    uuid.UUID `json:"item_id"`
	CreatedAt time.Time `json:"created_at"`

	// Annotations for API responses
	Item *Item `json:"item,omitempty"`
}
