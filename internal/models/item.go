package models

import (
	"time"

	"github.com/google/uuid"
)

// Item conditions.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

// Item statuses.
const (
	ItemStatusAvailable   = "available"
	ItemStatusUnavailable = "unavailable"
	ItemStatusTraded      = "traded"
)

// MaxItemImages is the most images a single item may carry.
const MaxItemImages = 5

// ValidCondition reports whether s is a known item condition.
func ValidCondition(s string) bool {
	switch s {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Item represents a tradeable listing
type Item struct {
	ID             uuid.UUID   `json:"id"`
	UserID         uuid.UUID   `json:"user_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Condition      string      `json:"condition"`
	EstimatedValue float64     `json:"estimated_value"`
	IsAvailable    bool        `json:"is_available"`
	Status         string      `json:"status"`
	Images         []ItemImage `json:"images"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	// Annotations for API responses
	Owner *User `json:"owner,omitempty"`
}

// ItemImage represents one image attached to an item
type ItemImage struct {
	ID         uuid.UUID `json:"id"`
	ItemID     uuid.UUID `json:"item_id"`
	URL        string    `json:"url"`
	PreviewURL string    `json:"preview_url,omitempty"`
	PublicID   string    `json:"public_id"`
	FileName   string    `json:"file_name,omitempty"`
	IsMain     bool      `json:"is_main"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}
