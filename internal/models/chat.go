package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageLength bounds the text of a single message.
const MaxMessageLength = 1000

// NormalizePair orders two user IDs so that the lexicographically smaller
// one comes first. Every conversation lookup and insert goes through this,
// which is what guarantees a single row per unordered pair.
func NormalizePair(a, b uuid.UUID) (low, high uuid.UUID) {
	if a.String() < b.String() {
		return a, b
	}
	return b, a
}

// Conversation represents the canonical message channel between two users
type Conversation struct {
	ID              uuid.UUID  `json:"id"`
	UserLowID       uuid.UUID  `json:"user_low_id"`
	UserHighID      uuid.UUID  `json:"user_high_id"`
	TradeRequestID  *uuid.UUID `json:"trade_request_id,omitempty"`
	LastMessageText string     `json:"last_message_text,omitempty"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Annotations for API responses
	Other       *User    `json:"other,omitempty"`
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.UserLowID == userID || c.UserHighID == userID
}

// OtherParticipant returns the participant that is not viewer.
func (c *Conversation) OtherParticipant(viewer uuid.UUID) uuid.UUID {
	if c.UserLowID == viewer {
		return c.UserHighID
	}
	return c.UserLowID
}

// Message represents a single chat entry
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Text           string    `json:"text"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`

	// Annotations for API responses
	Sender *User `json:"sender,omitempty"`
}
