// Package messaging coordinates conversations between pairs of users:
// canonical one-conversation-per-pair lookup, message delivery, read
// tracking, and per-user hiding.
package messaging

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/barterly/barter-api/internal/apperrors"
	"github.com/barterly/barter-api/internal/models"
)

// Store is the persistence surface the coordinator runs on.
type Store interface {
	// ConversationByID returns the conversation or a NotFound error.
	ConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	// ConversationByPair looks up by normalized pair; (nil, nil) when absent.
	ConversationByPair(ctx context.Context, low, high uuid.UUID) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	// TouchConversation records the latest message text and time.
	TouchConversation(ctx context.Context, id uuid.UUID, text string, at time.Time) error
	// LinkTrade records the originating trade on a conversation that was
	// created before the trade existed.
	LinkTrade(ctx context.Context, id, tradeRequestID uuid.UUID) error
	InsertMessage(ctx context.Context, msg *models.Message) error
	// MarkMessagesRead flips unread messages not sent by viewer; a no-op
	// when nothing matches.
	MarkMessagesRead(ctx context.Context, conversationID, viewerID uuid.UUID) error
	// Hide and Unhide are idempotent per-user visibility markers.
	Hide(ctx context.Context, conversationID, userID uuid.UUID) error
	Unhide(ctx context.Context, conversationID, userID uuid.UUID) error
	// ListConversations returns the user's non-hidden conversations,
	// annotated and ordered by most recent activity.
	ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	// ListMessages returns up to limit messages, newest first, optionally
	// only those created before the given message.
	ListMessages(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]models.Message, error)
}

// Notifier pushes coarse "re-fetch this aggregate" signals to connected
// clients. Implementations must tolerate being called for offline users.
type Notifier interface {
	ConversationUpdated(userID, conversationID uuid.UUID)
	MessagesRead(userID, conversationID uuid.UUID)
}

// Coordinator implements the conversation and message operations.
type Coordinator struct {
	store    Store
	notifier Notifier
}

// New creates a Coordinator. notifier may be nil.
func New(store Store, notifier Notifier) *Coordinator {
	return &Coordinator{store: store, notifier: notifier}
}

// GetOrCreate returns the canonical conversation between initiator and
// other, creating it when absent. The initiator's hide marker, if any, is
// cleared: re-engaging restores the conversation to their list.
func (co *Coordinator) GetOrCreate(ctx context.Context, initiator, other uuid.UUID, tradeRequestID *uuid.UUID) (*models.Conversation, bool, error) {
	if initiator == uuid.Nil || other == uuid.Nil {
		return nil, false, apperrors.Validation("both participants are required")
	}
	if initiator == other {
		return nil, false, apperrors.Validation("cannot start a conversation with yourself")
	}

	low, high := models.NormalizePair(initiator, other)

	conv, err := co.store.ConversationByPair(ctx, low, high)
	if err != nil {
		return nil, false, err
	}

	created := false
	if conv == nil {
		now := time.Now().UTC()
		conv = &models.Conversation{
			ID:             uuid.New(),
			UserLowID:      low,
			UserHighID:     high,
			TradeRequestID: tradeRequestID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := co.store.CreateConversation(ctx, conv); err != nil {
			return nil, false, err
		}
		created = true
	} else if conv.TradeRequestID == nil && tradeRequestID != nil {
		if err := co.store.LinkTrade(ctx, conv.ID, *tradeRequestID); err != nil {
			return nil, false, err
		}
		conv.TradeRequestID = tradeRequestID
	}

	if err := co.store.Unhide(ctx, conv.ID, initiator); err != nil {
		return nil, false, err
	}

	return conv, created, nil
}

// Send appends a message from senderID and updates the conversation's
// last-activity marker. Sending also clears the sender's hide marker.
func (co *Coordinator) Send(ctx context.Context, conversationID, senderID uuid.UUID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("message text cannot be empty")
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return nil, apperrors.Validation("message text exceeds %d characters", models.MaxMessageLength)
	}

	conv, err := co.store.ConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, apperrors.Authorization("you are not a participant of this conversation")
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
		IsRead:         false,
		CreatedAt:      now,
	}

	if err := co.store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := co.store.TouchConversation(ctx, conv.ID, text, now); err != nil {
		return nil, err
	}
	if err := co.store.Unhide(ctx, conv.ID, senderID); err != nil {
		return nil, err
	}

	if co.notifier != nil {
		co.notifier.ConversationUpdated(conv.OtherParticipant(senderID), conv.ID)
	}

	return msg, nil
}

// MarkRead flips every unread message not sent by viewerID. Calling it again
// changes nothing.
func (co *Coordinator) MarkRead(ctx context.Context, conversationID, viewerID uuid.UUID) error {
	conv, err := co.store.ConversationByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(viewerID) {
		return apperrors.Authorization("you are not a participant of this conversation")
	}

	if err := co.store.MarkMessagesRead(ctx, conv.ID, viewerID); err != nil {
		return err
	}

	if co.notifier != nil {
		co.notifier.MessagesRead(conv.OtherParticipant(viewerID), conv.ID)
	}

	return nil
}

// Hide removes the conversation from userID's list only. Messages and the
// other participant's view are untouched.
func (co *Coordinator) Hide(ctx context.Context, conversationID, userID uuid.UUID) error {
	conv, err := co.store.ConversationByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return apperrors.Authorization("you are not a participant of this conversation")
	}

	return co.store.Hide(ctx, conv.ID, userID)
}

// List returns the user's visible conversations, most recent activity first.
func (co *Coordinator) List(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	return co.store.ListConversations(ctx, userID)
}

// Messages returns a page of conversation history for a participant and
// marks the returned window as read, best-effort.
func (co *Coordinator) Messages(ctx context.Context, conversationID, viewerID uuid.UUID, before *uuid.UUID, limit int) ([]models.Message, error) {
	conv, err := co.store.ConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(viewerID) {
		return nil, apperrors.Authorization("you are not a participant of this conversation")
	}

	msgs, err := co.store.ListMessages(ctx, conv.ID, before, limit)
	if err != nil {
		return nil, err
	}

	if err := co.store.MarkMessagesRead(ctx, conv.ID, viewerID); err != nil {
		log.Printf("marking conversation %s read for %s: %v", conv.ID, viewerID, err)
	} else if co.notifier != nil {
		co.notifier.MessagesRead(conv.OtherParticipant(viewerID), conv.ID)
	}

	return msgs, nil
}

// SpawnTradeConversation creates or resurfaces the conversation between the
// two parties of an accepted trade and posts the confirmation message as the
// requester. Both steps are idempotent lookups or plain inserts, so a failed
// call can be retried.
func (co *Coordinator) SpawnTradeConversation(ctx context.Context, requesterID, targetID, tradeRequestID uuid.UUID, text string) (*models.Conversation, error) {
	conv, _, err := co.GetOrCreate(ctx, requesterID, targetID, &tradeRequestID)
	if err != nil {
		return nil, err
	}

	if _, err := co.Send(ctx, conv.ID, requesterID, text); err != nil {
		return nil, err
	}

	return conv, nil
}
