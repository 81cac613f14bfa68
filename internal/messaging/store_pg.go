package messaging

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barterly/barter-api/internal/apperrors"
	"github.com/barterly/barter-api/internal/models"
)

// PGStore implements Store on the shared Postgres pool.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// ConversationByID returns the conversation or a NotFound error
func (s *PGStore) ConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.pool.QueryRow(ctx, `
        SELECT id, user_low_id, user_high_id, trade_request_id,
               last_message_text, last_message_at, created_at, updated_at
        FROM conversations
        WHERE id = $1
    `, id).Scan(
		&conv.ID,
		&conv.UserLowID,
		&conv.UserHighID,
		&conv.TradeRequestID,
		&conv.LastMessageText,
		&conv.LastMessageAt,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("conversation not found")
		}
		return nil, apperrors.Transient(err, "loading conversation")
	}

	return &conv, nil
}

// ConversationByPair looks up the canonical row for a normalized pair
func (s *PGStore) ConversationByPair(ctx context.Context, low, high uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.pool.QueryRow(ctx, `
        SELECT id, user_low_id, user_high_id, trade_request_id,
               last_message_text, last_message_at, created_at, updated_at
        FROM conversations
        WHERE user_low_id = $1 AND user_high_id = $2
    `, low, high).Scan(
		&conv.ID,
		&conv.UserLowID,
		&conv.UserHighID,
		&conv.TradeRequestID,
		&conv.LastMessageText,
		&conv.LastMessageAt,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Transient(err, "looking up conversation")
	}

	return &conv, nil
}

// CreateConversation inserts a new conversation row
func (s *PGStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO conversations (id, user_low_id, user_high_id, trade_request_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, conv.ID, conv.UserLowID, conv.UserHighID, conv.TradeRequestID, conv.CreatedAt, conv.UpdatedAt)

	if err != nil {
		return apperrors.Transient(err, "creating conversation")
	}
	return nil
}

// TouchConversation records the latest message on the conversation row
func (s *PGStore) TouchConversation(ctx context.Context, id uuid.UUID, text string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
        UPDATE conversations
        SET last_message_text = $1, last_message_at = $2, updated_at = $2
        WHERE id = $3
    `, text, at, id)

	if err != nil {
		return apperrors.Transient(err, "updating conversation")
	}
	return nil
}

// LinkTrade records the originating trade on an existing conversation
func (s *PGStore) LinkTrade(ctx context.Context, id, tradeRequestID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
        UPDATE conversations
        SET trade_request_id = $1
        WHERE id = $2 AND trade_request_id IS NULL
    `, tradeRequestID, id)

	if err != nil {
		return apperrors.Transient(err, "linking trade to conversation")
	}
	return nil
}

// InsertMessage appends a message row
func (s *PGStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO messages (id, conversation_id, sender_id, text, is_read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, msg.ID, msg.ConversationID, msg.SenderID, msg.Text, msg.IsRead, msg.CreatedAt)

	if err != nil {
		return apperrors.Transient(err, "saving message")
	}
	return nil
}

// MarkMessagesRead flips unread messages from the other participant
func (s *PGStore) MarkMessagesRead(ctx context.Context, conversationID, viewerID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
        UPDATE messages
        SET is_read = true
        WHERE conversation_id = $1 AND sender_id != $2 AND is_read = false
    `, conversationID, viewerID)

	if err != nil {
		return apperrors.Transient(err, "marking messages read")
	}
	return nil
}

// Hide upserts the per-user visibility marker
func (s *PGStore) Hide(ctx context.Context, conversationID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO hidden_conversations (conversation_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (conversation_id, user_id) DO NOTHING
    `, conversationID, userID)

	if err != nil {
		return apperrors.Transient(err, "hiding conversation")
	}
	return nil
}

// Unhide removes the per-user visibility marker, if present
func (s *PGStore) Unhide(ctx context.Context, conversationID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
        DELETE FROM hidden_conversations
        WHERE conversation_id = $1 AND user_id = $2
    `, conversationID, userID)

	if err != nil {
		return apperrors.Transient(err, "unhiding conversation")
	}
	return nil
}

// ListConversations returns the user's visible conversations with unread
// counts, the other participant's profile, and the most recent message
func (s *PGStore) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT c.id, c.user_low_id, c.user_high_id, c.trade_request_id,
               c.last_message_text, c.last_message_at, c.created_at, c.updated_at,
               COUNT(m.id) FILTER (WHERE m.sender_id != $1 AND m.is_read = false) AS unread_count
        FROM conversations c
        LEFT JOIN messages m ON c.id = m.conversation_id
        WHERE (c.user_low_id = $1 OR c.user_high_id = $1)
          AND NOT EXISTS (
              SELECT 1 FROM hidden_conversations h
              WHERE h.conversation_id = c.id AND h.user_id = $1
          )
        GROUP BY c.id
        ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC
    `, userID)

	if err != nil {
		return nil, apperrors.Transient(err, "listing conversations")
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.UserLowID,
			&conv.UserHighID,
			&conv.TradeRequestID,
			&conv.LastMessageText,
			&conv.LastMessageAt,
			&conv.CreatedAt,
			&conv.UpdatedAt,
			&conv.UnreadCount,
		); err != nil {
			log.Printf("scanning conversation row: %v", err)
			continue
		}

		conv.Other = s.userInfo(ctx, conv.OtherParticipant(userID))
		conv.LastMessage = s.latestMessage(ctx, conv.ID)

		conversations = append(conversations, conv)
	}

	return conversations, nil
}

// ListMessages returns up to limit messages, newest first
func (s *PGStore) ListMessages(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]models.Message, error) {
	var rows pgx.Rows
	var err error

	if before != nil {
		rows, err = s.pool.Query(ctx, `
            SELECT m.id, m.conversation_id, m.sender_id, m.text, m.is_read, m.created_at
            FROM messages m
            WHERE m.conversation_id = $1
              AND m.created_at < (SELECT created_at FROM messages WHERE id = $2)
            ORDER BY m.created_at DESC
            LIMIT $3
        `, conversationID, *before, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
            SELECT m.id, m.conversation_id, m.sender_id, m.text, m.is_read, m.created_at
            FROM messages m
            WHERE m.conversation_id = $1
            ORDER BY m.created_at DESC
            LIMIT $2
        `, conversationID, limit)
	}

	if err != nil {
		return nil, apperrors.Transient(err, "listing messages")
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.Text,
			&msg.IsRead,
			&msg.CreatedAt,
		); err != nil {
			log.Printf("scanning message row: %v", err)
			continue
		}

		msg.Sender = s.userInfo(ctx, msg.SenderID)
		messages = append(messages, msg)
	}

	return messages, nil
}

// userInfo loads a user's public profile
func (s *PGStore) userInfo(ctx context.Context, userID uuid.UUID) *models.User {
	var user models.User
	err := s.pool.QueryRow(ctx, `
        SELECT id, username, first_name, last_name, avatar_url
        FROM users
        WHERE id = $1
    `, userID).Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
	)

	if err != nil {
		log.Printf("loading user %s: %v", userID, err)
		return nil
	}

	return &user
}

// latestMessage loads the most recent message of a conversation, if any
func (s *PGStore) latestMessage(ctx context.Context, conversationID uuid.UUID) *models.Message {
	var msg models.Message
	err := s.pool.QueryRow(ctx, `
        SELECT id, conversation_id, sender_id, text, is_read, created_at
        FROM messages
        WHERE conversation_id = $1
        ORDER BY created_at DESC
        LIMIT 1
    `, conversationID).Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.Text,
		&msg.IsRead,
		&msg.CreatedAt,
	)

	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("loading latest message for %s: %v", conversationID, err)
		}
		return nil
	}

	return &msg
}
