package trading

import (
	"context"
	"errors"
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

// ItemByID returns a live item row or NotFound
func (s *PGStore) ItemByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := s.pool.QueryRow(ctx, `
        SELECT id, user_id, title, description, condition, estimated_value,
               is_available, status, created_at, updated_at
        FROM items
        WHERE id = $1 AND deleted_at IS NULL
    `, id).Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.Description,
		&item.Condition,
		&item.EstimatedValue,
		&item.IsAvailable,
		&item.Status,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("item not found")
		}
		return nil, apperrors.Transient(err, "loading item")
	}

	return &item, nil
}

// RequestByID returns the trade request or NotFound
func (s *PGStore) RequestByID(ctx context.Context, id uuid.UUID) (*models.TradeRequest, error) {
	var req models.TradeRequest
	err := s.pool.QueryRow(ctx, `
        SELECT id, requester_id, requester_item_id, target_id, target_item_id,
               status, note, created_at, updated_at
        FROM trade_requests
        WHERE id = $1
    `, id).Scan(
		&req.ID,
		&req.RequesterID,
		&req.RequesterItemID,
		&req.TargetID,
		&req.TargetItemID,
		&req.Status,
		&req.Note,
		&req.CreatedAt,
		&req.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("trade request not found")
		}
		return nil, apperrors.Transient(err, "loading trade request")
	}

	return &req, nil
}

// HasActiveRequest reports whether a pending or accepted request already
// occupies the (requester, target item) slot
func (s *PGStore) HasActiveRequest(ctx context.Context, requesterID, targetItemID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
        SELECT EXISTS(
            SELECT 1 FROM trade_requests
            WHERE requester_id = $1 AND target_item_id = $2
              AND status IN ('pending', 'accepted')
        )
    `, requesterID, targetItemID).Scan(&exists)

	if err != nil {
		return false, apperrors.Transient(err, "checking existing trade requests")
	}
	return exists, nil
}

// InsertRequest stores a new pending request
func (s *PGStore) InsertRequest(ctx context.Context, req *models.TradeRequest) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO trade_requests (id, requester_id, requester_item_id, target_id, target_item_id, status, note, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, req.ID, req.RequesterID, req.RequesterItemID, req.TargetID, req.TargetItemID,
		req.Status, req.Note, req.CreatedAt, req.UpdatedAt)

	if err != nil {
		return apperrors.Transient(err, "saving trade request")
	}
	return nil
}

// SetRequestStatus updates only the request's status
func (s *PGStore) SetRequestStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
        UPDATE trade_requests
        SET status = $1, updated_at = $2
        WHERE id = $3
    `, status, at, id)

	if err != nil {
		return apperrors.Transient(err, "updating trade request")
	}
	return nil
}

// AcceptRequest marks the request accepted and takes both items off the
// market in a single transaction
func (s *PGStore) AcceptRequest(ctx context.Context, req *models.TradeRequest, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.Transient(err, "starting transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        UPDATE trade_requests
        SET status = 'accepted', updated_at = $1
        WHERE id = $2
    `, at, req.ID)
	if err != nil {
		return apperrors.Transient(err, "accepting trade request")
	}

	_, err = tx.Exec(ctx, `
        UPDATE items
        SET status = 'traded', is_available = false, updated_at = $1
        WHERE id = ANY($2)
    `, at, []uuid.UUID{req.RequesterItemID, req.TargetItemID})
	if err != nil {
		return apperrors.Transient(err, "reserving traded items")
	}

	if err = tx.Commit(ctx); err != nil {
		return apperrors.Transient(err, "committing trade acceptance")
	}
	return nil
}

// ConversationIDForTrade returns the conversation linked to a trade, if any
func (s *PGStore) ConversationIDForTrade(ctx context.Context, tradeID uuid.UUID) (*uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
        SELECT id FROM conversations WHERE trade_request_id = $1 LIMIT 1
    `, tradeID).Scan(&id)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Transient(err, "looking up trade conversation")
	}

	return &id, nil
}
