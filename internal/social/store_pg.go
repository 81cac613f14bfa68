package social

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

// FriendshipByID returns the friendship or NotFound
func (s *PGStore) FriendshipByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	var f models.Friendship
	err := s.pool.QueryRow(ctx, `
        SELECT id, requester_id, addressee_id, status, created_at, responded_at
        FROM friendships
        WHERE id = $1
    `, id).Scan(
		&f.ID,
		&f.RequesterID,
		&f.AddresseeID,
		&f.Status,
		&f.CreatedAt,
		&f.RespondedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("friend request not found")
		}
		return nil, apperrors.Transient(err, "loading friend request")
	}

	return &f, nil
}

// ConnectionExists checks both orderings for any non-declined friendship
func (s *PGStore) ConnectionExists(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
        SELECT EXISTS(
            SELECT 1 FROM friendships
            WHERE ((requester_id = $1 AND addressee_id = $2)
                OR (requester_id = $2 AND addressee_id = $1))
              AND status != 'declined'
        )
    `, a, b).Scan(&exists)

	if err != nil {
		return false, apperrors.Transient(err, "checking existing friendship")
	}
	return exists, nil
}

// InsertFriendship stores a new pending friendship
func (s *PGStore) InsertFriendship(ctx context.Context, f *models.Friendship) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO friendships (id, requester_id, addressee_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, f.ID, f.RequesterID, f.AddresseeID, f.Status, f.CreatedAt)

	if err != nil {
		return apperrors.Transient(err, "saving friend request")
	}
	return nil
}

// SetFriendshipStatus records the addressee's decision
func (s *PGStore) SetFriendshipStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
        UPDATE friendships
        SET status = $1, responded_at = $2
        WHERE id = $3
    `, status, at, id)

	if err != nil {
		return apperrors.Transient(err, "updating friend request")
	}
	return nil
}
