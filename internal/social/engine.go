// Package social implements the friendship lifecycle. It is the same
// two-party request machine as trading, without item side effects and with
// blocking as a third answer.
package social

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/barterly/barter-api/internal/apperrors"
	"github.com/barterly/barter-api/internal/bilateral"
	"github.com/barterly/barter-api/internal/models"
)

// Store is the persistence surface the engine runs on.
type Store interface {
	// FriendshipByID returns the friendship or NotFound.
	FriendshipByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error)
	// ConnectionExists reports whether any non-declined friendship ties the
	// pair, in either direction.
	ConnectionExists(ctx context.Context, a, b uuid.UUID) (bool, error)
	InsertFriendship(ctx context.Context, f *models.Friendship) error
	SetFriendshipStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error
}

// Notifier pushes coarse friendship change signals to connected clients.
type Notifier interface {
	FriendUpdated(userID, friendshipID uuid.UUID)
}

// Engine implements friendship requests and responses.
type Engine struct {
	store    Store
	notifier Notifier
}

// NewEngine creates an Engine. notifier may be nil.
func NewEngine(store Store, notifier Notifier) *Engine {
	return &Engine{store: store, notifier: notifier}
}

var respondDecisions = []string{
	models.FriendshipStatusAccepted,
	models.FriendshipStatusDeclined,
	models.FriendshipStatusBlocked,
}

// Request creates a pending friendship unless the pair is already connected
// by a pending, accepted, or blocked row in either direction.
func (e *Engine) Request(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.Friendship, error) {
	if err := bilateral.ValidateCreate(requesterID, addresseeID); err != nil {
		return nil, err
	}

	connected, err := e.store.ConnectionExists(ctx, requesterID, addresseeID)
	if err != nil {
		return nil, err
	}
	if connected {
		return nil, apperrors.StateConflict("you are already connected to this user")
	}

	now := time.Now().UTC()
	f := &models.Friendship{
		ID:          uuid.New(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      models.FriendshipStatusPending,
		CreatedAt:   now,
	}

	if err := e.store.InsertFriendship(ctx, f); err != nil {
		return nil, err
	}

	if e.notifier != nil {
		e.notifier.FriendUpdated(addresseeID, f.ID)
	}

	return f, nil
}

// Respond moves a pending friendship to accepted, declined, or blocked.
// Only the addressee may respond.
func (e *Engine) Respond(ctx context.Context, friendshipID, responderID uuid.UUID, decision string) (*models.Friendship, error) {
	f, err := e.store.FriendshipByID(ctx, friendshipID)
	if err != nil {
		return nil, err
	}

	state := bilateral.Request{
		Requester: f.RequesterID,
		Addressee: f.AddresseeID,
		Status:    f.Status,
	}
	if err := bilateral.CanRespond(state, responderID, decision, respondDecisions); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := e.store.SetFriendshipStatus(ctx, f.ID, decision, now); err != nil {
		return nil, err
	}
	f.Status = decision
	f.RespondedAt = &now

	if e.notifier != nil {
		e.notifier.FriendUpdated(f.RequesterID, f.ID)
	}

	return f, nil
}
