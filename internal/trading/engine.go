// Package trading implements the trade request lifecycle: a pending
// proposal between two users over two items, answered only by the target,
// with item reservation and conversation spawn on acceptance.
package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/barterly/barter-api/internal/apperrors"
	"github.com/barterly/barter-api/internal/bilateral"
	"github.com/barterly/barter-api/internal/models"
)

// Store is the persistence surface the engine runs on.
type Store interface {
	// ItemByID returns the item (ignoring soft-deleted rows) or NotFound.
	ItemByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	// RequestByID returns the trade request or NotFound.
	RequestByID(ctx context.Context, id uuid.UUID) (*models.TradeRequest, error)
	// HasActiveRequest reports whether requester already has a pending or
	// accepted request for the target item.
	HasActiveRequest(ctx context.Context, requesterID, targetItemID uuid.UUID) (bool, error)
	InsertRequest(ctx context.Context, req *models.TradeRequest) error
	SetRequestStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error
	// AcceptRequest marks the request accepted and both items traded and
	// unavailable, atomically.
	AcceptRequest(ctx context.Context, req *models.TradeRequest, at time.Time) error
	// ConversationIDForTrade returns the conversation spawned for a trade,
	// or nil when none exists yet.
	ConversationIDForTrade(ctx context.Context, tradeID uuid.UUID) (*uuid.UUID, error)
}

// ConversationSpawner is the messaging side effect invoked on acceptance.
type ConversationSpawner interface {
	SpawnTradeConversation(ctx context.Context, requesterID, targetID, tradeRequestID uuid.UUID, text string) (*models.Conversation, error)
}

// Notifier pushes coarse trade change signals to connected clients.
type Notifier interface {
	TradeUpdated(userID, tradeID uuid.UUID)
}

// Engine implements trade request creation and responses.
type Engine struct {
	store         Store
	conversations ConversationSpawner
	notifier      Notifier
}

// NewEngine creates an Engine. notifier may be nil.
func NewEngine(store Store, conversations ConversationSpawner, notifier Notifier) *Engine {
	return &Engine{store: store, conversations: conversations, notifier: notifier}
}

// respondDecisions are the statuses a trade target may choose. Completed is
// reserved for a handoff confirmation step that does not exist yet.
var respondDecisions = []string{models.TradeStatusAccepted, models.TradeStatusDeclined}

// Create validates and stores a new pending trade request. The target user
// is derived from the target item's owner.
func (e *Engine) Create(ctx context.Context, requesterID, requesterItemID, targetItemID uuid.UUID, note string) (*models.TradeRequest, error) {
	if requesterItemID == targetItemID {
		return nil, apperrors.Validation("cannot trade an item for itself")
	}

	offered, err := e.store.ItemByID(ctx, requesterItemID)
	if err != nil {
		return nil, err
	}
	if offered.UserID != requesterID {
		return nil, apperrors.Validation("you can only offer an item you own")
	}
	if !offered.IsAvailable {
		return nil, apperrors.Validation("your item %q is not available for trade", offered.Title)
	}

	target, err := e.store.ItemByID(ctx, targetItemID)
	if err != nil {
		return nil, err
	}
	if err := bilateral.ValidateCreate(requesterID, target.UserID); err != nil {
		return nil, err
	}
	if !target.IsAvailable {
		return nil, apperrors.StateConflict("item %q is no longer available", target.Title)
	}

	exists, err := e.store.HasActiveRequest(ctx, requesterID, targetItemID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.StateConflict("you already have an open trade request for this item")
	}

	now := time.Now().UTC()
	req := &models.TradeRequest{
		ID:              uuid.New(),
		RequesterID:     requesterID,
		RequesterItemID: requesterItemID,
		TargetID:        target.UserID,
		TargetItemID:    targetItemID,
		Status:          models.TradeStatusPending,
		Note:            note,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := e.store.InsertRequest(ctx, req); err != nil {
		return nil, err
	}

	if e.notifier != nil {
		e.notifier.TradeUpdated(req.TargetID, req.ID)
	}

	return req, nil
}

// Respond moves a pending request to accepted or declined. Only the target
// may respond. Acceptance reserves both items immediately (there is no later
// completion step to defer to) and then spawns the conversation; if that
// second step failed on a previous call, accepting again replays just the
// conversation step.
func (e *Engine) Respond(ctx context.Context, requestID, responderID uuid.UUID, decision string) (*models.TradeRequest, error) {
	req, err := e.store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// Interrupted accept: the request is settled but the conversation never
	// materialized. Replaying the spawn is safe because get-or-create is
	// canonical per pair.
	if req.Status == models.TradeStatusAccepted && decision == models.TradeStatusAccepted && responderID == req.TargetID {
		convID, err := e.store.ConversationIDForTrade(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if convID != nil {
			return nil, apperrors.StateConflict("request is already %s", req.Status)
		}
		return e.finishAccept(ctx, req)
	}

	state := bilateral.Request{
		Requester: req.RequesterID,
		Addressee: req.TargetID,
		Status:    req.Status,
	}
	if err := bilateral.CanRespond(state, responderID, decision, respondDecisions); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if decision == models.TradeStatusDeclined {
		if err := e.store.SetRequestStatus(ctx, req.ID, models.TradeStatusDeclined, now); err != nil {
			return nil, err
		}
		req.Status = models.TradeStatusDeclined
		req.UpdatedAt = now

		if e.notifier != nil {
			e.notifier.TradeUpdated(req.RequesterID, req.ID)
		}
		return req, nil
	}

	if err := e.store.AcceptRequest(ctx, req, now); err != nil {
		return nil, err
	}
	req.Status = models.TradeStatusAccepted
	req.UpdatedAt = now

	return e.finishAccept(ctx, req)
}

// finishAccept runs the messaging side effect of an accepted request.
func (e *Engine) finishAccept(ctx context.Context, req *models.TradeRequest) (*models.TradeRequest, error) {
	offered, err := e.store.ItemByID(ctx, req.RequesterItemID)
	if err != nil {
		return nil, err
	}
	target, err := e.store.ItemByID(ctx, req.TargetItemID)
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Trade accepted: %q for %q. You can arrange the handoff here.",
		offered.Title, target.Title)

	conv, err := e.conversations.SpawnTradeConversation(ctx, req.RequesterID, req.TargetID, req.ID, text)
	if err != nil {
		return nil, apperrors.Transient(err, "trade accepted but the conversation could not be started; accept again to retry")
	}
	req.ConversationID = &conv.ID

	if e.notifier != nil {
		e.notifier.TradeUpdated(req.RequesterID, req.ID)
	}

	return req, nil
}
