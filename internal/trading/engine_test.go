package trading

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barterly/barter-api/internal/apperrors"
	"github.com/barterly/barter-api/internal/models"
)

// memTradeStore is an in-memory Store for exercising the engine.
type memTradeStore struct {
	items    map[uuid.UUID]*models.Item
	requests map[uuid.UUID]*models.TradeRequest
	tradeCnv map[uuid.UUID]uuid.UUID
}

func newMemTradeStore() *memTradeStore {
	return &memTradeStore{
		items:    make(map[uuid.UUID]*models.Item),
		requests: make(map[uuid.UUID]*models.TradeRequest),
		tradeCnv: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *memTradeStore) addItem(owner uuid.UUID, title string, value float64) *models.Item {
	item := &models.Item{
		ID:             uuid.New(),
		UserID:         owner,
		Title:          title,
		Condition:      models.ConditionGood,
		EstimatedValue: value,
		IsAvailable:    true,
		Status:         models.ItemStatusAvailable,
	}
	m.items[item.ID] = item
	return item
}

func (m *memTradeStore) ItemByID(_ context.Context, id uuid.UUID) (*models.Item, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, apperrors.NotFound("item not found")
	}
	copied := *item
	return &copied, nil
}

func (m *memTradeStore) RequestByID(_ context.Context, id uuid.UUID) (*models.TradeRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, apperrors.NotFound("trade request not found")
	}
	copied := *req
	return &copied, nil
}

func (m *memTradeStore) HasActiveRequest(_ context.Context, requesterID, targetItemID uuid.UUID) (bool, error) {
	for _, req := range m.requests {
		if req.RequesterID == requesterID && req.TargetItemID == targetItemID && models.TradeActive(req.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTradeStore) InsertRequest(_ context.Context, req *models.TradeRequest) error {
	copied := *req
	m.requests[req.ID] = &copied
	return nil
}

func (m *memTradeStore) SetRequestStatus(_ context.Context, id uuid.UUID, status string, at time.Time) error {
	if req, ok := m.requests[id]; ok {
		req.Status = status
		req.UpdatedAt = at
	}
	return nil
}

func (m *memTradeStore) AcceptRequest(_ context.Context, req *models.TradeRequest, at time.Time) error {
	stored := m.requests[req.ID]
	stored.Status = models.TradeStatusAccepted
	stored.UpdatedAt = at
	for _, id := range []uuid.UUID{req.RequesterItemID, req.TargetItemID} {
		item := m.items[id]
		item.Status = models.ItemStatusTraded
		item.IsAvailable = false
	}
	return nil
}

func (m *memTradeStore) ConversationIDForTrade(_ context.Context, tradeID uuid.UUID) (*uuid.UUID, error) {
	if id, ok := m.tradeCnv[tradeID]; ok {
		return &id, nil
	}
	return nil, nil
}

// fakeSpawner records conversation spawns.
type fakeSpawner struct {
	store *memTradeStore
	calls []string
	fail  bool
}

func (f *fakeSpawner) SpawnTradeConversation(_ context.Context, requesterID, targetID, tradeRequestID uuid.UUID, text string) (*models.Conversation, error) {
	if f.fail {
		return nil, apperrors.Transient(assert.AnError, "spawn failed")
	}
	f.calls = append(f.calls, text)
	convID, ok := f.store.tradeCnv[tradeRequestID]
	if !ok {
		convID = uuid.New()
		f.store.tradeCnv[tradeRequestID] = convID
	}
	low, high := models.NormalizePair(requesterID, targetID)
	return &models.Conversation{ID: convID, UserLowID: low, UserHighID: high, TradeRequestID: &tradeRequestID}, nil
}

func setup(t *testing.T) (*memTradeStore, *fakeSpawner, *Engine, uuid.UUID, uuid.UUID, *models.Item, *models.Item) {
	t.Helper()
	store := newMemTradeStore()
	spawner := &fakeSpawner{store: store}
	engine := NewEngine(store, spawner, nil)
	alice := uuid.New()
	bob := uuid.New()
	bike := store.addItem(alice, "Bike", 50)
	guitar := store.addItem(bob, "Guitar", 200)
	return store, spawner, engine, alice, bob, bike, guitar
}

func TestCreateProducesPendingRequest(t *testing.T) {
	_, _, engine, alice, bob, bike, guitar := setup(t)

	req, err := engine.Create(context.Background(), alice, bike.ID, guitar.ID, "interested?")
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusPending, req.Status)
	assert.Equal(t, alice, req.RequesterID)
	assert.Equal(t, bob, req.TargetID)
	assert.Equal(t, "interested?", req.Note)
}

func TestCreateValidation(t *testing.T) {
	store, _, engine, alice, _, bike, guitar := setup(t)
	ctx := context.Background()

	t.Run("offering someone else's item", func(t *testing.T) {
		_, err := engine.Create(ctx, alice, guitar.ID, bike.ID, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("self trade", func(t *testing.T) {
		second := store.addItem(alice, "Skateboard", 30)
		_, err := engine.Create(ctx, alice, bike.ID, second.ID, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := engine.Create(ctx, alice, bike.ID, uuid.New(), "")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})

	t.Run("offered item unavailable", func(t *testing.T) {
		store.items[bike.ID].IsAvailable = false
		defer func() { store.items[bike.ID].IsAvailable = true }()
		_, err := engine.Create(ctx, alice, bike.ID, guitar.ID, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("target item unavailable", func(t *testing.T) {
		store.items[guitar.ID].IsAvailable = false
		defer func() { store.items[guitar.ID].IsAvailable = true }()
		_, err := engine.Create(ctx, alice, bike.ID, guitar.ID, "")
		require.Error(t, err)
		assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))
	})
}

func TestCreateRejectsDuplicateActiveRequest(t *testing.T) {
	store, _, engine, alice, _, bike, guitar := setup(t)
	ctx := context.Background()

	_, err := engine.Create(ctx, alice, bike.ID, guitar.ID, "")
	require.NoError(t, err)

	other := store.addItem(alice, "Skates", 40)
	_, err = engine.Create(ctx, alice, other.ID, guitar.ID, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))
}

func TestRespondAuthorization(t *testing.T) {
	_, _, engine, alice, _, bike, guitar := setup(t)
	ctx := context.Background()

	req, err := engine.Create(ctx, alice, bike.ID, guitar.ID, "")
	require.NoError(t, err)

	for _, decision := range []string{models.TradeStatusAccepted, models.TradeStatusDeclined} {
		_, err = engine.Respond(ctx, req.ID, alice, decision)
		require.Error(t, err, decision)
		assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))

		_, err = engine.Respond(ctx, req.ID, uuid.New(), decision)
		require.Error(t, err, decision)
		assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))
	}
}

func TestAcceptReservesItemsAndSpawnsConversation(t *testing.T) {
	store, spawner, engine, alice, bob, bike, guitar := setup(t)
	ctx := context.Background()

	req, err := engine.Create(ctx, alice, bike.ID, guitar.ID, "")
	require.NoError(t, err)

	accepted, err := engine.Respond(ctx, req.ID, bob, models.TradeStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.ConversationID)

	for _, id := range []uuid.UUID{bike.ID, guitar.ID} {
		assert.Equal(t, models.ItemStatusTraded, store.items[id].Status)
		assert.False(t, store.items[id].IsAvailable)
	}

	require.Len(t, spawner.calls, 1)
	assert.Contains(t, spawner.calls[0], "Bike")
	assert.Contains(t, spawner.calls[0], "Guitar")

	// Responding again conflicts.
	_, err = engine.Respond(ctx, req.ID, bob, models.TradeStatusAccepted)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))
}

func TestDeclineLeavesItemsUntouched(t *testing.T) {
	store, spawner, engine, alice, bob, bike, guitar := setup(t)
	ctx := context.Background()

	req, err := engine.Create(ctx, alice, bike.ID, guitar.ID, "")
	require.NoError(t, err)

	declined, err := engine.Respond(ctx, req.ID, bob, models.TradeStatusDeclined)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusDeclined, declined.Status)

	for _, id := range []uuid.UUID{bike.ID, guitar.ID} {
		assert.Equal(t, models.ItemStatusAvailable, store.items[id].Status)
		assert.True(t, store.items[id].IsAvailable)
	}
	assert.Empty(t, spawner.calls)

	// Declined is terminal.
	_, err = engine.Respond(ctx, req.ID, bob, models.TradeStatusAccepted)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))
}

func TestAcceptRetriesConversationAfterPartialFailure(t *testing.T) {
	store, spawner, engine, alice, bob, bike, guitar := setup(t)
	ctx := context.Background()

	req, err := engine.Create(ctx, alice, bike.ID, guitar.ID, "")
	require.NoError(t, err)

	spawner.fail = true
	_, err = engine.Respond(ctx, req.ID, bob, models.TradeStatusAccepted)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransient, apperrors.KindOf(err))

	// The request is settled and the items are reserved, but no
	// conversation exists yet.
	assert.Equal(t, models.TradeStatusAccepted, store.requests[req.ID].Status)
	assert.False(t, store.items[bike.ID].IsAvailable)

	// Accepting again replays only the conversation step.
	spawner.fail = false
	accepted, err := engine.Respond(ctx, req.ID, bob, models.TradeStatusAccepted)
	require.NoError(t, err)
	require.NotNil(t, accepted.ConversationID)
	require.Len(t, spawner.calls, 1)
}
