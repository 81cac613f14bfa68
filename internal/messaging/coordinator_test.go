package messaging

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barterly/barter-api/internal/apperrors"
	"github.com/barterly/barter-api/internal/models"
)

// memStore is an in-memory Store for exercising the coordinator.
type memStore struct {
	convs  map[uuid.UUID]*models.Conversation
	msgs   []*models.Message
	hidden map[uuid.UUID]map[uuid.UUID]bool
}

func newMemStore() *memStore {
	return &memStore{
		convs:  make(map[uuid.UUID]*models.Conversation),
		hidden: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (m *memStore) ConversationByID(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	conv, ok := m.convs[id]
	if !ok {
		return nil, apperrors.NotFound("conversation not found")
	}
	copied := *conv
	return &copied, nil
}

func (m *memStore) ConversationByPair(_ context.Context, low, high uuid.UUID) (*models.Conversation, error) {
	for _, conv := range m.convs {
		if conv.UserLowID == low && conv.UserHighID == high {
			copied := *conv
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateConversation(_ context.Context, conv *models.Conversation) error {
	copied := *conv
	m.convs[conv.ID] = &copied
	return nil
}

func (m *memStore) TouchConversation(_ context.Context, id uuid.UUID, text string, at time.Time) error {
	if conv, ok := m.convs[id]; ok {
		conv.LastMessageText = text
		t := at
		conv.LastMessageAt = &t
		conv.UpdatedAt = at
	}
	return nil
}

func (m *memStore) LinkTrade(_ context.Context, id, tradeRequestID uuid.UUID) error {
	if conv, ok := m.convs[id]; ok && conv.TradeRequestID == nil {
		t := tradeRequestID
		conv.TradeRequestID = &t
	}
	return nil
}

func (m *memStore) InsertMessage(_ context.Context, msg *models.Message) error {
	copied := *msg
	m.msgs = append(m.msgs, &copied)
	return nil
}

func (m *memStore) MarkMessagesRead(_ context.Context, conversationID, viewerID uuid.UUID) error {
	for _, msg := range m.msgs {
		if msg.ConversationID == conversationID && msg.SenderID != viewerID {
			msg.IsRead = true
		}
	}
	return nil
}

func (m *memStore) Hide(_ context.Context, conversationID, userID uuid.UUID) error {
	if m.hidden[conversationID] == nil {
		m.hidden[conversationID] = make(map[uuid.UUID]bool)
	}
	m.hidden[conversationID][userID] = true
	return nil
}

func (m *memStore) Unhide(_ context.Context, conversationID, userID uuid.UUID) error {
	delete(m.hidden[conversationID], userID)
	return nil
}

func (m *memStore) ListConversations(_ context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, conv := range m.convs {
		if !conv.HasParticipant(userID) || m.hidden[conv.ID][userID] {
			continue
		}
		copied := *conv
		copied.UnreadCount = 0
		for _, msg := range m.msgs {
			if msg.ConversationID == conv.ID && msg.SenderID != userID && !msg.IsRead {
				copied.UnreadCount++
			}
		}
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if out[i].LastMessageAt != nil {
			ti = *out[i].LastMessageAt
		}
		if out[j].LastMessageAt != nil {
			tj = *out[j].LastMessageAt
		}
		return ti.After(tj)
	})
	return out, nil
}

func (m *memStore) ListMessages(_ context.Context, conversationID uuid.UUID, _ *uuid.UUID, limit int) ([]models.Message, error) {
	var out []models.Message
	for i := len(m.msgs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.msgs[i].ConversationID == conversationID {
			out = append(out, *m.msgs[i])
		}
	}
	return out, nil
}

// recordingNotifier captures emitted events.
type recordingNotifier struct {
	updated []uuid.UUID
	read    []uuid.UUID
}

func (n *recordingNotifier) ConversationUpdated(userID, _ uuid.UUID) {
	n.updated = append(n.updated, userID)
}

func (n *recordingNotifier) MessagesRead(userID, _ uuid.UUID) {
	n.read = append(n.read, userID)
}

func TestGetOrCreatePairOrderIndependent(t *testing.T) {
	ctx := context.Background()
	co := New(newMemStore(), nil)
	alice := uuid.New()
	bob := uuid.New()

	conv1, created, err := co.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)
	assert.True(t, created)

	conv2, created, err := co.GetOrCreate(ctx, bob, alice, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv1.ID, conv2.ID)

	low, high := models.NormalizePair(alice, bob)
	assert.Equal(t, low, conv1.UserLowID)
	assert.Equal(t, high, conv1.UserHighID)
}

func TestGetOrCreateRejectsSelf(t *testing.T) {
	co := New(newMemStore(), nil)
	alice := uuid.New()

	_, _, err := co.GetOrCreate(context.Background(), alice, alice, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	co := New(store, nil)
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	conv, _, err := co.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)

	_, err = co.Send(ctx, conv.ID, alice, "   ")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = co.Send(ctx, conv.ID, alice, strings.Repeat("x", models.MaxMessageLength+1))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = co.Send(ctx, conv.ID, carol, "hi")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))

	_, err = co.Send(ctx, uuid.New(), alice, "hi")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestMarkReadIdempotent(t *testing.T) {
	ctx := context.Background()
	co := New(newMemStore(), nil)
	alice := uuid.New()
	bob := uuid.New()

	conv, _, err := co.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)

	_, err = co.Send(ctx, conv.ID, alice, "want to trade?")
	require.NoError(t, err)

	unread := func(viewer uuid.UUID) int {
		list, err := co.List(ctx, viewer)
		require.NoError(t, err)
		require.Len(t, list, 1)
		return list[0].UnreadCount
	}

	assert.Equal(t, 1, unread(bob))
	assert.Equal(t, 0, unread(alice))

	require.NoError(t, co.MarkRead(ctx, conv.ID, bob))
	assert.Equal(t, 0, unread(bob))

	// A second call changes nothing.
	require.NoError(t, co.MarkRead(ctx, conv.ID, bob))
	assert.Equal(t, 0, unread(bob))
}

func TestHideIsUnilateralAndReEngagementUnhides(t *testing.T) {
	ctx := context.Background()
	co := New(newMemStore(), nil)
	alice := uuid.New()
	bob := uuid.New()

	conv, _, err := co.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)
	_, err = co.Send(ctx, conv.ID, bob, "hello")
	require.NoError(t, err)

	require.NoError(t, co.Hide(ctx, conv.ID, alice))

	listA, err := co.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, listA)

	listB, err := co.List(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, listB, 1)

	// Hiding twice is a no-op, not an error.
	require.NoError(t, co.Hide(ctx, conv.ID, alice))

	// Alice sending a message brings the conversation back for her.
	_, err = co.Send(ctx, conv.ID, alice, "changed my mind")
	require.NoError(t, err)

	listA, err = co.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, listA, 1)

	// Hide again, then re-open via get-or-create: same effect.
	require.NoError(t, co.Hide(ctx, conv.ID, alice))
	_, _, err = co.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)

	listA, err = co.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, listA, 1)

	// Bob's view never changed.
	listB, err = co.List(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, listB, 1)
}

func TestListOrdersByRecentActivity(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	co := New(store, nil)
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	convBob, _, err := co.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)
	convCarol, _, err := co.GetOrCreate(ctx, alice, carol, nil)
	require.NoError(t, err)

	_, err = co.Send(ctx, convBob.ID, bob, "first")
	require.NoError(t, err)
	// Force a strictly later activity timestamp.
	later := time.Now().UTC().Add(time.Minute)
	require.NoError(t, store.TouchConversation(ctx, convCarol.ID, "second", later))

	list, err := co.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, convCarol.ID, list[0].ID)
	assert.Equal(t, convBob.ID, list[1].ID)
}

func TestMessagesMarksWindowRead(t *testing.T) {
	ctx := context.Background()
	co := New(newMemStore(), nil)
	alice := uuid.New()
	bob := uuid.New()

	conv, _, err := co.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)
	_, err = co.Send(ctx, conv.ID, alice, "ping")
	require.NoError(t, err)

	msgs, err := co.Messages(ctx, conv.ID, bob, nil, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "ping", msgs[0].Text)

	list, err := co.List(ctx, bob)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].UnreadCount)
}

func TestSendNotifiesOtherParticipant(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	co := New(newMemStore(), notifier)
	alice := uuid.New()
	bob := uuid.New()

	conv, _, err := co.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)
	_, err = co.Send(ctx, conv.ID, alice, "hi")
	require.NoError(t, err)

	require.Len(t, notifier.updated, 1)
	assert.Equal(t, bob, notifier.updated[0])
}

func TestSpawnTradeConversation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	co := New(store, nil)
	alice := uuid.New()
	bob := uuid.New()
	tradeID := uuid.New()

	conv, err := co.SpawnTradeConversation(ctx, alice, bob, tradeID, `Trade accepted: "Bike" for "Guitar"`)
	require.NoError(t, err)
	require.NotNil(t, conv.TradeRequestID)
	assert.Equal(t, tradeID, *conv.TradeRequestID)

	msgs, err := co.Messages(ctx, conv.ID, alice, nil, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Bike")
	assert.Contains(t, msgs[0].Text, "Guitar")
	assert.Equal(t, alice, msgs[0].SenderID)

	// Re-accepting an already-spawned trade reuses the conversation.
	again, err := co.SpawnTradeConversation(ctx, alice, bob, tradeID, "Trade accepted")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)
}
