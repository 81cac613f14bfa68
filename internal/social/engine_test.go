package social

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

// memSocialStore is an in-memory Store for exercising the engine.
type memSocialStore struct {
	friendships map[uuid.UUID]*models.Friendship
}

func newMemSocialStore() *memSocialStore {
	return &memSocialStore{friendships: make(map[uuid.UUID]*models.Friendship)}
}

func (m *memSocialStore) FriendshipByID(_ context.Context, id uuid.UUID) (*models.Friendship, error) {
	f, ok := m.friendships[id]
	if !ok {
		return nil, apperrors.NotFound("friend request not found")
	}
	copied := *f
	return &copied, nil
}

func (m *memSocialStore) ConnectionExists(_ context.Context, a, b uuid.UUID) (bool, error) {
	for _, f := range m.friendships {
		samePair := (f.RequesterID == a && f.AddresseeID == b) || (f.RequesterID == b && f.AddresseeID == a)
		if samePair && models.FriendshipConnects(f.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memSocialStore) InsertFriendship(_ context.Context, f *models.Friendship) error {
	copied := *f
	m.friendships[f.ID] = &copied
	return nil
}

func (m *memSocialStore) SetFriendshipStatus(_ context.Context, id uuid.UUID, status string, at time.Time) error {
	if f, ok := m.friendships[id]; ok {
		f.Status = status
		t := at
		f.RespondedAt = &t
	}
	return nil
}

func TestRequestProducesPending(t *testing.T) {
	engine := NewEngine(newMemSocialStore(), nil)
	alice := uuid.New()
	bob := uuid.New()

	f, err := engine.Request(context.Background(), alice, bob)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipStatusPending, f.Status)
}

func TestRequestRejectsSelfAndExistingConnection(t *testing.T) {
	store := newMemSocialStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	_, err := engine.Request(ctx, alice, alice)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = engine.Request(ctx, alice, bob)
	require.NoError(t, err)

	// A pending request blocks new ones in both directions.
	_, err = engine.Request(ctx, alice, bob)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))

	_, err = engine.Request(ctx, bob, alice)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))
}

func TestDeclinedFriendshipAllowsNewRequest(t *testing.T) {
	store := newMemSocialStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	f, err := engine.Request(ctx, alice, bob)
	require.NoError(t, err)

	_, err = engine.Respond(ctx, f.ID, bob, models.FriendshipStatusDeclined)
	require.NoError(t, err)

	// Declined rows do not block a fresh attempt.
	_, err = engine.Request(ctx, bob, alice)
	require.NoError(t, err)
}

func TestRespondRules(t *testing.T) {
	store := newMemSocialStore()
	engine := NewEngine(store, nil)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	f, err := engine.Request(ctx, alice, bob)
	require.NoError(t, err)

	// Only the addressee may answer.
	_, err = engine.Respond(ctx, f.ID, alice, models.FriendshipStatusAccepted)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))

	accepted, err := engine.Respond(ctx, f.ID, bob, models.FriendshipStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)

	// Accepted is final.
	_, err = engine.Respond(ctx, f.ID, bob, models.FriendshipStatusBlocked)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))
}

func TestBlockedIsAValidDecision(t *testing.T) {
	engine := NewEngine(newMemSocialStore(), nil)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	f, err := engine.Request(ctx, alice, bob)
	require.NoError(t, err)

	blocked, err := engine.Respond(ctx, f.ID, bob, models.FriendshipStatusBlocked)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipStatusBlocked, blocked.Status)

	// Blocked still counts as connected.
	_, err = engine.Request(ctx, alice, bob)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))
}
