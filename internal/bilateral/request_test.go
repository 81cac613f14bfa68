package bilateral

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barterly/barter-api/internal/apperrors"
)

func TestValidateCreate(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	require.NoError(t, ValidateCreate(alice, bob))

	err := ValidateCreate(alice, alice)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	err = ValidateCreate(uuid.Nil, bob)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestCanRespond(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()
	decisions := []string{"accepted", "declined"}

	pending := Request{Requester: alice, Addressee: bob, Status: StatusPending}

	t.Run("addressee may respond", func(t *testing.T) {
		assert.NoError(t, CanRespond(pending, bob, "accepted", decisions))
		assert.NoError(t, CanRespond(pending, bob, "declined", decisions))
	})

	t.Run("requester may not respond", func(t *testing.T) {
		err := CanRespond(pending, alice, "accepted", decisions)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))
	})

	t.Run("third party may not respond", func(t *testing.T) {
		err := CanRespond(pending, carol, "declined", decisions)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(err))
	})

	t.Run("unknown decision rejected", func(t *testing.T) {
		err := CanRespond(pending, bob, "blocked", decisions)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("settled requests are final", func(t *testing.T) {
		for _, status := range []string{"accepted", "declined", "completed"} {
			settled := Request{Requester: alice, Addressee: bob, Status: status}
			err := CanRespond(settled, bob, "accepted", decisions)
			require.Error(t, err, status)
			assert.Equal(t, apperrors.KindStateConflict, apperrors.KindOf(err))
		}
	})
}
