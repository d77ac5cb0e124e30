package invitations

import (
	"context"
	"testing"

	"github.com/inviterd-io/inviterd/internal/database"
	"github.com/inviterd-io/inviterd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) (*gorm.DB, *zap.SugaredLogger) {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	db, err := database.NewTestDatabase(logger)
	require.NoError(t, err)
	return db, logger
}

func TestStoreInsertDuplicate(t *testing.T) {
	db, logger := newTestDB(t)
	store := NewStore(logger, db)
	ctx := context.Background()

	inv, err := store.Insert(ctx, "abc123def456", 1)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, inv.Status)
	assert.Nil(t, inv.InvitedID)
	assert.False(t, inv.CreatedAt.IsZero())

	_, err = store.Insert(ctx, "abc123def456", 2)
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestStoreGetByCode(t *testing.T) {
	db, logger := newTestDB(t)
	store := NewStore(logger, db)
	ctx := context.Background()

	_, err := store.GetByCode(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Insert(ctx, "abc123def456", 1)
	require.NoError(t, err)

	inv, err := store.GetByCode(ctx, "abc123def456")
	require.NoError(t, err)
	assert.Equal(t, int64(1), inv.InviterID)
	assert.Equal(t, models.InvitationPending, inv.Status)
}

func TestStoreTransitionToCompleted(t *testing.T) {
	db, logger := newTestDB(t)
	store := NewStore(logger, db)
	ctx := context.Background()

	_, err := store.Insert(ctx, "abc123def456", 1)
	require.NoError(t, err)

	won, err := store.TransitionToCompleted(ctx, "abc123def456", 2)
	require.NoError(t, err)
	require.True(t, won)

	inv, err := store.GetByCode(ctx, "abc123def456")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationCompleted, inv.Status)
	require.NotNil(t, inv.InvitedID)
	assert.Equal(t, int64(2), *inv.InvitedID)
	require.NotNil(t, inv.CompletedAt)

	// second transition must be a no-op, whoever attempts it
	won, err = store.TransitionToCompleted(ctx, "abc123def456", 3)
	require.NoError(t, err)
	require.False(t, won)

	inv, err = store.GetByCode(ctx, "abc123def456")
	require.NoError(t, err)
	assert.Equal(t, int64(2), *inv.InvitedID)
}

func TestStoreTransitionUnknownCode(t *testing.T) {
	db, logger := newTestDB(t)
	store := NewStore(logger, db)

	won, err := store.TransitionToCompleted(context.Background(), "nope", 2)
	require.NoError(t, err)
	require.False(t, won)
}

func TestStoreCountCompleted(t *testing.T) {
	db, logger := newTestDB(t)
	store := NewStore(logger, db)
	ctx := context.Background()

	count, err := store.CountCompleted(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = store.Insert(ctx, "code-one", 1)
	require.NoError(t, err)
	_, err = store.Insert(ctx, "code-two", 1)
	require.NoError(t, err)
	_, err = store.Insert(ctx, "code-other", 9)
	require.NoError(t, err)

	// pending invitations do not count
	count, err = store.CountCompleted(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = store.TransitionToCompleted(ctx, "code-one", 2)
	require.NoError(t, err)
	_, err = store.TransitionToCompleted(ctx, "code-two", 3)
	require.NoError(t, err)
	_, err = store.TransitionToCompleted(ctx, "code-other", 2)
	require.NoError(t, err)

	count, err = store.CountCompleted(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
