package repository

import (
	"context"
	"testing"

	"pointsystem/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryOutboxRepository(t *testing.T) {
	repo := NewMemoryOutboxRepository()
	ctx := context.Background()

	first := &model.OutboxMessage{MessageKey: "1", Topic: "point_event", Payload: `{"n":1}`}
	second := &model.OutboxMessage{MessageKey: "2", Topic: "point_event", Payload: `{"n":2}`}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	assert.NotZero(t, first.ID)
	assert.Equal(t, model.OutboxStatusPending, first.Status)

	t.Run("pending in creation order with limit", func(t *testing.T) {
		pending, err := repo.GetPendingMessages(ctx, 1)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, first.ID, pending[0].ID)
	})

	t.Run("retry and fail", func(t *testing.T) {
		require.NoError(t, repo.IncrementRetryCount(ctx, second.ID))
		require.NoError(t, repo.MarkAsFailed(ctx, second.ID))

		failed, err := repo.GetFailedMessages(ctx, 10)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, 1, failed[0].RetryCount)
	})

	t.Run("purge sent", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, first.ID, model.OutboxStatusSent))

		purged, err := repo.PurgeSent(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, purged)

		pending, _ := repo.GetPendingMessages(ctx, 10)
		assert.Empty(t, pending)
		failed, _ := repo.GetFailedMessages(ctx, 10)
		assert.Len(t, failed, 1)
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.ErrorIs(t, repo.UpdateStatus(ctx, -1, model.OutboxStatusSent), ErrOutboxMessageNotFound)
	})
}
