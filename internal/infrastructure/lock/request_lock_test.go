package lock

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequestLock(client *redis.Client) *RequestLock {
	l := NewRequestLock(client, time.Minute)
	n := 0
	l.newToken = func() string {
		n++
		return fmt.Sprintf("token-%d", n)
	}
	return l
}

func TestRequestLock_Acquire(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := newTestRequestLock(db)
	ctx := context.Background()

	t.Run("first submission", func(t *testing.T) {
		mock.ExpectSetNX("point:req:req-1", "token-1", time.Minute).SetVal(true)

		token, err := l.Acquire(ctx, "req-1")
		assert.NoError(t, err)
		assert.Equal(t, "token-1", token)
	})

	t.Run("duplicate submission", func(t *testing.T) {
		mock.ExpectSetNX("point:req:req-1", "token-2", time.Minute).SetVal(false)

		token, err := l.Acquire(ctx, "req-1")
		assert.ErrorIs(t, err, ErrDuplicateRequest)
		assert.Empty(t, token)
	})

	t.Run("redis error", func(t *testing.T) {
		mock.ExpectSetNX("point:req:req-2", "token-3", time.Minute).SetErr(errors.New("connection refused"))

		token, err := l.Acquire(ctx, "req-2")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrDuplicateRequest)
		assert.Empty(t, token)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestLock_Release(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := newTestRequestLock(db)
	ctx := context.Background()

	mock.ExpectEval(releaseScript, []string{"point:req:req-1"}, "token-1").SetVal(int64(1))
	assert.NoError(t, l.Release(ctx, "req-1", "token-1"))

	mock.ExpectEval(releaseScript, []string{"point:req:req-2"}, "token-2").SetErr(errors.New("timeout"))
	assert.Error(t, l.Release(ctx, "req-2", "token-2"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestLock_StaleReleaseKeepsNewHold(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := newTestRequestLock(db)
	ctx := context.Background()

	// A 占位后过期，C 用同一个 ID 重新占位
	mock.ExpectSetNX("point:req:req-1", "token-1", time.Minute).SetVal(true)
	first, err := l.Acquire(ctx, "req-1")
	require.NoError(t, err)

	mock.ExpectSetNX("point:req:req-1", "token-2", time.Minute).SetVal(true)
	second, err := l.Acquire(ctx, "req-1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// A 释放时带的是自己的 token，脚本不会删除 C 的占位
	mock.ExpectEval(releaseScript, []string{"point:req:req-1"}, "token-1").SetVal(int64(0))
	assert.NoError(t, l.Release(ctx, "req-1", first))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestLock_TokensAreUnique(t *testing.T) {
	l := NewRequestLock(nil, time.Minute)
	assert.NotEqual(t, l.newToken(), l.newToken())
}
