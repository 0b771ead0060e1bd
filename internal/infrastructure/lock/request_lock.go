package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// 请求防重锁（Redis）
// ============================================================================
//
// 场景：客户端网络抖动，同一笔充值请求提交了两次。
// 客户端为每笔请求生成 X-Request-ID，服务端用它在 Redis 上占位：
//
// 占位：SET point:req:{requestID} {token} NX EX ttl
//   - 第一次提交占位成功，正常执行
//   - TTL 内重复提交占位失败，直接拒绝
//
// 执行失败时释放占位，允许客户端用同一个 ID 重试；
// 执行成功则保留到过期，期间的重复提交都会被拒绝。
//
// 每次占位生成新的 token，释放时用 Lua 脚本原子地"检查+删除"。
// 占位过期后被另一次提交重新占住，旧请求的释放不会删掉新的占位。
//
// ============================================================================

var ErrDuplicateRequest = errors.New("重复请求")

const releaseScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

// RequestLock 基于 Redis 的请求占位
type RequestLock struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	newToken func() string
}

func NewRequestLock(client *redis.Client, ttl time.Duration) *RequestLock {
	return &RequestLock{
		client: client,
		prefix:   "point:req:",
		ttl:      ttl,
		newToken: uuid.NewString,
	}
}

func (l *RequestLock) key(requestID string) string {
	return l.prefix + requestID
}

// Acquire 尝试占位，成功时返回释放所需的 token
// 该请求已被处理或正在处理时返回 ErrDuplicateRequest
func (l *RequestLock) Acquire(ctx context.Context, requestID string) (string, error) {
	token := l.newToken()
	ok, err := l.client.SetNX(ctx, l.key(requestID), token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("请求占位失败: %w", err)
	}
	if !ok {
		return "", ErrDuplicateRequest
	}
	return token, nil
}

// Release 释放占位，token 不匹配时什么也不做
func (l *RequestLock) Release(ctx context.Context, requestID, token string) error {
	_, err := l.client.Eval(ctx, releaseScript, []string{l.key(requestID)}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("释放请求占位失败: %w", err)
	}
	return nil
}
