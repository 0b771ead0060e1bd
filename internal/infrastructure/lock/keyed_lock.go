package lock

import (
	"context"
	"sync"
)

// ============================================================================
// 按用户维度的进程内锁
// ============================================================================
//
// 同一用户的充值/使用必须串行执行，否则：
//   goroutine1: 查询余额=100 -> 扣减100 -> 写入0
//   goroutine2: 查询余额=100 -> 扣减100 -> 写入0   少扣了一次！
//
// 每个用户一把锁，第一次使用时创建，之后一直复用。不同用户的锁互不影响。
//
// 锁本身是容量为 1 的 channel：
//   - 放入元素即加锁，取出即解锁
//   - 可以和 ctx.Done() 一起 select，等待过程可取消，且不会泄漏锁
//
// ============================================================================

// KeyedLocker 用户锁注册表
type KeyedLocker struct {
	locks sync.Map // int64 -> chan struct{}
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{}
}

// get 获取或创建用户锁
// LoadOrStore 保证并发首次创建时所有调用方拿到同一把锁
func (l *KeyedLocker) get(userID int64) chan struct{} {
	if v, ok := l.locks.Load(userID); ok {
		return v.(chan struct{})
	}
	v, _ := l.locks.LoadOrStore(userID, make(chan struct{}, 1))
	return v.(chan struct{})
}

// WithLock 持有 userID 的锁执行 fn
//
// 等待锁期间 ctx 被取消则直接返回 ctx.Err()，fn 不会执行。
// 拿到锁之后 fn 一定完整执行，无论 fn 返回错误还是 panic 都会释放锁。
// 不可重入：fn 内不能再对同一 userID 调用 WithLock。
func (l *KeyedLocker) WithLock(ctx context.Context, userID int64, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mu := l.get(userID)
	select {
	case mu <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-mu }()

	return fn()
}

// Size 已创建的锁数量
func (l *KeyedLocker) Size() int {
	n := 0
	l.locks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
