package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"pointsystem/internal/model"
)

// UserPointRepository 用户积分账户存储
//
// Replace 是无条件覆盖，不做任何并发控制，
// 调用方必须先持有该用户的锁（见 lock.KeyedLocker）。
type UserPointRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*model.UserPoint, error)
	Replace(ctx context.Context, userID int64, point int64, updatedAt time.Time) (*model.UserPoint, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// MemoryUserPointRepository 进程内的积分账户表，进程启动时为空，不落盘
type MemoryUserPointRepository struct {
	mu     sync.RWMutex
	points map[int64]model.UserPoint
	now    func() time.Time
}

func NewMemoryUserPointRepository() *MemoryUserPointRepository {
	return &MemoryUserPointRepository{
		points: make(map[int64]model.UserPoint),
		now:    time.Now,
	}
}

// FindByUserID 未出现过的用户视为余额为 0 的账户
func (r *MemoryUserPointRepository) FindByUserID(ctx context.Context, userID int64) (*model.UserPoint, error) {
	r.mu.RLock()
	point, ok := r.points[userID]
	r.mu.RUnlock()

	if !ok {
		return &model.UserPoint{ID: userID, Point: 0, UpdatedAt: r.now()}, nil
	}
	return &point, nil
}

func (r *MemoryUserPointRepository) Replace(ctx context.Context, userID int64, point int64, updatedAt time.Time) (*model.UserPoint, error) {
	up := model.UserPoint{
		ID:        userID,
		Point:     point,
		UpdatedAt: updatedAt,
	}

	r.mu.Lock()
	r.points[userID] = up
	r.mu.Unlock()

	return &up, nil
}

func (r *MemoryUserPointRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.points))
	for id := range r.points {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
