package repository

import (
	"context"
	"sync"
	"time"

	"pointsystem/internal/model"
	"pointsystem/pkg/idgen"
)

// PointHistoryRepository 积分流水存储，只追加
type PointHistoryRepository interface {
	Append(ctx context.Context, userID int64, amount int64, txType model.TransactionType, createdAt time.Time) (*model.PointHistory, error)
	FindAllByUserID(ctx context.Context, userID int64) ([]*model.PointHistory, error)
}

type MemoryPointHistoryRepository struct {
	mu        sync.RWMutex
	histories map[int64][]model.PointHistory
	nextID    func() int64
}

func NewMemoryPointHistoryRepository() *MemoryPointHistoryRepository {
	return &MemoryPointHistoryRepository{
		histories: make(map[int64][]model.PointHistory),
		nextID:    idgen.NextID,
	}
}

func (r *MemoryPointHistoryRepository) Append(ctx context.Context, userID int64, amount int64, txType model.TransactionType, createdAt time.Time) (*model.PointHistory, error) {
	if !txType.Valid() {
		return nil, model.ErrUnknownTransactionType
	}
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	h := model.PointHistory{
		ID:        r.nextID(),
		UserID:    userID,
		Type:      txType,
		Amount:    amount,
		CreatedAt: createdAt,
	}
	r.histories[userID] = append(r.histories[userID], h)

	return &h, nil
}

// FindAllByUserID 按写入顺序返回，没有流水时返回空切片
func (r *MemoryPointHistoryRepository) FindAllByUserID(ctx context.Context, userID int64) ([]*model.PointHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.histories[userID]
	result := make([]*model.PointHistory, 0, len(stored))
	for i := range stored {
		h := stored[i]
		result = append(result, &h)
	}
	return result, nil
}
