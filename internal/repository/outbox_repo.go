package repository

import (
	"context"
	"sync"
	"time"

	"pointsystem/internal/model"
	"pointsystem/pkg/idgen"
)

// OutboxRepository 积分事件发件箱
type OutboxRepository interface {
	Create(ctx context.Context, msg *model.OutboxMessage) error
	GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	IncrementRetryCount(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64) error
	GetFailedMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error)
	PurgeSent(ctx context.Context) (int, error)
}

// MemoryOutboxRepository 按写入顺序保存消息
type MemoryOutboxRepository struct {
	mu       sync.Mutex
	messages []*model.OutboxMessage
}

func NewMemoryOutboxRepository() *MemoryOutboxRepository {
	return &MemoryOutboxRepository{}
}

func (r *MemoryOutboxRepository) Create(ctx context.Context, msg *model.OutboxMessage) error {
	now := time.Now()

	stored := *msg
	if stored.ID == 0 {
		stored.ID = idgen.NextID()
	}
	if stored.Status == "" {
		stored.Status = model.OutboxStatusPending
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.mu.Lock()
	r.messages = append(r.messages, &stored)
	r.mu.Unlock()

	msg.ID = stored.ID
	msg.Status = stored.Status
	msg.CreatedAt = now
	msg.UpdatedAt = now
	return nil
}

func (r *MemoryOutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	return r.listByStatus(model.OutboxStatusPending, limit), nil
}

func (r *MemoryOutboxRepository) GetFailedMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	return r.listByStatus(model.OutboxStatusFailed, limit), nil
}

func (r *MemoryOutboxRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.update(id, func(m *model.OutboxMessage) {
		m.Status = status
	})
}

func (r *MemoryOutboxRepository) IncrementRetryCount(ctx context.Context, id int64) error {
	return r.update(id, func(m *model.OutboxMessage) {
		m.RetryCount++
	})
}

func (r *MemoryOutboxRepository) MarkAsFailed(ctx context.Context, id int64) error {
	return r.update(id, func(m *model.OutboxMessage) {
		m.Status = model.OutboxStatusFailed
	})
}

// PurgeSent 清理已发送的消息，返回清理条数
func (r *MemoryOutboxRepository) PurgeSent(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.messages[:0]
	purged := 0
	for _, m := range r.messages {
		if m.Status == model.OutboxStatusSent {
			purged++
			continue
		}
		kept = append(kept, m)
	}
	for i := len(kept); i < len(r.messages); i++ {
		r.messages[i] = nil
	}
	r.messages = kept
	return purged, nil
}

func (r *MemoryOutboxRepository) listByStatus(status string, limit int) []*model.OutboxMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*model.OutboxMessage
	for _, m := range r.messages {
		if limit > 0 && len(result) >= limit {
			break
		}
		if m.Status == status {
			cp := *m
			result = append(result, &cp)
		}
	}
	return result
}

func (r *MemoryOutboxRepository) update(id int64, fn func(m *model.OutboxMessage)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages {
		if m.ID == id {
			fn(m)
			m.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrOutboxMessageNotFound
}
