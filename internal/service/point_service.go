package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"pointsystem/internal/infrastructure/lock"
	"pointsystem/internal/model"
	"pointsystem/internal/repository"
	"pointsystem/pkg/idgen"

	"github.com/sirupsen/logrus"
)

// PointService 积分账本
//
// 充值/使用的 读取 -> 校验 -> 写余额 -> 写流水 在同一把用户锁内完成，
// 查询不加锁，返回的是某一时刻的快照。
type PointService struct {
	pointRepo   repository.UserPointRepository
	historyRepo repository.PointHistoryRepository
	outboxRepo  repository.OutboxRepository
	locker      *lock.KeyedLocker
	eventTopic  string
	now         func() time.Time
}

type Option func(*PointService)

// WithOutbox 每笔成功的变更额外写一条待投递的积分事件
func WithOutbox(repo repository.OutboxRepository, topic string) Option {
	return func(s *PointService) {
		s.outboxRepo = repo
		s.eventTopic = topic
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *PointService) { s.now = now }
}

func NewPointService(
	pointRepo repository.UserPointRepository,
	historyRepo repository.PointHistoryRepository,
	locker *lock.KeyedLocker,
	opts ...Option,
) *PointService {
	s := &PointService{
		pointRepo:   pointRepo,
		historyRepo: historyRepo,
		locker:      locker,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PointService) GetPoint(ctx context.Context, userID int64) (*model.UserPoint, error) {
	return s.pointRepo.FindByUserID(ctx, userID)
}

func (s *PointService) GetHistories(ctx context.Context, userID int64) ([]*model.PointHistory, error) {
	return s.historyRepo.FindAllByUserID(ctx, userID)
}

func (s *PointService) Charge(ctx context.Context, userID int64, amount int64) (*model.UserPoint, error) {
	return s.apply(ctx, userID, amount, model.TransactionTypeCharge)
}

func (s *PointService) Use(ctx context.Context, userID int64, amount int64) (*model.UserPoint, error) {
	return s.apply(ctx, userID, amount, model.TransactionTypeUse)
}

func (s *PointService) apply(ctx context.Context, userID int64, amount int64, txType model.TransactionType) (*model.UserPoint, error) {
	log := logrus.WithFields(logrus.Fields{
		"component": "PointService",
		"user_id":   userID,
		"type":      txType,
		"amount":    amount,
	})

	if amount <= 0 {
		log.Info("积分数量不合法")
		return nil, model.ErrInvalidAmount
	}

	var (
		updated *model.UserPoint
		history *model.PointHistory
	)
	err := s.locker.WithLock(ctx, userID, func() error {
		// 拿到锁之后必须完整执行，不能因为客户端断开把余额和流水拆开
		ctx := context.WithoutCancel(ctx)

		current, err := s.pointRepo.FindByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("查询用户积分失败: %w", err)
		}

		next, err := current.Apply(txType, amount)
		if err != nil {
			return err
		}

		// 本地时钟回拨时沿用上一次的时间，保证更新时间不倒退
		committedAt := s.now()
		if committedAt.Before(current.UpdatedAt) {
			committedAt = current.UpdatedAt
		}

		updated, err = s.pointRepo.Replace(ctx, userID, next, committedAt)
		if err != nil {
			return fmt.Errorf("更新用户积分失败: %w", err)
		}

		history, err = s.historyRepo.Append(ctx, userID, amount, txType, committedAt)
		if err != nil {
			return fmt.Errorf("记录积分流水失败: %w", err)
		}

		s.publishEvent(ctx, updated, history)
		return nil
	})
	if err != nil {
		if kind, ok := model.KindOf(err); ok {
			log.WithField("kind", kind).Info("积分变更被拒绝")
		} else {
			log.WithError(err).Error("积分变更失败")
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"history_id": history.ID,
		"point":      updated.Point,
	}).Info("积分变更成功")

	return updated, nil
}

// publishEvent 写入发件箱，由 OutboxSender 异步投递到 Kafka
// 事件只是通知，写入失败不影响已提交的积分变更
func (s *PointService) publishEvent(ctx context.Context, point *model.UserPoint, history *model.PointHistory) {
	if s.outboxRepo == nil {
		return
	}

	event := model.PointEvent{
		EventID:   idgen.GenerateEventNo(),
		HistoryID: history.ID,
		UserID:    history.UserID,
		Type:      history.Type,
		Amount:    history.Amount,
		Point:     point.Point,
		CreatedAt: history.CreatedAt.Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"component": "PointService", "history_id": history.ID}).Error("序列化积分事件失败")
		return
	}

	msg := &model.OutboxMessage{
		MessageKey: strconv.FormatInt(history.UserID, 10),
		Topic:      s.eventTopic,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, msg); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"component": "PointService", "history_id": history.ID}).Error("写入积分事件失败")
	}
}
