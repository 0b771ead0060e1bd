package job

import (
	"context"
	"time"

	"pointsystem/internal/infrastructure/lock"
	"pointsystem/internal/model"
	"pointsystem/internal/repository"

	"github.com/sirupsen/logrus"
)

// ReconcileJob 定期用流水重放余额，校验账本一致性
//
// 对每个用户在其锁内：
//   1. 从 0 开始按顺序累加流水，任何时刻都应落在 [0, MaxPoint]
//   2. 累加结果应等于当前余额
type ReconcileJob struct {
	pointRepo   repository.UserPointRepository
	historyRepo repository.PointHistoryRepository
	locker      *lock.KeyedLocker
	stopCh      chan struct{}
	interval    time.Duration
	log         *logrus.Entry
}

// Mismatch 对账不一致的用户
type Mismatch struct {
	UserID      int64
	Point       int64 // 账户余额
	Replayed    int64 // 流水重放结果
	OutOfBounds bool  // 重放过程中越界
}

func NewReconcileJob(pointRepo repository.UserPointRepository, historyRepo repository.PointHistoryRepository, locker *lock.KeyedLocker, interval time.Duration) *ReconcileJob {
	return &ReconcileJob{
		pointRepo:   pointRepo,
		historyRepo: historyRepo,
		locker:      locker,
		stopCh:      make(chan struct{}),
		interval:    interval,
		log:         logrus.WithField("component", "ReconcileJob"),
	}
}

func (j *ReconcileJob) Start(ctx context.Context) {
	j.log.Info("对账任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("收到停止信号，任务退出")
			return
		case <-j.stopCh:
			j.log.Info("任务停止")
			return
		case <-ticker.C:
			j.reconcile(ctx)
		}
	}
}

func (j *ReconcileJob) Stop() {
	close(j.stopCh)
}

func (j *ReconcileJob) reconcile(ctx context.Context) []Mismatch {
	userIDs, err := j.pointRepo.ListUserIDs(ctx)
	if err != nil {
		j.log.WithError(err).Error("查询用户列表失败")
		return nil
	}

	var mismatches []Mismatch
	for _, userID := range userIDs {
		var (
			m  Mismatch
			ok bool
		)
		err := j.locker.WithLock(ctx, userID, func() error {
			var err error
			m, ok, err = j.check(ctx, userID)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return mismatches
			}
			j.log.WithError(err).WithField("user_id", userID).Error("对账失败")
			continue
		}
		if !ok {
			j.log.WithFields(logrus.Fields{
				"user_id":       userID,
				"point":         m.Point,
				"replayed":      m.Replayed,
				"out_of_bounds": m.OutOfBounds,
			}).Error("账本不一致")
			mismatches = append(mismatches, m)
		}
	}

	if len(mismatches) == 0 {
		j.log.WithField("users", len(userIDs)).Debug("对账完成")
	}
	return mismatches
}

func (j *ReconcileJob) check(ctx context.Context, userID int64) (Mismatch, bool, error) {
	point, err := j.pointRepo.FindByUserID(ctx, userID)
	if err != nil {
		return Mismatch{}, false, err
	}
	histories, err := j.historyRepo.FindAllByUserID(ctx, userID)
	if err != nil {
		return Mismatch{}, false, err
	}

	m := Mismatch{UserID: userID, Point: point.Point}
	for _, h := range histories {
		m.Replayed += h.SignedAmount()
		if m.Replayed < 0 || m.Replayed > model.MaxPoint {
			m.OutOfBounds = true
		}
	}
	return m, !m.OutOfBounds && m.Replayed == m.Point, nil
}
