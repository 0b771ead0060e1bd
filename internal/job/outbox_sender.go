package job

import (
	"context"
	"time"

	"pointsystem/internal/model"
	"pointsystem/internal/repository"

	"github.com/sirupsen/logrus"
)

// MessageSender 消息投递方，mq.Producer 实现了该接口
type MessageSender interface {
	SendMessage(topic, key, value string) error
}

// OutboxSender 把发件箱里的积分事件投递到 Kafka
type OutboxSender struct {
	outboxRepo    repository.OutboxRepository
	sender        MessageSender
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
	maxRetryCount int
	log           *logrus.Entry
}

func NewOutboxSender(outboxRepo repository.OutboxRepository, sender MessageSender, interval time.Duration, batchSize, maxRetryCount int) *OutboxSender {
	return &OutboxSender{
		outboxRepo:    outboxRepo,
		sender:        sender,
		stopCh:        make(chan struct{}),
		interval:      interval,
		batchSize:     batchSize,
		maxRetryCount: maxRetryCount,
		log:           logrus.WithField("component", "OutboxSender"),
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("收到停止信号，任务退出")
			return
		case <-s.stopCh:
			s.log.Info("任务停止")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// processPendingMessages 按写入顺序发送，遇到失败即结束本批次，
// 避免同一用户后面的事件先于前面的事件到达
func (s *OutboxSender) processPendingMessages(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.WithError(err).Error("查询消息失败")
		return 0
	}

	processed := 0
	for _, msg := range messages {
		if !s.sendMessage(ctx, msg) {
			break
		}
		processed++
	}

	if processed > 0 {
		if _, err := s.outboxRepo.PurgeSent(ctx); err != nil {
			s.log.WithError(err).Error("清理已发送消息失败")
		}
	}
	return processed
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	log := s.log.WithFields(logrus.Fields{"id": msg.ID, "topic": msg.Topic, "key": msg.MessageKey})

	err := s.sender.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outboxRepo.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); updateErr != nil {
			log.WithError(updateErr).Error("更新消息状态失败")
		} else {
			log.Debug("消息发送成功")
		}
		return true
	}

	log.WithError(err).Warn("消息发送失败")

	if msg.RetryCount+1 >= s.maxRetryCount {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			log.WithError(err).Error("标记消息失败状态失败")
		} else {
			log.Error("消息超过最大重试次数，标记为失败")
		}
		// 已放弃的消息不再阻塞后续消息
		return true
	}

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		log.WithError(err).Error("增加重试次数失败")
	}
	return false
}
