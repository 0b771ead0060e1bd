package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage 待投递到 Kafka 的积分事件
type OutboxMessage struct {
	ID         int64     `json:"id"`
	MessageKey string    `json:"message_key"` // 用户ID，保证同一用户的事件落在同一分区
	Topic      string    `json:"topic"`
	Payload    string    `json:"payload"`
	Status     string    `json:"status"`
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PointEvent 积分变动事件，序列化后作为 OutboxMessage.Payload
type PointEvent struct {
	EventID   string          `json:"event_id"`
	HistoryID int64           `json:"history_id"`
	UserID    int64           `json:"user_id"`
	Type      TransactionType `json:"type"`
	Amount    int64           `json:"amount"`
	Point     int64           `json:"point"` // 变动后余额
	CreatedAt string          `json:"created_at"`
}
