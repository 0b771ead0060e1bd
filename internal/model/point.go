package model

import (
	"time"
)

// MaxPoint 单个用户可持有的积分上限
const MaxPoint int64 = 1_000_000_000

// UserPoint 用户积分账户
// 余额始终落在 [0, MaxPoint] 区间内，只能通过充值/使用变更
type UserPoint struct {
	ID        int64     `json:"id"`         // 用户ID，业务方传入
	Point     int64     `json:"point"`      // 当前积分
	UpdatedAt time.Time `json:"updated_at"` // 最近一次变更时间
}

func (p UserPoint) UpdateMillis() int64 {
	return p.UpdatedAt.UnixMilli()
}

// Increase 计算充值后的余额，不修改 p 本身
func (p UserPoint) Increase(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	// 用减法比较，避免 p.Point+amount 溢出
	if amount > MaxPoint-p.Point {
		return 0, ErrExceedMaxPoint
	}
	return p.Point + amount, nil
}

// Deduct 计算扣减后的余额，不修改 p 本身
func (p UserPoint) Deduct(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if p.Point < amount {
		return 0, ErrInsufficientPoint
	}
	return p.Point - amount, nil
}

// Apply 按交易类型计算新余额
func (p UserPoint) Apply(txType TransactionType, amount int64) (int64, error) {
	if !txType.Valid() {
		return 0, ErrUnknownTransactionType
	}
	switch txType {
	case TransactionTypeCharge:
		return p.Increase(amount)
	case TransactionTypeUse:
		return p.Deduct(amount)
	default:
		return 0, ErrUnknownTransactionType
	}
}
