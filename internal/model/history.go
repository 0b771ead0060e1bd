package model

import (
	"time"
)

// TransactionType 积分流水类型
type TransactionType string

const (
	TransactionTypeCharge TransactionType = "CHARGE" // 充值
	TransactionTypeUse    TransactionType = "USE"    // 使用
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeCharge || t == TransactionTypeUse
}

// PointHistory 积分流水
//
// 只追加，不修改，不删除。每笔成功的充值/使用恰好对应一条流水，
// 与账户余额在同一把用户锁内写入。
type PointHistory struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Type      TransactionType `json:"type"`
	Amount    int64           `json:"amount"` // 始终为正数，方向由 Type 决定
	CreatedAt time.Time       `json:"created_at"`
}

func (h PointHistory) TimeMillis() int64 {
	return h.CreatedAt.UnixMilli()
}

// SignedAmount 返回带方向的变动数额，充值为正，使用为负
func (h PointHistory) SignedAmount() int64 {
	if h.Type == TransactionTypeUse {
		return -h.Amount
	}
	return h.Amount
}
