package model

import (
	"errors"
)

// ErrorKind 业务规则校验失败的类别
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION"
	KindOverLimit           ErrorKind = "OVER_LIMIT"
	KindInsufficientBalance ErrorKind = "INSUFFICIENT_BALANCE"
)

// PointError 积分业务错误，出现时账户与流水均未发生任何变更
type PointError struct {
	Kind    ErrorKind
	Message string
}

func (e *PointError) Error() string {
	return e.Message
}

var (
	ErrInvalidAmount          = &PointError{Kind: KindValidation, Message: "积分数量必须大于0"}
	ErrUnknownTransactionType = &PointError{Kind: KindValidation, Message: "未知的交易类型"}
	ErrExceedMaxPoint         = &PointError{Kind: KindOverLimit, Message: "积分超出上限，无法继续充值"}
	ErrInsufficientPoint      = &PointError{Kind: KindInsufficientBalance, Message: "积分不足"}
)

// KindOf 取出错误链中的业务错误类别
func KindOf(err error) (ErrorKind, bool) {
	var pe *PointError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
