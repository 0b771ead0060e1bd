package repository

import "errors"

var ErrOutboxMessageNotFound = errors.New("消息不存在")
