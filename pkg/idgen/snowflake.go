package idgen

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/sirupsen/logrus"
)

// ============================================================================
// 雪花算法 ID 生成器
// ============================================================================
//
// 流水ID、事件ID 都从这里取，要求：
//   1. 全局唯一
//   2. 单节点内严格递增（流水按 ID 即可还原写入顺序）
//
// 结构：41位时间戳 - 10位机器ID - 12位序列号，由 bwmarrin/snowflake 实现
//
// ============================================================================

const defaultWorkerID = 1

var (
	defaultNode *snowflake.Node
	once        sync.Once
)

// Init 初始化默认ID生成器，只有第一次调用生效
func Init(workerID int64) {
	once.Do(func() {
		node, err := snowflake.NewNode(workerID)
		if err != nil {
			logrus.Fatalf("初始化ID生成器失败, workerID=%d: %v", workerID, err)
		}
		defaultNode = node
	})
}

// NextID 生成下一个ID
func NextID() int64 {
	Init(defaultWorkerID)
	return defaultNode.Generate().Int64()
}

// GenerateEventNo 生成积分事件号
// 格式：PNT + 雪花ID，例如 PNT1746033187630211072
func GenerateEventNo() string {
	return fmt.Sprintf("PNT%d", NextID())
}
