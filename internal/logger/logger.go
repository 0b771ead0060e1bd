package logger

import (
	"os"
	"strings"

	"pointsystem/internal/config"

	"github.com/sirupsen/logrus"
)

// Init 按配置设置全局 logrus 的级别和输出格式
func Init(cfg *config.LogConfig) {
	logrus.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("未知的日志级别 %q，使用 info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
