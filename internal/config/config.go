package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port                   int   `mapstructure:"port"`
	WorkerID               int64 `mapstructure:"worker_id"` // 雪花算法机器ID
	ShutdownTimeoutSeconds int   `mapstructure:"shutdown_timeout_seconds"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text 或 json
}

type RedisConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Password          string `mapstructure:"password"`
	DB                int    `mapstructure:"db"`
	RequestTTLSeconds int    `mapstructure:"request_ttl_seconds"` // 防重占位的保留时间
}

type KafkaConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	PointEvent string `mapstructure:"point_event"`
}

type BusinessConfig struct {
	OutboxIntervalMs         int `mapstructure:"outbox_interval_ms"`
	OutboxBatchSize          int `mapstructure:"outbox_batch_size"`
	MaxRetryCount            int `mapstructure:"max_retry_count"`
	ReconcileIntervalSeconds int `mapstructure:"reconcile_interval_seconds"` // 0 表示不启动对账任务
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c RedisConfig) RequestTTL() time.Duration {
	return time.Duration(c.RequestTTLSeconds) * time.Second
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

func (c BusinessConfig) OutboxInterval() time.Duration {
	return time.Duration(c.OutboxIntervalMs) * time.Millisecond
}

func (c BusinessConfig) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.worker_id", 1)
	v.SetDefault("server.shutdown_timeout_seconds", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.request_ttl_seconds", 600)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic.point_event", "point_event")

	v.SetDefault("business.outbox_interval_ms", 100)
	v.SetDefault("business.outbox_batch_size", 100)
	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.reconcile_interval_seconds", 60)
}

// Load 读取配置文件，环境变量 POINT_XXX_YYY 覆盖 xxx.yyy
// configPath 为空时只使用默认值和环境变量
func Load(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("POINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig 加载配置，失败直接退出进程
func LoadConfig(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		logrus.Fatalf("加载配置失败: %v", err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port 不合法: %d", c.Server.Port)
	}
	if c.Server.WorkerID < 0 || c.Server.WorkerID > 1023 {
		return fmt.Errorf("server.worker_id 必须在 0-1023 之间: %d", c.Server.WorkerID)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers 不能为空")
	}
	if c.Kafka.Enabled && c.Business.OutboxIntervalMs <= 0 {
		return fmt.Errorf("business.outbox_interval_ms 必须大于0")
	}
	if c.Redis.Enabled && c.Redis.RequestTTLSeconds <= 0 {
		return fmt.Errorf("redis.request_ttl_seconds 必须大于0")
	}
	if c.Business.OutboxBatchSize <= 0 {
		return fmt.Errorf("business.outbox_batch_size 必须大于0")
	}
	if c.Business.MaxRetryCount <= 0 {
		return fmt.Errorf("business.max_retry_count 必须大于0")
	}
	if c.Business.ReconcileIntervalSeconds < 0 {
		return fmt.Errorf("business.reconcile_interval_seconds 不能为负数")
	}
	return nil
}
