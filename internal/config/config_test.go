package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  worker_id: 7
log:
  level: debug
  format: json
redis:
  enabled: true
  host: redis.local
  port: 6380
  request_ttl_seconds: 30
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  topic:
    point_event: point_event_test
business:
  outbox_batch_size: 10
  max_retry_count: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(7), cfg.Server.WorkerID)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.local:6380", cfg.Redis.Addr())
	assert.Equal(t, 30*time.Second, cfg.Redis.RequestTTL())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "point_event_test", cfg.Kafka.Topic.PointEvent)
	assert.Equal(t, 10, cfg.Business.OutboxBatchSize)
	assert.Equal(t, 3, cfg.Business.MaxRetryCount)

	// 未配置的项取默认值
	assert.Equal(t, 100*time.Millisecond, cfg.Business.OutboxInterval())
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "point_event", cfg.Kafka.Topic.PointEvent)
	assert.Equal(t, time.Minute, cfg.Business.ReconcileInterval())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("POINT_SERVER_PORT", "18080")
	t.Setenv("POINT_REDIS_ENABLED", "true")

	path := writeConfig(t, "server:\n  port: 9090\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 18080, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad worker id", func(t *testing.T) {
		path := writeConfig(t, "server:\n  worker_id: 5000\n")
		_, err := Load(path)
		assert.ErrorContains(t, err, "worker_id")
	})

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "zero outbox interval with kafka",
			env:     map[string]string{"POINT_KAFKA_ENABLED": "true", "POINT_BUSINESS_OUTBOX_INTERVAL_MS": "0"},
			wantErr: "outbox_interval_ms",
		},
		{
			name:    "zero request ttl with redis",
			env:     map[string]string{"POINT_REDIS_ENABLED": "true", "POINT_REDIS_REQUEST_TTL_SECONDS": "0"},
			wantErr: "request_ttl_seconds",
		},
		{
			name:    "zero max retry",
			env:     map[string]string{"POINT_BUSINESS_MAX_RETRY_COUNT": "0"},
			wantErr: "max_retry_count",
		},
		{
			name:    "negative reconcile interval",
			env:     map[string]string{"POINT_BUSINESS_RECONCILE_INTERVAL_SECONDS": "-1"},
			wantErr: "reconcile_interval_seconds",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	t.Run("zero outbox interval without kafka", func(t *testing.T) {
		t.Setenv("POINT_BUSINESS_OUTBOX_INTERVAL_MS", "0")
		_, err := Load("")
		assert.NoError(t, err)
	})
}
