package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"pointsystem/internal/config"
	"pointsystem/internal/handler"
	"pointsystem/internal/infrastructure/cache"
	"pointsystem/internal/infrastructure/lock"
	"pointsystem/internal/infrastructure/mq"
	"pointsystem/internal/job"
	"pointsystem/internal/logger"
	"pointsystem/internal/repository"
	"pointsystem/internal/service"
	"pointsystem/pkg/idgen"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig("config/config.yaml")
	logger.Init(&cfg.Log)

	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	// 初始化 ID 生成器
	idgen.Init(cfg.Server.WorkerID)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pointRepo := repository.NewMemoryUserPointRepository()
	historyRepo := repository.NewMemoryPointHistoryRepository()
	locker := lock.NewKeyedLocker()

	// 后台任务，关闭时等待当前批次处理完再释放依赖
	var jobs sync.WaitGroup

	var opts []service.Option

	// Kafka：积分变更事件先写发件箱，再由后台任务投递
	if cfg.Kafka.Enabled {
		producer, err := mq.NewProducer(&cfg.Kafka)
		if err != nil {
			logrus.Fatalf("Kafka 初始化失败: %v", err)
		}
		defer producer.Close()

		outboxRepo := repository.NewMemoryOutboxRepository()
		opts = append(opts, service.WithOutbox(outboxRepo, cfg.Kafka.Topic.PointEvent))

		outboxSender := job.NewOutboxSender(
			outboxRepo,
			producer,
			cfg.Business.OutboxInterval(),
			cfg.Business.OutboxBatchSize,
			cfg.Business.MaxRetryCount,
		)
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			outboxSender.Start(ctx)
		}()
	}

	pointService := service.NewPointService(pointRepo, historyRepo, locker, opts...)

	// Redis：按 X-Request-ID 防重复提交
	var guard handler.RequestGuard
	if cfg.Redis.Enabled {
		redisClient, err := cache.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			logrus.Fatalf("Redis 初始化失败: %v", err)
		}
		defer redisClient.Close()
		guard = lock.NewRequestLock(redisClient, cfg.Redis.RequestTTL())
	}

	if interval := cfg.Business.ReconcileInterval(); interval > 0 {
		reconcileJob := job.NewReconcileJob(pointRepo, historyRepo, locker, interval)
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			reconcileJob.Start(ctx)
		}()
	}

	// 设置路由
	router := handler.SetupRouter(pointService, guard)

	// 启动 HTTP 服务
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// 在 goroutine 中启动服务器
	go func() {
		logrus.Infof("服务启动，监听端口: %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("正在关闭服务...")

	// 先关闭 HTTP 服务，进行中的积分变更执行完毕
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("服务关闭异常: %v", err)
	}

	// 取消上下文，停止后台任务
	cancel()
	jobs.Wait()

	logrus.Info("服务已关闭")
}
