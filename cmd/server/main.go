package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blues/crowdfund/internal/config"
	"github.com/blues/crowdfund/internal/identity"
	"github.com/blues/crowdfund/internal/lock"
	"github.com/blues/crowdfund/internal/logger"
	"github.com/blues/crowdfund/internal/logic"
	"github.com/blues/crowdfund/internal/repository"
	"github.com/blues/crowdfund/internal/router"
	"github.com/blues/crowdfund/internal/task"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 加载配置
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config: %v", err)
	}

	// 初始化日志
	log, err := logger.NewFromConfig(cfg.Log)
	if err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	// 初始化存储
	store, err := newStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store: %v", err)
	}

	// 初始化 redis，仅 lock.driver=redis 时使用
	redisClient, err := newRedis(cfg)
	if err != nil {
		logger.Fatal("Failed to connect redis: %v", err)
	}

	// 初始化活动锁与防重放记录
	locker, guard := newLocker(cfg, redisClient), newReplayGuard(cfg, redisClient)

	// 初始化身份校验
	verifier, err := identity.New(cfg.Auth.Mode, cfg.Auth.Skew(), guard)
	if err != nil {
		logger.Fatal("Failed to initialize identity verifier: %v", err)
	}
	if cfg.Auth.Mode == "header" {
		logger.Warn("Auth mode is header: X-Caller is trusted without a signature")
	}

	campaignLogic := logic.NewCampaignLogic(store, locker, cfg.Policy.Campaign(), time.Duration(cfg.Lock.Timeout)*time.Second)
	accountLogic := logic.NewAccountLogic(store, cfg.Rail.AllowDeposit)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(campaignLogic, accountLogic, verifier, cfg)

	// 启动定时任务
	manager, err := task.Start(campaignLogic, cfg.Task)
	if err != nil {
		logger.Fatal("Failed to start task manager: %v", err)
	}

	// 启动服务器
	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: r}
	go func() {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down server")
	manager.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}
}

func newStore(cfg *config.Config) (repository.Store, error) {
	if cfg.Store.Driver == "memory" {
		logger.Warn("Using in-memory store: state is lost on restart")
		return repository.NewMemoryStore(), nil
	}
	db, err := repository.Init(cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to postgres %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	return repository.NewGormStore(db), nil
}

func newRedis(cfg *config.Config) (*redis.Client, error) {
	if cfg.Lock.Driver != "redis" {
		return nil, nil
	}
	client, err := lock.Connect(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	logger.Info("Using redis at %s for campaign locks and replay protection", client.Options().Addr)
	return client, nil
}

func newLocker(cfg *config.Config, client *redis.Client) lock.Locker {
	if client == nil {
		return lock.NewKeyedMutex()
	}
	return lock.NewRedisLocker(client, time.Duration(cfg.Lock.TTL)*time.Second)
}

func newReplayGuard(cfg *config.Config, client *redis.Client) identity.ReplayGuard {
	if client == nil {
		if cfg.Auth.Mode == "signature" {
			logger.Warn("Using in-memory replay guard: signed requests are only deduplicated per instance")
		}
		return identity.NewMemoryReplayGuard()
	}
	return identity.NewRedisReplayGuard(client)
}
