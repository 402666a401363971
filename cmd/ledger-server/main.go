package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ledger-core/internal/handler"
	"ledger-core/internal/repository"
	"ledger-core/internal/server"
	"ledger-core/internal/service"
	"ledger-core/internal/service/mq"
	"ledger-core/internal/worker"
	"ledger-core/pkg/address"
	"ledger-core/pkg/cache"
	"ledger-core/pkg/config"
	"ledger-core/pkg/database"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/utils/lock"
)

// @title Ledger Core API
// @version 1.0
// @description 资金账本: 充值确认、提现审核、成交结算与资金流水
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 0. 初始化 Config
	config.Init()
	conf := config.Global

	// 1. 初始化 Logger
	logger.Init(conf.App.Env)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 连接数据库
	db, err := database.ConnectPostgres(conf.DB.DSN(), conf.App.Env == "development")
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	store := repository.NewGormStore(db)

	// 3. 连接 Redis
	rdb, err := database.ConnectRedis(conf.Redis.Addr, conf.Redis.Password, conf.Redis.DB)
	if err != nil {
		logger.Fatal("Redis 连接失败", zap.Error(err))
	}

	// 4. 限额缓存: L1 内存 + L2 Redis
	ttl := time.Duration(conf.Ledger.LimitsCacheTTLSec) * time.Second
	limitsCache := cache.NewMultiLevelCache(
		cache.NewMemoryCache(time.Minute, 5*time.Minute),
		cache.NewRedisCache(rdb, "ledger:limits:"),
	)

	// 5. 消息队列
	var producer mq.Producer
	var consumer mq.Consumer
	if conf.Redis.MQType == "kafka" {
		logger.Info("使用 Kafka 作为消息队列...")
		kp := mq.NewKafkaProducer(conf.Kafka.Brokers)
		defer kp.Close()
		producer = kp
		consumer = mq.NewKafkaConsumer(conf.Kafka.Brokers, conf.Kafka.GroupID)
	} else {
		logger.Info("使用 Redis Streams 作为消息队列...")
		producer = mq.NewRedisProducer(rdb, 100000)
		consumer = mq.NewRedisConsumer(rdb, conf.Kafka.GroupID, "ledger-0")
	}

	// 6. 审核通知走 Asynq
	notifier := worker.NewClient(conf.Redis.Addr, conf.Redis.Password, conf.Redis.DB)

	// 7. 业务服务
	topic := conf.Ledger.EventsTopic
	limits := service.NewLimitsService(store, limitsCache, ttl, conf.Ledger.DisplayPrecision)
	withdraw := service.NewWithdrawService(store, limits, address.NewValidator(conf.Ledger.Testnet), topic)
	deposit := service.NewDepositService(store, topic)
	trade := service.NewTradeService(store, topic)
	history := service.NewHistoryService(store)
	admin := service.NewAdminService(store, notifier, topic)

	// 8. outbox 中继
	relay := service.NewRelayService(store, producer, time.Duration(conf.Ledger.RelayIntervalMs)*time.Millisecond)
	go relay.Start(ctx)

	// 9. 消费链上确认数
	go func() {
		if err := deposit.Listen(ctx, consumer, conf.Ledger.ConfirmationTopic); err != nil {
			logger.Error("确认数消费退出", zap.Error(err))
		}
	}()

	// 10. 定时对账
	reconcile := service.NewReconcileService(store, lock.NewRedisLock(rdb), conf.Ledger.ReconcileSpec, topic, conf.Ledger.ReconcileWorkers)
	if err := reconcile.Start(); err != nil {
		logger.Fatal("对账任务启动失败", zap.Error(err))
	}
	defer reconcile.Stop()

	// 11. Asynq Worker，生产环境建议独立部署
	workerServer := worker.NewServer(conf.Redis.Addr, conf.Redis.Password, conf.Redis.DB, conf.Worker.Concurrency, nil)
	if err := workerServer.Start(); err != nil {
		logger.Fatal("Worker 启动失败", zap.Error(err))
	}
	defer workerServer.Stop()

	// 12. HTTP
	r := server.NewHTTPRouter(server.Handlers{
		Wallet:        handler.NewWalletHandler(withdraw, deposit, history),
		Admin:         handler.NewAdminHandler(admin),
		Internal:      handler.NewInternalHandler(deposit, trade),
		Identity:      service.NewRedisIdentity(rdb),
		InternalToken: conf.Ledger.InternalToken,
	})
	if conf.Ledger.InternalToken == "" {
		logger.Warn("未配置 ledger.internal_token，内部接口不做鉴权 (仅限开发环境)")
	}

	// 运行 (阻塞)
	server.New(server.Config{HttpPort: conf.App.HttpPort}, r).Run(ctx)

	// 13. 退出后资源清理
	stop()
	closeQuietly("consumer", consumer)
	closeQuietly("asynq client", notifier)
	logger.Info("正在关闭数据库连接...")
	if sqlDB, err := db.DB(); err == nil {
		closeQuietly("postgres", sqlDB)
	}
	closeQuietly("redis", rdb)
	logger.Info("系统已退出")
}

func closeQuietly(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("关闭资源失败", zap.String("resource", name), zap.Error(err))
	}
}
