package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ledger-core/internal/repository"
	"ledger-core/internal/service/mq"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/monitor"
)

// RelayService 负责将本地消息表的消息搬运到 MQ
type RelayService struct {
	store    repository.Store
	producer mq.Producer
	interval time.Duration
	batch    int
}

func NewRelayService(store repository.Store, producer mq.Producer, interval time.Duration) *RelayService {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &RelayService{
		store:    store,
		producer: producer,
		interval: interval,
		batch:    50, // 每次取 50 条，避免内存爆炸
	}
}

// Start 阻塞轮询，直到 ctx 结束
func (s *RelayService) Start(ctx context.Context) {
	logger.Info("[Relay] 启动消息中继服务", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[Relay] 停止服务")
			return
		case <-ticker.C:
			s.ProcessPending(ctx)
		}
	}
}

// ProcessPending 投递一批待发送消息，返回成功条数
func (s *RelayService) ProcessPending(ctx context.Context) int {
	messages, err := s.store.ListPendingOutbox(ctx, s.batch)
	if err != nil {
		logger.Error("[Relay] 查询消息失败", zap.Error(err))
		return 0
	}
	if len(messages) == 0 {
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if err := s.producer.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			monitor.Business.OutboxRelayedTotal.WithLabelValues(msg.Topic, "error").Inc()
			logger.Warn("[Relay] 发送消息失败", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}

		// 发送成功才标记 SENT => 至少一次投递，消费方按事件 ID 去重
		if err := s.store.MarkOutboxSent(ctx, msg.ID); err != nil {
			logger.Error("[Relay] 更新状态失败", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}
		monitor.Business.OutboxRelayedTotal.WithLabelValues(msg.Topic, "sent").Inc()
		sent++
	}
	logger.Debug("[Relay] 本轮投递完成", zap.Int("pending", len(messages)), zap.Int("sent", sent))
	return sent
}
