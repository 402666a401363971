package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"ledger-core/pkg/logger"
)

// MultiLevelCache 实现多级缓存 (L1: Memory, L2: Redis)
// remote 可以为 nil (单机部署 / 测试)，此时退化为纯内存缓存
type MultiLevelCache struct {
	local  Cache
	remote Cache
}

func NewMultiLevelCache(local, remote Cache) *MultiLevelCache {
	return &MultiLevelCache{
		local:  local,
		remote: remote,
	}
}

func (m *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	// L1 的 TTL 取 L2 的一半，减少多实例之间的脏读窗口
	if err := m.local.Set(ctx, key, value, ttl/2); err != nil {
		logger.Warn("L1 cache set failed", zap.String("key", key), zap.Error(err))
	}
	if m.remote == nil {
		return nil
	}
	return m.remote.Set(ctx, key, value, ttl)
}

func (m *MultiLevelCache) Get(ctx context.Context, key string, target interface{}) error {
	// 1. 查 L1
	if err := m.local.Get(ctx, key, target); err == nil {
		return nil
	}
	if m.remote == nil {
		return ErrCacheMiss
	}

	// 2. 查 L2，命中后回写 L1 (短 TTL)
	err := m.remote.Get(ctx, key, target)
	if err == nil {
		_ = m.local.Set(ctx, key, target, time.Minute)
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		// Redis 故障按未命中处理，由调用方回源
		logger.Warn("L2 cache get failed", zap.String("key", key), zap.Error(err))
	}
	return ErrCacheMiss
}

func (m *MultiLevelCache) Delete(ctx context.Context, key string) error {
	_ = m.local.Delete(ctx, key)
	if m.remote == nil {
		return nil
	}
	return m.remote.Delete(ctx, key)
}
