package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
	"ledger-core/internal/repository"
	"ledger-core/pkg/cache"
	"ledger-core/pkg/logger"
)

// LimitsService 提现限额查询，network_limits 表 + 两级缓存
type LimitsService struct {
	store            repository.Store
	cache            cache.Cache
	ttl              time.Duration
	defaultPrecision int32
}

// NewLimitsService c 为 nil 时不缓存
func NewLimitsService(store repository.Store, c cache.Cache, ttl time.Duration, defaultPrecision int32) *LimitsService {
	return &LimitsService{store: store, cache: c, ttl: ttl, defaultPrecision: defaultPrecision}
}

func limitsCacheKey(asset, network string) string {
	return "limits:" + asset + ":" + network
}

// Lookup 查询某币种某网络的限额，未配置返回 errno.ErrLimitsNotFound
func (s *LimitsService) Lookup(ctx context.Context, asset, network string) (ledger.NetworkLimits, error) {
	asset, network = strings.ToUpper(asset), strings.ToUpper(network)
	key := limitsCacheKey(asset, network)

	var limits ledger.NetworkLimits
	if s.cache != nil {
		err := s.cache.Get(ctx, key, &limits)
		if err == nil {
			return limits, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("读取限额缓存失败", zap.String("key", key), zap.Error(err))
		}
	}

	row, err := s.store.GetNetworkLimit(ctx, asset, network)
	if err != nil {
		return ledger.NetworkLimits{}, err
	}
	limits = ledger.LimitsFromModel(*row)
	if limits.Precision <= 0 {
		limits.Precision = s.defaultPrecision
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, limits, s.ttl); err != nil {
			logger.Warn("写入限额缓存失败", zap.String("key", key), zap.Error(err))
		}
	}
	return limits, nil
}

// Set 运营修改限额，写库后删除缓存
func (s *LimitsService) Set(ctx context.Context, l *model.NetworkLimit) error {
	l.Asset, l.Network = strings.ToUpper(l.Asset), strings.ToUpper(l.Network)
	if l.MinWithdraw.IsNegative() || l.Fee.IsNegative() || l.MaxWithdraw.LessThan(l.MinWithdraw) {
		return fmt.Errorf("%w: min %s max %s fee %s", ledger.ErrInvalidAmount, l.MinWithdraw, l.MaxWithdraw, l.Fee)
	}
	if err := s.store.UpsertNetworkLimit(ctx, l); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, limitsCacheKey(l.Asset, l.Network)); err != nil {
			logger.Warn("删除限额缓存失败", zap.Error(err))
		}
	}
	logger.Info("提现限额已更新",
		zap.String("asset", l.Asset),
		zap.String("network", l.Network),
		zap.String("min", l.MinWithdraw.String()),
		zap.String("max", l.MaxWithdraw.String()),
		zap.String("fee", l.Fee.String()),
	)
	return nil
}
