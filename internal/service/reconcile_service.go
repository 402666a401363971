package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
	"ledger-core/internal/repository"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/monitor"
	"ledger-core/pkg/utils/lock"
)

const reconcileLockKey = "cron:lock:reconcile"

// ReconcileReport 一轮对账的结果
type ReconcileReport struct {
	Checked int   `json:"checked"`
	Halted  int   `json:"halted"`  // 本轮新冻结
	Skipped bool  `json:"skipped"` // 其他实例持有锁
	Total   int64 `json:"total_halted"`
}

// ReconcileService 定时检查所有账户的余额不变量，发现漂移立即冻结账户
type ReconcileService struct {
	cron    *cron.Cron
	store   repository.Store
	locker  lock.DistributedLock // nil 表示单实例部署，不加锁
	spec    string
	topic   string
	workers int
	batch   int
	lockTTL time.Duration
}

func NewReconcileService(store repository.Store, locker lock.DistributedLock, spec, topic string, workers int) *ReconcileService {
	if spec == "" {
		spec = "@every 5m"
	}
	if topic == "" {
		topic = DefaultEventsTopic
	}
	return &ReconcileService{
		cron:    cron.New(),
		store:   store,
		locker:  locker,
		spec:    spec,
		topic:   topic,
		workers: workers,
		batch:   500,
		lockTTL: 2 * time.Minute,
	}
}

func (s *ReconcileService) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			logger.Error("对账任务失败", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("Reconcile Service started", zap.String("spec", s.spec))
	return nil
}

func (s *ReconcileService) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("Reconcile Service stopped")
}

// RunOnce 分页扫描全部账户
func (s *ReconcileService) RunOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	if s.locker != nil {
		// 防止多实例同时执行
		locked, err := s.locker.Acquire(ctx, reconcileLockKey, s.lockTTL)
		if err != nil {
			return report, err
		}
		if !locked {
			logger.Debug("对账: 已有实例在运行，跳过")
			report.Skipped = true
			return report, nil
		}
		defer func() {
			if err := s.locker.Release(context.Background(), reconcileLockKey); err != nil {
				logger.Warn("对账: 释放锁失败", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	defer func() {
		monitor.Business.ReconcileDuration.Observe(time.Since(start).Seconds())
	}()

	var checked, halted, total int64
	var afterID uint64
	for {
		page, err := s.store.ListAccounts(ctx, afterID, s.batch)
		if err != nil {
			return report, err
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].ID

		// 任一账户冻结失败即取消本页剩余检查
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(s.workers, 1))
		for _, acc := range page {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return s.checkAccount(gctx, acc, &checked, &halted, &total)
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}
		if len(page) < s.batch {
			break
		}
	}

	report.Checked = int(checked)
	report.Halted = int(halted)
	report.Total = total
	monitor.Business.HaltedAccounts.Set(float64(total))
	logger.Info("对账完成",
		zap.Int("checked", report.Checked),
		zap.Int("halted", report.Halted),
		zap.Int64("total_halted", total),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

// checkAccount 校验单个账户，漂移时冻结
func (s *ReconcileService) checkAccount(ctx context.Context, acc model.Account, checked, halted, total *int64) error {
	atomic.AddInt64(checked, 1)
	if acc.Halted {
		atomic.AddInt64(total, 1)
		return nil
	}
	verr := ledger.CheckBalance(ledger.BalanceOf(acc))
	if verr == nil {
		return nil
	}
	monitor.Business.InvariantViolationsTotal.WithLabelValues("reconcile").Inc()
	logger.Error("对账发现余额漂移，冻结账户",
		zap.Uint64("account_id", acc.ID),
		zap.Uint64("user_id", acc.UserID),
		zap.String("asset", acc.Asset),
		zap.Error(verr),
	)
	if err := haltAccount(ctx, s.store, s.topic, acc.UserID, acc.Asset, verr.Error()); err != nil {
		return err
	}
	atomic.AddInt64(halted, 1)
	atomic.AddInt64(total, 1)
	return nil
}
