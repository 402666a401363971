package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
	"ledger-core/internal/repository"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/monitor"
)

// HistoryService 用户某个币种的资金流水
type HistoryService struct {
	store repository.Store
}

func NewHistoryService(store repository.Store) *HistoryService {
	return &HistoryService{store: store}
}

// Build 并发加载四张来源表后合并，脏数据丢弃并计数，不影响其余记录
func (s *HistoryService) Build(ctx context.Context, userID uint64, asset string) ([]ledger.LedgerRecord, error) {
	asset = strings.ToUpper(strings.TrimSpace(asset))

	var in ledger.HistoryInput
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Deposits, err = s.store.ListDeposits(gctx, userID, asset)
		return err
	})
	g.Go(func() error {
		var err error
		in.Withdrawals, err = s.store.ListWithdrawals(gctx, userID, asset)
		return err
	})
	g.Go(func() error {
		var err error
		in.BankWithdrawals, err = s.store.ListBankWithdrawals(gctx, userID, asset)
		return err
	})
	g.Go(func() error {
		var err error
		in.Trades, err = s.store.ListTrades(gctx, userID, asset)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records, report := ledger.Aggregate(userID, asset, in)
	if report.Total > 0 {
		for source, n := range report.BySource {
			monitor.Business.HistoryDroppedRowsTotal.WithLabelValues(string(source)).Add(float64(n))
		}
		logger.Warn("流水中存在无法解析的记录，已跳过",
			zap.Uint64("user_id", userID),
			zap.String("asset", asset),
			zap.Int("dropped", report.Total),
			zap.Errors("errors", report.Errors),
		)
	}
	return records, nil
}

// BalanceView 对外展示的余额
type BalanceView struct {
	Asset     string `json:"asset"`
	Total     string `json:"total"`
	Available string `json:"available"`
	Frozen    string `json:"frozen"`
	Halted    bool   `json:"halted"`
}

func balanceView(acc model.Account) BalanceView {
	return BalanceView{
		Asset:     acc.Asset,
		Total:     acc.Total.String(),
		Available: acc.Available.String(),
		Frozen:    acc.Frozen.String(),
		Halted:    acc.Halted,
	}
}

// Balances asset 为空时返回该用户全部币种；没有账户的币种余额为 0
func (s *HistoryService) Balances(ctx context.Context, userID uint64, asset string) ([]BalanceView, error) {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if asset != "" {
		acc, err := s.store.GetAccount(ctx, userID, asset)
		if err != nil {
			if errors.Is(err, errno.ErrNotFound) {
				return []BalanceView{balanceView(model.Account{Asset: asset})}, nil
			}
			return nil, err
		}
		return []BalanceView{balanceView(*acc)}, nil
	}

	accounts, err := s.store.ListUserAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]BalanceView, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, balanceView(acc))
	}
	return out, nil
}
