package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledger-core/internal/event"
	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
	"ledger-core/internal/repository"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/monitor"
)

// SettleRequest 撮合引擎推送的一笔已成交的订单
type SettleRequest struct {
	UserID     uint64
	BaseAsset  string
	QuoteAsset string
	Side       string
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	Fee        decimal.Decimal
	FeeAsset   string
}

// TradeService 成交结算，成交本身是事实，这里只负责两侧余额
type TradeService struct {
	store repository.Store
	topic string
	now   func() time.Time
}

func NewTradeService(store repository.Store, topic string) *TradeService {
	if topic == "" {
		topic = DefaultEventsTopic
	}
	return &TradeService{store: store, topic: topic, now: time.Now}
}

type tradeLeg struct {
	asset  string
	change decimal.Decimal
}

// legs 由成交记录计算两侧的净变动: 入账为正，出账为负，手续费从其所在一侧扣除
func legs(t model.Trade) ([]tradeLeg, error) {
	out := make([]tradeLeg, 0, 2)
	for _, asset := range []string{t.BaseAsset, t.QuoteAsset} {
		rec, err := ledger.FromTrade(t, asset)
		if err != nil {
			return nil, err
		}
		change := rec.Amount
		if rec.Direction == ledger.DirectionDebit {
			change = change.Neg()
		}
		out = append(out, tradeLeg{asset: asset, change: change.Sub(rec.Fee)})
	}
	// 固定加锁顺序，避免两笔反向成交互相等待
	sort.Slice(out, func(i, j int) bool { return out[i].asset < out[j].asset })
	return out, nil
}

// Settle 记录成交并在一个事务内结算两侧余额
func (s *TradeService) Settle(ctx context.Context, req SettleRequest) (model.Trade, error) {
	t := model.Trade{
		UserID:     req.UserID,
		Kind:       string(ledger.KindTrade),
		BaseAsset:  strings.ToUpper(strings.TrimSpace(req.BaseAsset)),
		QuoteAsset: strings.ToUpper(strings.TrimSpace(req.QuoteAsset)),
		Side:       strings.ToLower(strings.TrimSpace(req.Side)),
		Price:      req.Price,
		Quantity:   req.Quantity,
		Fee:        req.Fee,
		FeeAsset:   strings.ToUpper(strings.TrimSpace(req.FeeAsset)),
		Status:     ledger.MustEncodeStatus(ledger.KindTrade, ledger.StatusCompleted),
		CreatedAt:  s.now().UTC(),
	}
	if t.Fee.IsPositive() && t.FeeAsset != t.BaseAsset && t.FeeAsset != t.QuoteAsset {
		// 第三种币种的手续费需要第三个账户，账本不支持
		return model.Trade{}, fmt.Errorf("%w: fee asset %q not in pair %s/%s", ledger.ErrMalformedRecord, t.FeeAsset, t.BaseAsset, t.QuoteAsset)
	}

	// 先用占位 ID 校验并计算两侧变动，入库后 ID 才确定
	draft := t
	draft.ID = 1
	changes, err := legs(draft)
	if err != nil {
		return model.Trade{}, err
	}

	pair := t.BaseAsset + "/" + t.QuoteAsset
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.CreateTrade(ctx, &t); err != nil {
			return err
		}
		for _, leg := range changes {
			if _, err := applyDelta(ctx, tx, t.UserID, leg.asset, ledger.TradeLeg(leg.change)); err != nil {
				return err
			}
		}
		return emit(ctx, tx, s.topic, t.UserID, event.TypeTradeSettled, t.CreatedAt, event.TradeSettledEvent{
			TradeID:  t.ID,
			UserID:   t.UserID,
			Pair:     pair,
			Side:     t.Side,
			Price:    t.Price.String(),
			Quantity: t.Quantity.String(),
		})
	})
	if err != nil {
		return model.Trade{}, haltOnViolation(ctx, s.store, s.topic, err)
	}

	monitor.Business.TradeSettledTotal.WithLabelValues(pair).Inc()
	logger.Info("成交已结算",
		zap.Uint64("trade_id", t.ID),
		zap.Uint64("user_id", t.UserID),
		zap.String("pair", pair),
		zap.String("side", t.Side),
	)
	return t, nil
}
