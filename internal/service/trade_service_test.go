package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/ledger"
	"ledger-core/pkg/errno"
)

func TestTradeSettleBuyAndSell(t *testing.T) {
	f := newFixture(t)
	f.fund(4, "USDT", "30000")
	ctx := context.Background()

	buy, err := f.trade.Settle(ctx, SettleRequest{
		UserID: 4, BaseAsset: "btc", QuoteAsset: "usdt", Side: "BUY",
		Price: d("40000"), Quantity: d("0.5"), Fee: d("0.001"), FeeAsset: "btc",
	})
	require.NoError(t, err)
	assert.NotZero(t, buy.ID)
	requireBalance(t, f.balance(t, 4, "BTC"), "0.499", "0.499", "0")
	requireBalance(t, f.balance(t, 4, "USDT"), "10000", "10000", "0")

	_, err = f.trade.Settle(ctx, SettleRequest{
		UserID: 4, BaseAsset: "BTC", QuoteAsset: "USDT", Side: "sell",
		Price: d("40000"), Quantity: d("0.2"), Fee: d("8"), FeeAsset: "USDT",
	})
	require.NoError(t, err)
	requireBalance(t, f.balance(t, 4, "BTC"), "0.299", "0.299", "0")
	requireBalance(t, f.balance(t, 4, "USDT"), "17992", "17992", "0")

	assert.Len(t, f.pendingOutbox(t), 2)
}

func TestTradeSettleRejectsForeignFeeAsset(t *testing.T) {
	f := newFixture(t)
	f.fund(4, "USDT", "1000")

	_, err := f.trade.Settle(context.Background(), SettleRequest{
		UserID: 4, BaseAsset: "ETH", QuoteAsset: "USDT", Side: "buy",
		Price: d("2000"), Quantity: d("0.1"), Fee: d("0.5"), FeeAsset: "BNB",
	})
	assert.ErrorIs(t, err, ledger.ErrMalformedRecord)

	_, err = f.trade.Settle(context.Background(), SettleRequest{
		UserID: 4, BaseAsset: "ETH", QuoteAsset: "USDT", Side: "hold",
		Price: d("2000"), Quantity: d("0.1"),
	})
	assert.ErrorIs(t, err, ledger.ErrMalformedRecord)
	requireBalance(t, f.balance(t, 4, "USDT"), "1000", "1000", "0")
	assert.Empty(t, f.pendingOutbox(t))
}

func TestTradeOverdrawHaltsAccount(t *testing.T) {
	f := newFixture(t)
	f.fund(4, "USDT", "100")
	ctx := context.Background()

	_, err := f.trade.Settle(ctx, SettleRequest{
		UserID: 4, BaseAsset: "BTC", QuoteAsset: "USDT", Side: "buy",
		Price: d("40000"), Quantity: d("1"),
	})
	require.ErrorIs(t, err, ledger.ErrInvariantViolation)

	// 整笔回滚，另一侧也没有入账
	_, err = f.store.GetAccount(ctx, 4, "BTC")
	assert.ErrorIs(t, err, errno.ErrNotFound)
	trades, err := f.store.ListTrades(ctx, 4, "USDT")
	require.NoError(t, err)
	assert.Empty(t, trades)

	acc := f.balance(t, 4, "USDT")
	assert.True(t, acc.Halted)
	requireBalance(t, acc, "100", "100", "0")
}
