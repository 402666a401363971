package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
	"ledger-core/internal/repository"
	"ledger-core/pkg/address"
	"ledger-core/pkg/cache"
)

const (
	ethAddr  = "0x52908400098527886e0f7030069857d2e4169ee7"
	visaCard = "4111 1111 1111 1111"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store    *repository.MemoryStore
	limits   *LimitsService
	withdraw *WithdrawService
	admin    *AdminService
	deposit  *DepositService
	trade    *TradeService
	history  *HistoryService
	notifier *recordingNotifier
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now 每次调用前进一秒，保证记录之间的时间先后
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingNotifier struct {
	mu      sync.Mutex
	records []ledger.LedgerRecord
}

func (n *recordingNotifier) NotifyReviewed(ctx context.Context, rec ledger.LedgerRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, rec)
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := repository.NewMemoryStore().WithClock(clock.Now)
	limits := NewLimitsService(store, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute, 8)
	notifier := &recordingNotifier{}

	f := &fixture{
		store:    store,
		limits:   limits,
		withdraw: NewWithdrawService(store, limits, address.NewValidator(false), ""),
		admin:    NewAdminService(store, notifier, ""),
		deposit:  NewDepositService(store, ""),
		trade:    NewTradeService(store, ""),
		history:  NewHistoryService(store),
		notifier: notifier,
		clock:    clock,
	}
	f.withdraw.now = clock.Now
	f.admin.now = clock.Now
	f.deposit.now = clock.Now
	f.trade.now = clock.Now

	ctx := context.Background()
	require.NoError(t, limits.Set(ctx, &model.NetworkLimit{
		Asset: "USDT", Network: "ETH",
		MinWithdraw: d("10"), MaxWithdraw: d("1000"), Fee: d("1"), Precision: 6, Enabled: true,
	}))
	require.NoError(t, limits.Set(ctx, &model.NetworkLimit{
		Asset: "USDT", Network: ledger.BankNetwork,
		MinWithdraw: d("20"), MaxWithdraw: d("5000"), Fee: d("2.5"), Precision: 2, Enabled: true,
	}))
	return f
}

// fund 直接给账户加可用余额
func (f *fixture) fund(userID uint64, asset, amount string) model.Account {
	return f.store.PutAccount(model.Account{
		UserID:    userID,
		Asset:     asset,
		Total:     d(amount),
		Available: d(amount),
		Frozen:    decimal.Zero,
	})
}

func (f *fixture) balance(t *testing.T, userID uint64, asset string) model.Account {
	t.Helper()
	acc, err := f.store.GetAccount(context.Background(), userID, asset)
	require.NoError(t, err)
	return *acc
}

func (f *fixture) pendingOutbox(t *testing.T) []model.OutboxMessage {
	t.Helper()
	msgs, err := f.store.ListPendingOutbox(context.Background(), 0)
	require.NoError(t, err)
	return msgs
}

func requireBalance(t *testing.T, acc model.Account, total, available, frozen string) {
	t.Helper()
	require.Truef(t, acc.Total.Equal(d(total)), "total = %s, want %s", acc.Total, total)
	require.Truef(t, acc.Available.Equal(d(available)), "available = %s, want %s", acc.Available, available)
	require.Truef(t, acc.Frozen.Equal(d(frozen)), "frozen = %s, want %s", acc.Frozen, frozen)
}
