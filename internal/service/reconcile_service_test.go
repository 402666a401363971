package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/model"
)

type fakeLocker struct {
	held     bool
	released int
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLocker) Release(ctx context.Context, key string) error {
	l.held = false
	l.released++
	return nil
}

func TestReconcileHaltsDriftedAccounts(t *testing.T) {
	f := newFixture(t)
	for i := uint64(1); i <= 20; i++ {
		f.fund(i, "USDT", "100")
	}
	f.store.PutAccount(model.Account{UserID: 21, Asset: "USDT", Total: d("100"), Available: d("90"), Frozen: d("5")})
	f.store.PutAccount(model.Account{UserID: 22, Asset: "BTC", Total: d("0"), Available: d("-1"), Frozen: d("1")})
	submitWithdrawal(t, f, 1, "50")

	svc := NewReconcileService(f.store, nil, "", "", 4)
	svc.batch = 7
	ctx := context.Background()

	report, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 22, report.Checked)
	assert.Equal(t, 2, report.Halted)
	assert.EqualValues(t, 2, report.Total)
	assert.True(t, f.balance(t, 21, "USDT").Halted)
	assert.True(t, f.balance(t, 22, "BTC").Halted)
	assert.False(t, f.balance(t, 1, "USDT").Halted)

	// 已冻结的账户不会重复冻结
	report, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Halted)
	assert.EqualValues(t, 2, report.Total)
}

func TestReconcileSkipsWhenLocked(t *testing.T) {
	f := newFixture(t)
	f.fund(1, "USDT", "100")
	locker := &fakeLocker{held: true}
	svc := NewReconcileService(f.store, locker, "", "", 2)

	report, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, report.Checked)
	assert.Zero(t, locker.released)

	locker.held = false
	report, err = svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, locker.released)
}

func TestReconcileStartRejectsBadSchedule(t *testing.T) {
	f := newFixture(t)
	svc := NewReconcileService(f.store, nil, "every now and then", "", 1)
	assert.Error(t, svc.Start())
}
