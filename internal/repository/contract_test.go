package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/ledger"
	"ledger-core/internal/model"
	"ledger-core/pkg/errno"
)

// 两种 Store 实现共用的行为测试

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newWithdrawal(userID uint64, key string) *model.Withdrawal {
	w := &model.Withdrawal{
		UserID:    userID,
		Asset:     "USDT",
		Network:   "ETH",
		ToAddress: "0x52908400098527886e0f7030069857d2e4169ee7",
		Amount:    dec("50"),
		Fee:       dec("1"),
		NetAmount: dec("49"),
		Status:    ledger.MustEncodeStatus(ledger.KindWithdraw, ledger.StatusPending),
	}
	if key != "" {
		w.IdempotencyKey = &key
	}
	return w
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CompareAndSwapStatus", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		w := newWithdrawal(1, "")
		require.NoError(t, s.CreateWithdrawal(ctx, w))

		now := time.Now().UTC().Truncate(time.Second)
		rec, err := s.CompareAndSwapStatus(ctx, ledger.SourceWithdrawal, w.ID, ledger.StatusPending,
			StatusPatch{To: ledger.StatusCompleted, CompletedAt: &now})
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusCompleted, rec.Status)
		require.NotNil(t, rec.CompletedAt)

		_, err = s.CompareAndSwapStatus(ctx, ledger.SourceWithdrawal, w.ID, ledger.StatusPending,
			StatusPatch{To: ledger.StatusCompleted, CompletedAt: &now})
		assert.ErrorIs(t, err, errno.ErrNotPending)

		_, err = s.CompareAndSwapStatus(ctx, ledger.SourceWithdrawal, 999999, ledger.StatusPending,
			StatusPatch{To: ledger.StatusCancelled})
		assert.ErrorIs(t, err, errno.ErrNotFound)
	})

	t.Run("ConcurrentCompareAndSwapHasOneWinner", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		w := newWithdrawal(2, "")
		require.NoError(t, s.CreateWithdrawal(ctx, w))

		var wins, losses int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				now := time.Now()
				_, err := s.CompareAndSwapStatus(ctx, ledger.SourceWithdrawal, w.ID, ledger.StatusPending,
					StatusPatch{To: ledger.StatusCompleted, CompletedAt: &now})
				if err == nil {
					atomic.AddInt32(&wins, 1)
				} else if errors.Is(err, errno.ErrNotPending) {
					atomic.AddInt32(&losses, 1)
				}
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, wins)
		assert.EqualValues(t, 7, losses)
	})

	t.Run("DeleteRecord", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		w := newWithdrawal(3, "")
		require.NoError(t, s.CreateWithdrawal(ctx, w))

		assert.ErrorIs(t, s.DeleteRecord(ctx, ledger.SourceWithdrawal, w.ID), errno.ErrCannotDeletePending)

		_, err := s.CompareAndSwapStatus(ctx, ledger.SourceWithdrawal, w.ID, ledger.StatusPending,
			StatusPatch{To: ledger.StatusRejected, RejectionReason: "risk"})
		require.NoError(t, err)
		require.NoError(t, s.DeleteRecord(ctx, ledger.SourceWithdrawal, w.ID))

		_, err = s.GetRecord(ctx, ledger.SourceWithdrawal, w.ID)
		assert.ErrorIs(t, err, errno.ErrNotFound)
		assert.ErrorIs(t, s.DeleteRecord(ctx, ledger.SourceWithdrawal, w.ID), errno.ErrNotFound)
	})

	t.Run("TransactionRollsBack", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		boom := errors.New("boom")

		err := s.Transaction(ctx, func(tx Store) error {
			acc, err := tx.LockAccount(ctx, 4, "BTC")
			if err != nil {
				return err
			}
			acc.Total, acc.Available = dec("10"), dec("10")
			if err := tx.SaveAccount(ctx, acc); err != nil {
				return err
			}
			if err := tx.CreateWithdrawal(ctx, newWithdrawal(4, "")); err != nil {
				return err
			}
			if err := tx.CreateOutboxMessage(ctx, "ledger_events", "4", map[string]string{"a": "b"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		ws, err := s.ListWithdrawals(ctx, 4, "USDT")
		require.NoError(t, err)
		assert.Empty(t, ws)
		pending, err := s.ListPendingOutbox(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
		_, err = s.GetAccount(ctx, 4, "BTC")
		assert.ErrorIs(t, err, errno.ErrNotFound)
	})

	t.Run("SaveAccountVersionConflict", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		acc, err := s.LockAccount(ctx, 5, "ETH")
		require.NoError(t, err)
		stale := *acc

		acc.Total, acc.Available = dec("1"), dec("1")
		require.NoError(t, s.SaveAccount(ctx, acc))
		assert.EqualValues(t, stale.Version+1, acc.Version)

		stale.Total, stale.Available = dec("2"), dec("2")
		assert.ErrorIs(t, s.SaveAccount(ctx, &stale), errno.ErrVersionConflict)

		got, err := s.GetAccount(ctx, 5, "ETH")
		require.NoError(t, err)
		assert.True(t, got.Total.Equal(dec("1")))
	})

	t.Run("IdempotencyKey", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.CreateWithdrawal(ctx, newWithdrawal(6, "k-1")))

		rec, err := s.FindByIdempotencyKey(ctx, ledger.SourceWithdrawal, 6, "k-1")
		require.NoError(t, err)
		assert.True(t, rec.Amount.Equal(dec("50")))

		_, err = s.FindByIdempotencyKey(ctx, ledger.SourceWithdrawal, 7, "k-1")
		assert.ErrorIs(t, err, errno.ErrNotFound)

		assert.Error(t, s.CreateWithdrawal(ctx, newWithdrawal(6, "k-1")))
	})

	t.Run("ListRecordsFiltersByStatus", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		for i := 0; i < 3; i++ {
			require.NoError(t, s.CreateWithdrawal(ctx, newWithdrawal(8, "")))
		}
		recs, total, err := s.ListRecords(ctx, ledger.SourceWithdrawal, RecordFilter{UserID: 8, Limit: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, recs, 2)
		assert.Greater(t, recs[0].ID, recs[1].ID)

		completed := ledger.StatusCompleted
		recs, total, err = s.ListRecords(ctx, ledger.SourceWithdrawal, RecordFilter{UserID: 8, Status: &completed})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, recs)
	})

	t.Run("NetworkLimits", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.GetNetworkLimit(ctx, "BTC", "BTC")
		assert.ErrorIs(t, err, errno.ErrLimitsNotFound)

		l := &model.NetworkLimit{Asset: "BTC", Network: "BTC", MinWithdraw: dec("0.001"), MaxWithdraw: dec("10"), Fee: dec("0.0005"), Precision: 8, Enabled: true}
		require.NoError(t, s.UpsertNetworkLimit(ctx, l))
		l2 := &model.NetworkLimit{Asset: "BTC", Network: "BTC", MinWithdraw: dec("0.002"), MaxWithdraw: dec("10"), Fee: dec("0.0004"), Precision: 8, Enabled: true}
		require.NoError(t, s.UpsertNetworkLimit(ctx, l2))

		got, err := s.GetNetworkLimit(ctx, "BTC", "BTC")
		require.NoError(t, err)
		assert.True(t, got.Fee.Equal(dec("0.0004")))
	})

	t.Run("DepositsAndTrades", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		d := &model.Deposit{UserID: 9, Asset: "BTC", Network: "BTC", TxHash: "aa", Amount: dec("1"),
			Status: ledger.MustEncodeStatus(ledger.KindDeposit, ledger.StatusConfirming), RequiredConfirmations: 6}
		require.NoError(t, s.CreateDeposit(ctx, d))
		require.NoError(t, s.UpdateDepositConfirmations(ctx, d.ID, 3, 6))

		got, err := s.GetDepositByTxHash(ctx, "BTC", "aa")
		require.NoError(t, err)
		assert.Equal(t, 3, got.Confirmations)

		tr := &model.Trade{UserID: 9, Kind: "trade", BaseAsset: "BTC", QuoteAsset: "USDT", Side: model.SideBuy,
			Price: dec("30000"), Quantity: dec("0.1"), Status: 1}
		require.NoError(t, s.CreateTrade(ctx, tr))
		trades, err := s.ListTrades(ctx, 9, "USDT")
		require.NoError(t, err)
		assert.Len(t, trades, 1)
	})

	t.Run("FailedDepositReleasesTxHash", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		claim := &model.Deposit{UserID: 9, Asset: "USDT", Network: "ETH", TxHash: "0xfeed", Amount: dec("250"),
			Status: ledger.MustEncodeStatus(ledger.KindDeposit, ledger.StatusPending)}
		require.NoError(t, s.CreateDeposit(ctx, claim))

		dup := &model.Deposit{UserID: 7, Asset: "USDT", Network: "ETH", TxHash: "0xfeed", Amount: dec("250"),
			Status: ledger.MustEncodeStatus(ledger.KindDeposit, ledger.StatusConfirming)}
		assert.ErrorIs(t, s.CreateDeposit(ctx, dup), errno.ErrDepositExists)

		failed, err := s.CompareAndSwapStatus(ctx, ledger.SourceRecharge, claim.ID, ledger.StatusPending,
			StatusPatch{To: ledger.StatusFailed, RejectionReason: "superseded"})
		require.NoError(t, err)
		assert.Equal(t, "superseded", failed.RejectionReason)

		_, err = s.GetDepositByTxHash(ctx, "ETH", "0xfeed")
		assert.ErrorIs(t, err, errno.ErrNotFound)

		dup.ID = 0
		require.NoError(t, s.CreateDeposit(ctx, dup))
		got, err := s.GetDepositByTxHash(ctx, "ETH", "0xfeed")
		require.NoError(t, err)
		assert.Equal(t, dup.ID, got.ID)
		assert.Equal(t, uint64(7), got.UserID)
	})
}
