package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/model"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStore_NestedTransaction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Transaction(ctx, func(tx Store) error {
		if _, err := tx.LockAccount(ctx, 1, "BTC"); err != nil {
			return err
		}
		// 内层失败只回滚内层
		_ = tx.Transaction(ctx, func(inner Store) error {
			_ = inner.CreateWithdrawal(ctx, newWithdrawal(1, ""))
			return assert.AnError
		})
		return nil
	})
	require.NoError(t, err)

	_, err = s.GetAccount(ctx, 1, "BTC")
	require.NoError(t, err)
	ws, err := s.ListWithdrawals(ctx, 1, "USDT")
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestMemoryStore_ListAccountsPaging(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i := uint64(1); i <= 5; i++ {
		s.PutAccount(model.Account{UserID: i, Asset: "BTC"})
	}

	page, err := s.ListAccounts(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)

	page, err = s.ListAccounts(ctx, page[1].ID, 10)
	require.NoError(t, err)
	assert.Len(t, page, 3)
}
