package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/ledger"
	"ledger-core/internal/repository"
)

func TestTransitionFollowsStatusTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.deposit.ApplyConfirmation(ctx, notice(1, 6))
	require.NoError(t, err)
	events := len(f.pendingOutbox(t))

	cases := []struct {
		name string
		from ledger.Status
		to   ledger.Status
	}{
		{"confirming back to pending", ledger.StatusConfirming, ledger.StatusPending},
		{"confirming to processing", ledger.StatusConfirming, ledger.StatusProcessing},
		{"terminal is final", ledger.StatusCompleted, ledger.StatusFailed},
		{"same status", ledger.StatusConfirming, ledger.StatusConfirming},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			current := rec.Clone()
			current.Status = c.from
			next := current.Clone()
			next.Status = c.to
			err := f.store.Transaction(ctx, func(tx repository.Store) error {
				_, err := transition{current: current, next: next, action: "test"}.commit(ctx, tx, DefaultEventsTopic, f.clock.Now())
				return err
			})
			assert.ErrorIs(t, err, ledger.ErrNotPending)
		})
	}

	got, err := f.store.GetRecord(ctx, ledger.SourceRecharge, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusConfirming, got.Status)
	assert.Len(t, f.pendingOutbox(t), events)
}
