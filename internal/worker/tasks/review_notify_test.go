package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/ledger"
)

func rejectedWithdrawal() ledger.LedgerRecord {
	return ledger.LedgerRecord{
		ID: 12, Source: ledger.SourceWithdrawal, UserID: 3, Asset: "USDT",
		Amount: decimal.RequireFromString("40.5"), Status: ledger.StatusRejected, RejectionReason: "kyc",
	}
}

func TestNewReviewNotifyTask(t *testing.T) {
	task, err := NewReviewNotifyTask(rejectedWithdrawal())
	require.NoError(t, err)
	assert.Equal(t, TypeReviewNotify, task.Type())

	var p ReviewNotifyPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "withdrawal", p.Source)
	assert.Equal(t, "40.5", p.Amount)
	assert.Equal(t, "rejected", p.Status)
	assert.Equal(t, "kyc", p.RejectionReason)
}

func TestReviewNotifyHandler(t *testing.T) {
	var delivered []ReviewNotifyPayload
	handler := NewReviewNotifyHandler(func(ctx context.Context, p ReviewNotifyPayload) error {
		delivered = append(delivered, p)
		return nil
	})

	task, err := NewReviewNotifyTask(rejectedWithdrawal())
	require.NoError(t, err)
	require.NoError(t, handler.ProcessTask(context.Background(), task))
	require.Len(t, delivered, 1)
	assert.Equal(t, uint64(12), delivered[0].RecordID)

	err = handler.ProcessTask(context.Background(), asynq.NewTask(TypeReviewNotify, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	err = handler.ProcessTask(context.Background(), asynq.NewTask(TypeReviewNotify, []byte(`{"record_id":1}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Len(t, delivered, 1)
}

func TestReviewNotifyHandlerRetriesDeliveryFailure(t *testing.T) {
	boom := errors.New("smtp down")
	handler := NewReviewNotifyHandler(func(ctx context.Context, p ReviewNotifyPayload) error { return boom })

	task, err := NewReviewNotifyTask(rejectedWithdrawal())
	require.NoError(t, err)
	err = handler.ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	// 不投递时只写日志
	require.NoError(t, NewReviewNotifyHandler(nil).ProcessTask(context.Background(), task))
}
