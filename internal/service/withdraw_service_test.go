package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/event"
	"ledger-core/internal/ledger"
	"ledger-core/pkg/errno"
)

func TestWithdrawSubmitFreezes(t *testing.T) {
	f := newFixture(t)
	f.fund(1, "USDT", "100")

	rec, err := f.withdraw.Submit(context.Background(), SubmitRequest{
		UserID: 1, Asset: "usdt", Network: "eth", Address: "  " + ethAddr + " ", Amount: d("50"),
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusPending, rec.Status)
	assert.Equal(t, ledger.SourceWithdrawal, rec.Source)
	assert.Equal(t, "USDT", rec.Asset)
	assert.Equal(t, ethAddr, rec.Address)
	assert.True(t, rec.Fee.Equal(d("1")))
	requireBalance(t, f.balance(t, 1, "USDT"), "100", "50", "50")

	msgs := f.pendingOutbox(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, DefaultEventsTopic, msgs[0].Topic)
	assert.Equal(t, "1", msgs[0].Key)

	var env event.Envelope
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &env))
	assert.Equal(t, event.TypeWithdrawalSubmitted, env.Type)
	var payload event.WithdrawalSubmittedEvent
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "49", payload.NetAmount)
}

func TestWithdrawSubmitRejections(t *testing.T) {
	tests := []struct {
		name    string
		req     SubmitRequest
		wantErr error
	}{
		{"missing address", SubmitRequest{Asset: "USDT", Network: "ETH", Address: " ", Amount: d("50")}, ledger.ErrMissingAddress},
		{"zero amount", SubmitRequest{Asset: "USDT", Network: "ETH", Address: ethAddr, Amount: d("0")}, ledger.ErrInvalidAmount},
		{"below minimum", SubmitRequest{Asset: "USDT", Network: "ETH", Address: ethAddr, Amount: d("5")}, ledger.ErrBelowMinimum},
		{"above maximum", SubmitRequest{Asset: "USDT", Network: "ETH", Address: ethAddr, Amount: d("1000.01")}, ledger.ErrAboveMaximum},
		{"insufficient", SubmitRequest{Asset: "USDT", Network: "ETH", Address: ethAddr, Amount: d("100.0001")}, ledger.ErrInsufficientBalance},
		{"bad address", SubmitRequest{Asset: "USDT", Network: "ETH", Address: "0x1234", Amount: d("50")}, errno.ErrInvalidAddress},
		{"no limits", SubmitRequest{Asset: "USDT", Network: "TRON", Address: ethAddr, Amount: d("50")}, errno.ErrLimitsNotFound},
		{"bad idempotency key", SubmitRequest{Asset: "USDT", Network: "ETH", Address: ethAddr, Amount: d("50"), IdempotencyKey: "abc"}, errno.ErrBind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.fund(1, "USDT", "100")
			tt.req.UserID = 1

			_, err := f.withdraw.Submit(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			requireBalance(t, f.balance(t, 1, "USDT"), "100", "100", "0")
			assert.Empty(t, f.pendingOutbox(t))
		})
	}
}

func TestWithdrawSubmitIdempotency(t *testing.T) {
	f := newFixture(t)
	f.fund(1, "USDT", "100")
	ctx := context.Background()
	key := uuid.NewString()
	req := SubmitRequest{UserID: 1, Asset: "USDT", Network: "ETH", Address: ethAddr, Amount: d("30"), IdempotencyKey: key}

	first, err := f.withdraw.Submit(ctx, req)
	require.NoError(t, err)
	second, err := f.withdraw.Submit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	requireBalance(t, f.balance(t, 1, "USDT"), "100", "70", "30")

	req.Amount = d("31")
	_, err = f.withdraw.Submit(ctx, req)
	assert.ErrorIs(t, err, errno.ErrIdempotencyConflict)

	// 同一个 key 对另一个用户无效
	f.fund(2, "USDT", "100")
	req.UserID, req.Amount = 2, d("30")
	other, err := f.withdraw.Submit(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestWithdrawSubmitHaltedAccount(t *testing.T) {
	f := newFixture(t)
	acc := f.fund(1, "USDT", "100")
	require.NoError(t, f.store.HaltAccount(context.Background(), acc.ID, "drift"))

	_, err := f.withdraw.Submit(context.Background(), SubmitRequest{
		UserID: 1, Asset: "USDT", Network: "ETH", Address: ethAddr, Amount: d("50"),
	})
	assert.ErrorIs(t, err, ledger.ErrAccountHalted)
}

func TestWithdrawSubmitBank(t *testing.T) {
	f := newFixture(t)
	f.fund(1, "USDT", "100")
	ctx := context.Background()

	rec, err := f.withdraw.SubmitBank(ctx, BankSubmitRequest{
		UserID: 1, Asset: "USDT", BankName: "ICBC", AccountName: "Zhang San", CardNumber: visaCard, Amount: d("40.999"),
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.SourceBankWithdrawal, rec.Source)
	assert.Equal(t, ledger.BankNetwork, rec.Network)
	assert.Equal(t, "**** 1111", rec.Address)
	requireBalance(t, f.balance(t, 1, "USDT"), "100", "59.001", "40.999")

	banks, err := f.store.ListBankWithdrawals(ctx, 1, "USDT")
	require.NoError(t, err)
	require.Len(t, banks, 1)
	// 精度 2 位，只舍不入
	assert.True(t, banks[0].NetAmount.Equal(d("38.49")), banks[0].NetAmount.String())

	_, err = f.withdraw.SubmitBank(ctx, BankSubmitRequest{
		UserID: 1, Asset: "USDT", BankName: "ICBC", AccountName: "Zhang San", CardNumber: "4111111111111112", Amount: d("30"),
	})
	assert.ErrorIs(t, err, errno.ErrInvalidAddress)

	_, err = f.withdraw.SubmitBank(ctx, BankSubmitRequest{
		UserID: 1, Asset: "USDT", BankName: "ICBC", AccountName: "Zhang San", CardNumber: visaCard, Amount: d("10"),
	})
	assert.ErrorIs(t, err, ledger.ErrBelowMinimum)
}

func TestWithdrawCancel(t *testing.T) {
	f := newFixture(t)
	f.fund(1, "USDT", "100")
	ctx := context.Background()

	rec, err := f.withdraw.Submit(ctx, SubmitRequest{UserID: 1, Asset: "USDT", Network: "ETH", Address: ethAddr, Amount: d("60")})
	require.NoError(t, err)

	_, err = f.withdraw.Cancel(ctx, 2, ledger.SourceWithdrawal, rec.ID)
	assert.ErrorIs(t, err, errno.ErrNotFound)

	cancelled, err := f.withdraw.Cancel(ctx, 1, ledger.SourceWithdrawal, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.CompletedAt)
	requireBalance(t, f.balance(t, 1, "USDT"), "100", "100", "0")

	_, err = f.withdraw.Cancel(ctx, 1, ledger.SourceWithdrawal, rec.ID)
	assert.ErrorIs(t, err, ledger.ErrNotPending)
	requireBalance(t, f.balance(t, 1, "USDT"), "100", "100", "0")

	// 用户撤回不落审核记录
	reviews, err := f.store.ListReviews(ctx, string(ledger.SourceWithdrawal), rec.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestWithdrawCancelRecharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.deposit.SubmitRecharge(ctx, RechargeRequest{UserID: 1, Asset: "BTC", Network: "BTC", TxHash: "abc", Amount: d("1")})
	require.NoError(t, err)

	_, err = f.withdraw.Cancel(ctx, 1, ledger.SourceRecharge, rec.ID)
	assert.ErrorIs(t, err, ledger.ErrNotCancellable)
}
