package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/event"
	"ledger-core/internal/ledger"
	"ledger-core/internal/service/mq"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/monitor"
)

func notice(confirmations, required int) ConfirmationNotice {
	return ConfirmationNotice{
		Network: "eth", TxHash: "0xabc", UserID: 7, Asset: "usdt", Address: ethAddr,
		Amount: d("250"), Confirmations: confirmations, Required: required,
	}
}

func TestApplyConfirmationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.deposit.ApplyConfirmation(ctx, notice(2, 6))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusConfirming, rec.Status)
	assert.Equal(t, "USDT", rec.Asset)
	assert.Equal(t, "ETH", rec.Network)

	progress, err := f.deposit.Progress(ctx, 7, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 33, progress.Progress)
	assert.True(t, progress.Confirming)

	_, err = f.store.GetAccount(ctx, 7, "USDT")
	assert.ErrorIs(t, err, errno.ErrNotFound)

	rec, err = f.deposit.ApplyConfirmation(ctx, notice(6, 6))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, rec.Status)
	require.NotNil(t, rec.CompletedAt)
	requireBalance(t, f.balance(t, 7, "USDT"), "250", "250", "0")

	// 终态之后的推送不再入账
	again, err := f.deposit.ApplyConfirmation(ctx, notice(7, 6))
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)
	assert.Equal(t, ledger.StatusCompleted, again.Status)
	requireBalance(t, f.balance(t, 7, "USDT"), "250", "250", "0")

	progress, err = f.deposit.Progress(ctx, 7, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, progress.Progress)
	assert.False(t, progress.Confirming)

	var types []string
	for _, msg := range f.pendingOutbox(t) {
		var env event.Envelope
		require.NoError(t, json.Unmarshal(msg.Payload, &env))
		types = append(types, env.Type)
	}
	assert.Equal(t, []string{event.TypeRecordTransitioned, event.TypeDepositCredited}, types)

	// 自动确认不落审核记录
	reviews, err := f.store.ListReviews(ctx, string(ledger.SourceRecharge), rec.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestApplyConfirmationWithoutRequirement(t *testing.T) {
	f := newFixture(t)
	rec, err := f.deposit.ApplyConfirmation(context.Background(), notice(0, 0))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, rec.Status)
	requireBalance(t, f.balance(t, 7, "USDT"), "250", "250", "0")
}

func TestApplyConfirmationRejectsMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.deposit.ApplyConfirmation(ctx, notice(1, 6))
	require.NoError(t, err)

	before := testutil.ToFloat64(monitor.Business.ConfirmationConflicts.WithLabelValues("ETH"))

	n := notice(2, 6)
	n.Amount = d("260")
	_, err = f.deposit.ApplyConfirmation(ctx, n)
	assert.ErrorIs(t, err, ledger.ErrConfirmationConflict)

	n = notice(2, 6)
	n.UserID = 8
	_, err = f.deposit.ApplyConfirmation(ctx, n)
	assert.ErrorIs(t, err, ledger.ErrConfirmationConflict)

	assert.Equal(t, before+2, testutil.ToFloat64(monitor.Business.ConfirmationConflicts.WithLabelValues("ETH")))

	n = notice(2, 6)
	n.TxHash = " "
	_, err = f.deposit.ApplyConfirmation(ctx, n)
	assert.ErrorIs(t, err, errno.ErrBind)
}

func TestConfirmationSupersedesForeignClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 用户 9 抢先用别人的交易提交充值申请
	claim, err := f.deposit.SubmitRecharge(ctx, RechargeRequest{UserID: 9, Asset: "USDT", Network: "ETH", TxHash: "0xabc", Amount: d("250")})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, claim.Status)

	payload, err := json.Marshal(notice(12, 12))
	require.NoError(t, err)
	consumer := &fakeConsumer{messages: []*mq.Message{{ID: "1", Payload: payload}}}
	require.NoError(t, f.deposit.Listen(ctx, consumer, "chain_confirmations"))
	require.Len(t, consumer.results, 1)
	require.NoError(t, consumer.results[0])

	// 链上归属用户入账，申请作废
	requireBalance(t, f.balance(t, 7, "USDT"), "250", "250", "0")
	failed, err := f.store.GetRecord(ctx, ledger.SourceRecharge, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusFailed, failed.Status)
	assert.NotEmpty(t, failed.RejectionReason)

	_, err = f.admin.Approve(ctx, 1, ledger.SourceRecharge, claim.ID, "")
	assert.ErrorIs(t, err, ledger.ErrNotPending)
	_, err = f.store.GetAccount(ctx, 9, "USDT")
	assert.ErrorIs(t, err, errno.ErrNotFound)

	// 重复推送命中新建的记录，不会再次入账
	again, err := f.deposit.ApplyConfirmation(ctx, notice(13, 12))
	require.NoError(t, err)
	assert.NotEqual(t, claim.ID, again.ID)
	assert.Equal(t, ledger.StatusCompleted, again.Status)
	requireBalance(t, f.balance(t, 7, "USDT"), "250", "250", "0")
}

func TestConfirmationTakesOverMatchingClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	claim, err := f.deposit.SubmitRecharge(ctx, RechargeRequest{UserID: 7, Asset: "usdt", Network: "eth", TxHash: "0xabc", Amount: d("250")})
	require.NoError(t, err)

	rec, err := f.deposit.ApplyConfirmation(ctx, notice(2, 6))
	require.NoError(t, err)
	assert.Equal(t, claim.ID, rec.ID)
	assert.Equal(t, ledger.StatusConfirming, rec.Status)
	require.NotNil(t, rec.Confirmations)
	assert.Equal(t, 2, *rec.Confirmations)

	// 索引器接管之后，管理员不能再通过同一笔申请
	_, err = f.admin.Approve(ctx, 1, ledger.SourceRecharge, claim.ID, "")
	assert.ErrorIs(t, err, ledger.ErrNotPending)

	rec, err = f.deposit.ApplyConfirmation(ctx, notice(6, 6))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, rec.Status)
	requireBalance(t, f.balance(t, 7, "USDT"), "250", "250", "0")
}

func TestSubmitRechargeForReportedTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.deposit.ApplyConfirmation(ctx, notice(1, 6))
	require.NoError(t, err)

	_, err = f.deposit.SubmitRecharge(ctx, RechargeRequest{UserID: 9, Asset: "USDT", Network: "ETH", TxHash: "0xabc", Amount: d("250")})
	assert.ErrorIs(t, err, errno.ErrDepositExists)
}

func TestDepositProgressOtherUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.deposit.ApplyConfirmation(ctx, notice(3, 12))
	require.NoError(t, err)

	_, err = f.deposit.Progress(ctx, 8, rec.ID)
	assert.ErrorIs(t, err, errno.ErrNotFound)
	_, err = f.deposit.Progress(ctx, 7, rec.ID+100)
	assert.ErrorIs(t, err, errno.ErrNotFound)

	p, err := f.deposit.Progress(ctx, 7, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, p.Progress)
	assert.Equal(t, 12, p.RequiredConfirmations)
}

// fakeConsumer 把预置的消息依次交给 handler，记录每条的处理结果
type fakeConsumer struct {
	messages []*mq.Message
	results  []error
}

func (c *fakeConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *mq.Message) error) error {
	for _, msg := range c.messages {
		msg.Topic = topic
		c.results = append(c.results, handler(msg))
	}
	return nil
}

func (c *fakeConsumer) Close() error { return nil }

func TestDepositListen(t *testing.T) {
	f := newFixture(t)
	good, err := json.Marshal(notice(6, 6))
	require.NoError(t, err)
	invalid, err := json.Marshal(ConfirmationNotice{Network: "ETH", TxHash: "0xdef", Asset: "USDT", Amount: d("1")})
	require.NoError(t, err)
	other := notice(6, 6)
	other.UserID = 8
	conflicting, err := json.Marshal(other)
	require.NoError(t, err)

	consumer := &fakeConsumer{messages: []*mq.Message{
		{ID: "1", Payload: []byte("{not json")},
		{ID: "2", Payload: invalid},
		{ID: "3", Payload: good},
		{ID: "4", Payload: good},
		{ID: "5", Payload: conflicting},
	}}
	require.NoError(t, f.deposit.Listen(context.Background(), consumer, "chain_confirmations"))

	require.Len(t, consumer.results, 5)
	for i, err := range consumer.results[:4] {
		assert.NoError(t, err, "message %d", i+1)
	}
	// 与已入账记录冲突的推送不确认，留给人工处理
	assert.ErrorIs(t, consumer.results[4], ledger.ErrConfirmationConflict)
	requireBalance(t, f.balance(t, 7, "USDT"), "250", "250", "0")
}
