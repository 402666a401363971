package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/model"
	"ledger-core/pkg/errno"
)

func TestFromDeposit(t *testing.T) {
	rec, err := FromDeposit(model.Deposit{
		ID: 1, UserID: 2, Asset: "BTC", Network: "BTC", TxHash: "ff", Amount: d("0.5"),
		Status: 3, Confirmations: 2, RequiredConfirmations: 6, CreatedAt: at(10),
	})
	require.NoError(t, err)
	assert.Equal(t, KindDeposit, rec.Kind)
	assert.Equal(t, DirectionCredit, rec.Direction)
	assert.Equal(t, StatusConfirming, rec.Status)
	require.NotNil(t, rec.Confirmations)
	assert.Equal(t, 2, *rec.Confirmations)
	assert.Equal(t, 6, *rec.RequiredConfirmations)
	assert.Nil(t, rec.CompletedAt)
}

func TestFromWithdrawal_RejectedCarriesReason(t *testing.T) {
	rec, err := FromWithdrawal(model.Withdrawal{
		ID: 3, UserID: 2, Asset: "ETH", Network: "ETH", ToAddress: "0x1", Amount: d("1"), Fee: d("0.01"),
		Status: 2, RejectionReason: "risk", CreatedAt: at(10),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rec.Status)
	assert.Equal(t, "risk", rec.RejectionReason)
	assert.Equal(t, DirectionDebit, rec.Direction)

	_, err = FromWithdrawal(model.Withdrawal{ID: 4, Asset: "ETH", ToAddress: "0x1", Amount: d("-1"), CreatedAt: at(1)})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestFromTrade_Legs(t *testing.T) {
	sell := model.Trade{
		ID: 1, UserID: 2, BaseAsset: "ETH", QuoteAsset: "USDT", Side: model.SideSell,
		Price: d("2000"), Quantity: d("0.5"), Fee: d("0.001"), FeeAsset: "ETH", Status: 1, CreatedAt: at(5),
	}

	base, err := FromTrade(sell, "ETH")
	require.NoError(t, err)
	assert.Equal(t, DirectionDebit, base.Direction)
	assert.True(t, base.Amount.Equal(d("0.5")))
	assert.True(t, base.Fee.Equal(d("0.001")))
	require.NotNil(t, base.CompletedAt)

	quote, err := FromTrade(sell, "USDT")
	require.NoError(t, err)
	assert.Equal(t, DirectionCredit, quote.Direction)
	assert.True(t, quote.Amount.Equal(d("1000")))
	assert.True(t, quote.Fee.IsZero())

	_, err = FromTrade(sell, "BTC")
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestIsPseudoTrade(t *testing.T) {
	assert.True(t, IsPseudoTrade(model.Trade{Kind: "Deposit"}))
	assert.True(t, IsPseudoTrade(model.Trade{Kind: "withdraw"}))
	assert.False(t, IsPseudoTrade(model.Trade{Kind: "trade"}))
	assert.False(t, IsPseudoTrade(model.Trade{}))
}

func TestMaskCardNumber(t *testing.T) {
	assert.Equal(t, "**** 4321", MaskCardNumber("6222 8888 7777 4321"))
	assert.Equal(t, "123", MaskCardNumber("123"))
}

func TestParseSource(t *testing.T) {
	s, err := ParseSource("bank_withdrawal")
	require.NoError(t, err)
	assert.Equal(t, KindWithdraw, s.Kind())

	_, err = ParseSource("trade")
	assert.ErrorIs(t, err, errno.ErrBind)
}

func TestCloneIsDeep(t *testing.T) {
	rec, err := FromDeposit(model.Deposit{ID: 1, Asset: "BTC", TxHash: "a", Amount: d("1"), Confirmations: 1, RequiredConfirmations: 3, CreatedAt: at(1)})
	require.NoError(t, err)
	c := rec.Clone()
	*c.Confirmations = 3
	assert.Equal(t, 1, *rec.Confirmations)
}
