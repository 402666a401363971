package ledger

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/model"
)

func bal(total, available, frozen string) Balance {
	return Balance{Total: d(total), Available: d(available), Frozen: d(frozen)}
}

func TestApplyMutation(t *testing.T) {
	b := bal("0", "0", "0")

	b, err := ApplyMutation(b, DepositCredit(d("100")))
	require.NoError(t, err)
	assert.True(t, b.Total.Equal(d("100")))
	assert.True(t, b.Available.Equal(d("100")))

	b, err = ApplyMutation(b, WithdrawFreeze(d("30")))
	require.NoError(t, err)
	assert.True(t, b.Available.Equal(d("70")))
	assert.True(t, b.Frozen.Equal(d("30")))

	b, err = ApplyMutation(b, WithdrawSettle(d("30")))
	require.NoError(t, err)
	assert.True(t, b.Total.Equal(d("70")))
	assert.True(t, b.Frozen.IsZero())
}

func TestApplyMutation_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		start Balance
		delta Delta
	}{
		{"freeze more than available", bal("10", "10", "0"), WithdrawFreeze(d("11"))},
		{"settle more than frozen", bal("10", "5", "5"), WithdrawSettle(d("6"))},
		{"release more than frozen", bal("10", "5", "5"), WithdrawRelease(d("6"))},
		{"trade leg overdraws", bal("10", "10", "0"), TradeLeg(d("-10.5"))},
		{"inconsistent delta", bal("10", "10", "0"), Delta{Cause: CauseTradeSettle, Available: d("1"), Total: d("2")}},
		{"unknown cause", bal("10", "10", "0"), Delta{Cause: "airdrop", Available: d("1"), Total: d("1")}},
		{"negative credit", bal("10", "10", "0"), DepositCredit(d("-1"))},
		{"already drifted", bal("11", "10", "0"), DepositCredit(d("1"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyMutation(tt.start, tt.delta)
			assert.ErrorIs(t, err, ErrInvariantViolation)
			assert.Equal(t, tt.start, got)
		})
	}
}

func TestCheckBalance_Epsilon(t *testing.T) {
	assert.NoError(t, CheckBalance(bal("1.000000000000000001", "1", "0")))
	assert.ErrorIs(t, CheckBalance(bal("1.00000000000000001", "1", "0")), ErrInvariantViolation)
	assert.ErrorIs(t, CheckBalance(bal("0", "1", "-1")), ErrInvariantViolation)
}

// 任意 充值到账 / 提现提交 / 提现完成 / 驳回 序列之后:
// total == available + frozen，且 total 的变化等于已完成入账减已完成出账
func TestBalanceConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		start := bal("100", "80", "20")
		b := start
		credits, debits := decimal.Zero, decimal.Zero
		var inFlight []decimal.Decimal

		for step := 0; step < 200; step++ {
			amount := decimal.New(int64(rng.Intn(5000)+1), -2)
			switch rng.Intn(4) {
			case 0:
				next, err := ApplyMutation(b, DepositCredit(amount))
				require.NoError(t, err)
				b = next
				credits = credits.Add(amount)
			case 1:
				next, err := ApplyMutation(b, WithdrawFreeze(amount))
				if amount.GreaterThan(b.Available) {
					require.ErrorIs(t, err, ErrInvariantViolation)
					continue
				}
				require.NoError(t, err)
				b = next
				inFlight = append(inFlight, amount)
			case 2, 3:
				if len(inFlight) == 0 {
					continue
				}
				i := rng.Intn(len(inFlight))
				w := inFlight[i]
				inFlight = append(inFlight[:i], inFlight[i+1:]...)
				delta := WithdrawRelease(w)
				settle := rng.Intn(2) == 0
				if settle {
					delta = WithdrawSettle(w)
				}
				next, err := ApplyMutation(b, delta)
				require.NoError(t, err)
				b = next
				if settle {
					debits = debits.Add(w)
				}
			}
			require.NoError(t, CheckBalance(b))
		}
		assert.True(t, b.Total.Sub(start.Total).Equal(credits.Sub(debits)),
			"round %d: total %s start %s credits %s debits %s", round, b.Total, start.Total, credits, debits)
	}
}

func TestBalanceOfAccount(t *testing.T) {
	acc := model.Account{UserID: 1, Asset: "BTC", Total: d("3"), Available: d("2"), Frozen: d("1"), Version: 4}
	b := BalanceOf(acc)
	require.NoError(t, CheckBalance(b))

	b, err := ApplyMutation(b, WithdrawFreeze(d("2")))
	require.NoError(t, err)
	b.WriteTo(&acc)
	assert.True(t, acc.Available.IsZero())
	assert.True(t, acc.Frozen.Equal(d("3")))
	assert.EqualValues(t, 4, acc.Version)
}
