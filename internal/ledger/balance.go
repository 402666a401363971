package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ledger-core/internal/model"
)

// Epsilon 判断 total == available + frozen 时允许的误差
var Epsilon = decimal.New(1, -18)

// Balance 某用户某币种的余额
type Balance struct {
	Total     decimal.Decimal `json:"total"`
	Available decimal.Decimal `json:"available"`
	Frozen    decimal.Decimal `json:"frozen"`
}

// BalanceOf 账户表 -> 余额
func BalanceOf(acc model.Account) Balance {
	return Balance{Total: acc.Total, Available: acc.Available, Frozen: acc.Frozen}
}

// WriteTo 把余额写回账户表 (不修改版本号)
func (b Balance) WriteTo(acc *model.Account) {
	acc.Total = b.Total
	acc.Available = b.Available
	acc.Frozen = b.Frozen
}

// Cause 余额变动原因，只有这几种
type Cause string

const (
	CauseDepositCredit   Cause = "deposit_credit"   // 充值到账: available+, total+
	CauseWithdrawFreeze  Cause = "withdraw_freeze"  // 提现提交: available- frozen+
	CauseWithdrawSettle  Cause = "withdraw_settle"  // 提现完成: frozen-, total-
	CauseWithdrawRelease Cause = "withdraw_release" // 提现驳回/取消: frozen-, available+
	CauseTradeSettle     Cause = "trade_settle"     // 成交结算: available±, total±
)

// Delta 一次余额变动
type Delta struct {
	Cause     Cause           `json:"cause"`
	Available decimal.Decimal `json:"available"`
	Frozen    decimal.Decimal `json:"frozen"`
	Total     decimal.Decimal `json:"total"`
}

func DepositCredit(amount decimal.Decimal) Delta {
	return Delta{Cause: CauseDepositCredit, Available: amount, Frozen: decimal.Zero, Total: amount}
}

func WithdrawFreeze(amount decimal.Decimal) Delta {
	return Delta{Cause: CauseWithdrawFreeze, Available: amount.Neg(), Frozen: amount, Total: decimal.Zero}
}

func WithdrawSettle(amount decimal.Decimal) Delta {
	return Delta{Cause: CauseWithdrawSettle, Available: decimal.Zero, Frozen: amount.Neg(), Total: amount.Neg()}
}

func WithdrawRelease(amount decimal.Decimal) Delta {
	return Delta{Cause: CauseWithdrawRelease, Available: amount, Frozen: amount.Neg(), Total: decimal.Zero}
}

// TradeLeg 成交某一侧的净变动 (可正可负)
func TradeLeg(change decimal.Decimal) Delta {
	return Delta{Cause: CauseTradeSettle, Available: change, Frozen: decimal.Zero, Total: change}
}

func closeEnough(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}

// CheckBalance 校验余额本身满足不变量
func CheckBalance(b Balance) error {
	if b.Available.IsNegative() {
		return fmt.Errorf("%w: available %s < 0", ErrInvariantViolation, b.Available)
	}
	if b.Frozen.IsNegative() {
		return fmt.Errorf("%w: frozen %s < 0", ErrInvariantViolation, b.Frozen)
	}
	if !closeEnough(b.Total, b.Available.Add(b.Frozen)) {
		return fmt.Errorf("%w: total %s != available %s + frozen %s", ErrInvariantViolation, b.Total, b.Available, b.Frozen)
	}
	return nil
}

// checkShape 变动必须符合其原因对应的形状
func checkShape(d Delta) error {
	var ok bool
	switch d.Cause {
	case CauseDepositCredit:
		ok = d.Frozen.IsZero() && !d.Available.IsNegative()
	case CauseWithdrawFreeze:
		ok = d.Total.IsZero() && !d.Available.IsPositive()
	case CauseWithdrawSettle:
		ok = d.Available.IsZero() && !d.Frozen.IsPositive()
	case CauseWithdrawRelease:
		ok = d.Total.IsZero() && !d.Available.IsNegative()
	case CauseTradeSettle:
		ok = d.Frozen.IsZero()
	default:
		return fmt.Errorf("%w: unknown mutation cause %q", ErrInvariantViolation, d.Cause)
	}
	if !ok {
		return fmt.Errorf("%w: delta %+v does not match cause %s", ErrInvariantViolation, d, d.Cause)
	}
	if !closeEnough(d.Total, d.Available.Add(d.Frozen)) {
		return fmt.Errorf("%w: inconsistent delta total %s != %s + %s", ErrInvariantViolation, d.Total, d.Available, d.Frozen)
	}
	return nil
}

// ApplyMutation 账本最后一道防线: 任何余额变动都必须经过这里
// 变动前后都必须满足 total == available + frozen，且 available / frozen 不为负
func ApplyMutation(b Balance, d Delta) (Balance, error) {
	if err := CheckBalance(b); err != nil {
		return b, fmt.Errorf("balance before %s: %w", d.Cause, err)
	}
	if err := checkShape(d); err != nil {
		return b, err
	}
	next := Balance{
		Total:     b.Total.Add(d.Total),
		Available: b.Available.Add(d.Available),
		Frozen:    b.Frozen.Add(d.Frozen),
	}
	if err := CheckBalance(next); err != nil {
		return b, fmt.Errorf("balance after %s: %w", d.Cause, err)
	}
	return next, nil
}
