package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"ledger-core/internal/model"
)

// WithdrawalRequest 用户提交的提现请求 (尚未入账)
type WithdrawalRequest struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
	Network string          `json:"network"`
}

// NetworkLimits 某币种某网络的提现限额，Fee 为固定金额
type NetworkLimits struct {
	MinWithdraw decimal.Decimal `json:"min_withdraw"`
	MaxWithdraw decimal.Decimal `json:"max_withdraw"`
	Fee         decimal.Decimal `json:"fee"`
	Precision   int32           `json:"precision"`
}

// LimitsFromModel 限额表 -> 校验用结构
func LimitsFromModel(l model.NetworkLimit) NetworkLimits {
	return NetworkLimits{
		MinWithdraw: l.MinWithdraw,
		MaxWithdraw: l.MaxWithdraw,
		Fee:         l.Fee,
		Precision:   l.Precision,
	}
}

// ValidRequest 校验通过、已计算到账金额的提现请求
type ValidRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
	NetAmount decimal.Decimal `json:"net_amount"`
	Address   string          `json:"address"`
	Network   string          `json:"network"`
}

// ValidateWithdrawal 校验并计价，纯函数，不修改任何余额
// 校验顺序固定，第一条失败即返回:
// 地址 -> 金额为正 -> 最小值 -> 最大值 -> 可用余额
// 最小值取 max(MinWithdraw, Fee)，比只比较 MinWithdraw 更严格，保证手续费能足额扣除
func ValidateWithdrawal(req WithdrawalRequest, limits NetworkLimits, available decimal.Decimal) (ValidRequest, error) {
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return ValidRequest{}, ErrMissingAddress
	}
	if !req.Amount.IsPositive() {
		return ValidRequest{}, ErrInvalidAmount
	}
	// 金额低于手续费时到账为 0 且手续费无法足额扣除，按低于最小值处理
	minimum := decimal.Max(limits.MinWithdraw, limits.Fee)
	if req.Amount.LessThan(minimum) {
		return ValidRequest{}, ErrBelowMinimum
	}
	if req.Amount.GreaterThan(limits.MaxWithdraw) {
		return ValidRequest{}, ErrAboveMaximum
	}
	if req.Amount.GreaterThan(available) {
		return ValidRequest{}, ErrInsufficientBalance
	}

	return ValidRequest{
		Amount:    req.Amount,
		Fee:       limits.Fee,
		NetAmount: NetAmount(req.Amount, limits.Fee, limits.Precision),
		Address:   address,
		Network:   req.Network,
	}, nil
}

// NetAmount = max(0, amount - fee)，按展示精度截断 (只舍不入，不能凭空产生价值)
func NetAmount(amount, fee decimal.Decimal, precision int32) decimal.Decimal {
	net := amount.Sub(fee)
	if net.IsNegative() {
		return decimal.Zero
	}
	if precision < 0 {
		precision = 0
	}
	return net.Truncate(precision)
}
