package request

import "github.com/shopspring/decimal"

// 金额的正负、上下限在 service 层按限额表校验，这里只做格式校验

// WithdrawRequest 链上提现
type WithdrawRequest struct {
	Asset   string          `json:"asset" binding:"required,asset"`
	Network string          `json:"network" binding:"required,asset"`
	Address string          `json:"address"` // 为空时由 service 返回 ErrMissingAddress
	Amount  decimal.Decimal `json:"amount"`
}

// BankWithdrawRequest 银行卡提现
type BankWithdrawRequest struct {
	Asset       string          `json:"asset" binding:"required,asset"`
	BankName    string          `json:"bank_name" binding:"required,max=64"`
	AccountName string          `json:"account_name" binding:"required,max=64"`
	CardNumber  string          `json:"card_number" binding:"required,min=12,max=32"`
	Amount      decimal.Decimal `json:"amount"`
}

// RechargeRequest 用户提交的充值凭证
type RechargeRequest struct {
	Asset   string          `json:"asset" binding:"required,asset"`
	Network string          `json:"network" binding:"required,asset"`
	TxHash  string          `json:"tx_hash" binding:"required,max=128"`
	Address string          `json:"address" binding:"max=128"`
	Amount  decimal.Decimal `json:"amount"`
}

// AssetQuery ?asset=USDT
type AssetQuery struct {
	Asset string `form:"asset" binding:"omitempty,asset"`
}
