package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 各张表的 Status 都是原始整数编码，不同表含义不同，
// 统一翻译见 internal/ledger/status.go，调用方不要直接判断这些数字。

// Deposit 充值记录表 (链上检测到的充值，或用户提交待审核的充值)
type Deposit struct {
	ID                    uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                uint64          `gorm:"not null;index:idx_deposit_user_asset" json:"user_id"`
	Asset                 string          `gorm:"type:varchar(20);not null;index:idx_deposit_user_asset" json:"asset"`
	Network               string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_deposit_chain_tx,where:status <> 4" json:"network"`
	Address               string          `gorm:"type:varchar(255)" json:"address"`
	TxHash                string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_deposit_chain_tx,where:status <> 4" json:"tx_hash"` // 作废 (4) 的申请不占用唯一键
	Amount                decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"amount"`
	Fee                   decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"fee"`
	Status                int             `gorm:"not null;default:0;index" json:"status"` // 0 pending, 1 processing, 2 completed, 3 confirming, 4 failed
	Confirmations         int             `gorm:"not null;default:0" json:"confirmations"`
	RequiredConfirmations int             `gorm:"not null;default:0" json:"required_confirmations"`
	RejectionReason       string          `gorm:"type:text" json:"rejection_reason,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty"`
}

// Withdrawal 提现记录表 (链上提现)
type Withdrawal struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint64          `gorm:"not null;index:idx_withdrawal_user_asset;uniqueIndex:idx_withdrawal_idem" json:"user_id"`
	Asset           string          `gorm:"type:varchar(20);not null;index:idx_withdrawal_user_asset" json:"asset"`
	Network         string          `gorm:"type:varchar(20);not null" json:"network"`
	ToAddress       string          `gorm:"type:varchar(255);not null" json:"to_address"`
	Amount          decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"amount"`     // 含手续费
	Fee             decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"fee"`        // 网络固定手续费
	NetAmount       decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"net_amount"` // 实际到账
	TxHash          string          `gorm:"type:varchar(255)" json:"tx_hash"`               // 提现发出后的 Hash
	Status          int             `gorm:"not null;default:0;index" json:"status"`         // 0 pending, 1 completed, 2 rejected, 3 cancelled, 4 processing, 5 failed
	RejectionReason string          `gorm:"type:text" json:"rejection_reason,omitempty"`
	IdempotencyKey  *string         `gorm:"type:varchar(64);uniqueIndex:idx_withdrawal_idem" json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// BankWithdrawal 银行卡提现记录表，状态编码与 Withdrawal 相同
type BankWithdrawal struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint64          `gorm:"not null;index:idx_bank_user_asset;uniqueIndex:idx_bank_idem" json:"user_id"`
	Asset           string          `gorm:"type:varchar(20);not null;index:idx_bank_user_asset" json:"asset"`
	BankName        string          `gorm:"type:varchar(100);not null" json:"bank_name"`
	AccountName     string          `gorm:"type:varchar(100);not null" json:"account_name"`
	CardNumber      string          `gorm:"type:varchar(64);not null" json:"card_number"`
	Amount          decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"amount"`
	Fee             decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"fee"`
	NetAmount       decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"net_amount"`
	Status          int             `gorm:"not null;default:0;index" json:"status"`
	RejectionReason string          `gorm:"type:text" json:"rejection_reason,omitempty"`
	IdempotencyKey  *string         `gorm:"type:varchar(64);uniqueIndex:idx_bank_idem" json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// 成交方向
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade 成交记录 (撮合已完成的事实，这里只做对账)
// Kind 正常为 "trade"；上游有时会把划转也写成伪成交 ("deposit" / "withdraw")
type Trade struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint64          `gorm:"not null;index" json:"user_id"`
	Kind       string          `gorm:"type:varchar(16);not null;default:'trade'" json:"kind"`
	BaseAsset  string          `gorm:"type:varchar(20);not null;index" json:"base_asset"`
	QuoteAsset string          `gorm:"type:varchar(20);not null;index" json:"quote_asset"`
	Side       string          `gorm:"type:varchar(8);not null" json:"side"`
	Price      decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"price"`
	Quantity   decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"quantity"`
	Fee        decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"fee"`
	FeeAsset   string          `gorm:"type:varchar(20)" json:"fee_asset"`
	Status     int             `gorm:"not null" json:"status"` // 0 pending, 1 completed, 2 cancelled, 3 failed
	CreatedAt  time.Time       `json:"created_at"`
}

func (Deposit) TableName() string {
	return "deposits"
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}

func (BankWithdrawal) TableName() string {
	return "bank_withdrawals"
}

func (Trade) TableName() string {
	return "trades"
}
