package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NetworkLimit 提现限额表 (币种 + 网络)，由运营在后台配置，账本只读
// 银行卡提现使用 Network = "BANK"
type NetworkLimit struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Asset       string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_limit_asset_network" json:"asset"`
	Network     string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_limit_asset_network" json:"network"`
	MinWithdraw decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"min_withdraw"`
	MaxWithdraw decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"max_withdraw"`
	Fee         decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"fee"` // 固定手续费，不是比例
	Precision   int32           `gorm:"not null" json:"precision"`                         // 展示精度 (小数位)
	Enabled     bool            `gorm:"not null" json:"enabled"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (NetworkLimit) TableName() string {
	return "network_limits"
}
