package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account 资产账户表 (每个用户每个币种一行)
// 核心设计: Total = Available + Frozen 恒成立，Version 字段实现乐观锁
type Account struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint64          `gorm:"not null;uniqueIndex:idx_user_asset" json:"user_id"`
	Asset      string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_user_asset" json:"asset"` // BTC, ETH, USDT
	Total      decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"total"`
	Available  decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"available"`
	Frozen     decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"frozen"` // 提现冻结
	Version    uint64          `gorm:"not null;default:0" json:"version"`                     // 乐观锁版本号
	Halted     bool            `gorm:"not null;default:false" json:"halted"`                  // 对账发现漂移后停止变更
	HaltReason string          `gorm:"type:text" json:"halt_reason,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}
