package model

import "time"

// Review 审核记录表 (每次管理员操作落一条，便于审计)
type Review struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind      string    `gorm:"type:varchar(32);not null;index:idx_review_record" json:"kind"` // recharge, withdrawal, bank_withdrawal
	RecordID  uint64    `gorm:"not null;index:idx_review_record" json:"record_id"`
	AdminID   uint64    `gorm:"not null;index" json:"admin_id"`
	Action    string    `gorm:"type:varchar(16);not null" json:"action"` // approve, reject, delete
	Remark    string    `gorm:"type:text" json:"remark"`
	CreatedAt time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}
