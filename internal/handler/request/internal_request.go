package request

import "github.com/shopspring/decimal"

// ConfirmationRequest 链上索引器推送的确认数
type ConfirmationRequest struct {
	Chain         string          `json:"chain" binding:"required,asset"`
	TxHash        string          `json:"tx_hash" binding:"required,max=128"`
	UserID        uint64          `json:"user_id" binding:"required"`
	Asset         string          `json:"asset" binding:"required,asset"`
	Address       string          `json:"address" binding:"max=128"`
	Amount        decimal.Decimal `json:"amount"`
	Confirmations int             `json:"confirmations" binding:"gte=0"`
	Required      int             `json:"required" binding:"gte=0"`
}

// TradeRequest 撮合引擎推送的成交
type TradeRequest struct {
	UserID     uint64          `json:"user_id" binding:"required"`
	BaseAsset  string          `json:"base_asset" binding:"required,asset"`
	QuoteAsset string          `json:"quote_asset" binding:"required,asset,nefield=BaseAsset"`
	Side       string          `json:"side" binding:"required,oneof=buy sell"`
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	Fee        decimal.Decimal `json:"fee"`
	FeeAsset   string          `json:"fee_asset" binding:"omitempty,asset"`
}
