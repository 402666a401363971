package handler

import (
	"github.com/gin-gonic/gin"

	"ledger-core/internal/handler/request"
	"ledger-core/internal/handler/response"
	"ledger-core/internal/service"
)

// InternalHandler 内部服务推送 (索引器确认数、撮合成交)，路由上挂 InternalAuth
type InternalHandler struct {
	deposit *service.DepositService
	trade   *service.TradeService
}

func NewInternalHandler(deposit *service.DepositService, trade *service.TradeService) *InternalHandler {
	return &InternalHandler{deposit: deposit, trade: trade}
}

// Confirmation 与 MQ 消费走同一个幂等入口
// @Router /api/v1/internal/deposits/confirmations [post]
func (h *InternalHandler) Confirmation(c *gin.Context) {
	var req request.ConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	rec, err := h.deposit.ApplyConfirmation(c.Request.Context(), service.ConfirmationNotice{
		Network:       req.Chain,
		TxHash:        req.TxHash,
		UserID:        req.UserID,
		Asset:         req.Asset,
		Address:       req.Address,
		Amount:        req.Amount,
		Confirmations: req.Confirmations,
		Required:      req.Required,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rec)
}

// Trade 成交结算
// @Router /api/v1/internal/trades [post]
func (h *InternalHandler) Trade(c *gin.Context) {
	var req request.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	t, err := h.trade.Settle(c.Request.Context(), service.SettleRequest{
		UserID:     req.UserID,
		BaseAsset:  req.BaseAsset,
		QuoteAsset: req.QuoteAsset,
		Side:       req.Side,
		Price:      req.Price,
		Quantity:   req.Quantity,
		Fee:        req.Fee,
		FeeAsset:   req.FeeAsset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, t)
}
