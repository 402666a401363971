package handler

import (
	"github.com/gin-gonic/gin"

	"ledger-core/internal/handler/request"
	"ledger-core/internal/handler/response"
	"ledger-core/internal/ledger"
	"ledger-core/internal/service"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/validator"
)

// WalletHandler 用户侧接口，路由上必须挂 UserAuth
type WalletHandler struct {
	withdraw *service.WithdrawService
	deposit  *service.DepositService
	history  *service.HistoryService
}

func NewWalletHandler(withdraw *service.WithdrawService, deposit *service.DepositService, history *service.HistoryService) *WalletHandler {
	return &WalletHandler{withdraw: withdraw, deposit: deposit, history: history}
}

func bindError(err error) error {
	return errno.ErrBind.WithMessage(validator.GetErrorMsg(err))
}

// Balance 查询余额
// @Router /api/v1/wallet/balance [get]
func (h *WalletHandler) Balance(c *gin.Context) {
	var q request.AssetQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err))
		return
	}
	balances, err := h.history.Balances(c.Request.Context(), c.GetUint64(ctxUserID), q.Asset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, balances)
}

// History 某币种的资金流水，按时间倒序
// @Router /api/v1/wallet/history [get]
func (h *WalletHandler) History(c *gin.Context) {
	var q request.AssetQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err))
		return
	}
	if q.Asset == "" {
		response.Error(c, errno.ErrBind.WithMessage("asset 不能为空"))
		return
	}
	records, err := h.history.Build(c.Request.Context(), c.GetUint64(ctxUserID), q.Asset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, records)
}

// Withdraw 申请链上提现，可带 Idempotency-Key
// @Router /api/v1/wallet/withdraw [post]
func (h *WalletHandler) Withdraw(c *gin.Context) {
	var req request.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	rec, err := h.withdraw.Submit(c.Request.Context(), service.SubmitRequest{
		UserID:         c.GetUint64(ctxUserID),
		Asset:          req.Asset,
		Network:        req.Network,
		Address:        req.Address,
		Amount:         req.Amount,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rec)
}

// BankWithdraw 申请银行卡提现
// @Router /api/v1/wallet/bank-withdraw [post]
func (h *WalletHandler) BankWithdraw(c *gin.Context) {
	var req request.BankWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	rec, err := h.withdraw.SubmitBank(c.Request.Context(), service.BankSubmitRequest{
		UserID:         c.GetUint64(ctxUserID),
		Asset:          req.Asset,
		BankName:       req.BankName,
		AccountName:    req.AccountName,
		CardNumber:     req.CardNumber,
		Amount:         req.Amount,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rec)
}

// Cancel 撤回自己尚未审核的提现
// @Router /api/v1/wallet/{kind}/{id}/cancel [post]
func (h *WalletHandler) Cancel(c *gin.Context) {
	source, err := ledger.ParseSource(c.Param("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rec, err := h.withdraw.Cancel(c.Request.Context(), c.GetUint64(ctxUserID), source, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rec)
}

// Recharge 提交充值凭证，等待人工审核
// @Router /api/v1/wallet/recharge [post]
func (h *WalletHandler) Recharge(c *gin.Context) {
	var req request.RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	rec, err := h.deposit.SubmitRecharge(c.Request.Context(), service.RechargeRequest{
		UserID:  c.GetUint64(ctxUserID),
		Asset:   req.Asset,
		Network: req.Network,
		TxHash:  req.TxHash,
		Address: req.Address,
		Amount:  req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, rec)
}

// DepositProgress 充值确认进度
// @Router /api/v1/wallet/deposits/{id}/progress [get]
func (h *WalletHandler) DepositProgress(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	progress, err := h.deposit.Progress(c.Request.Context(), c.GetUint64(ctxUserID), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, progress)
}
