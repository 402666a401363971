package routes

import (
	"github.com/gin-gonic/gin"

	"ledger-core/internal/handler"
)

// RegisterWalletRoutes 用户钱包路由，auth 为用户会话鉴权
func RegisterWalletRoutes(rg *gin.RouterGroup, h *handler.WalletHandler, auth gin.HandlerFunc) {
	walletGroup := rg.Group("/wallet", auth)
	{
		walletGroup.GET("/balance", h.Balance)
		walletGroup.GET("/history", h.History)
		walletGroup.POST("/withdraw", h.Withdraw)
		walletGroup.POST("/bank-withdraw", h.BankWithdraw)
		walletGroup.POST("/recharge", h.Recharge)
		walletGroup.GET("/deposits/:id/progress", h.DepositProgress)
		walletGroup.POST("/:kind/:id/cancel", h.Cancel)
	}
}
