package routes

import (
	"github.com/gin-gonic/gin"

	"ledger-core/internal/handler"
)

// RegisterAdminRoutes :kind 为 recharge / withdrawal / bank_withdrawal
func RegisterAdminRoutes(rg *gin.RouterGroup, h *handler.AdminHandler) {
	adminGroup := rg.Group("/admin", handler.AdminAuth())
	{
		adminGroup.GET("/:kind", h.List)
		adminGroup.POST("/:kind/:id/review", h.Review)
		adminGroup.GET("/:kind/:id/reviews", h.Reviews)
		adminGroup.DELETE("/:kind/:id", h.Delete)
	}
}
