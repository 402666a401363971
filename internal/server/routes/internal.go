package routes

import (
	"github.com/gin-gonic/gin"

	"ledger-core/internal/handler"
)

// RegisterInternalRoutes 只对内网开放: 索引器和撮合引擎
func RegisterInternalRoutes(rg *gin.RouterGroup, h *handler.InternalHandler, token string) {
	internalGroup := rg.Group("/internal", handler.InternalAuth(token))
	{
		internalGroup.POST("/deposits/confirmations", h.Confirmation)
		internalGroup.POST("/trades", h.Trade)
	}
}
