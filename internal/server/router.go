package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "ledger-core/docs/swagger"

	"ledger-core/internal/handler"
	"ledger-core/internal/handler/response"
	"ledger-core/internal/server/routes"
	"ledger-core/internal/service"
	"ledger-core/pkg/monitor"
	"ledger-core/pkg/validator"
)

// Handlers 路由依赖
type Handlers struct {
	Wallet        *handler.WalletHandler
	Admin         *handler.AdminHandler
	Internal      *handler.InternalHandler
	Identity      service.IdentityResolver
	InternalToken string
}

// NewHTTPRouter 初始化并返回一个 Gin Engine
func NewHTTPRouter(h Handlers) *gin.Engine {
	validator.Init()

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(monitor.PrometheusMiddleware())

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	{
		api.GET("/ping", func(c *gin.Context) {
			response.Success(c, gin.H{"pong": true})
		})

		routes.RegisterWalletRoutes(api, h.Wallet, handler.UserAuth(h.Identity))
		routes.RegisterAdminRoutes(api, h.Admin)
		routes.RegisterInternalRoutes(api, h.Internal, h.InternalToken)
	}

	return r
}
