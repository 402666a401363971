package monitor

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrnoKey handler 写错误响应时把业务错误码放进 gin.Context，成功响应不设置 (记为 0)
const ErrnoKey = "ledger.errno"

// HTTPMetrics 接口层指标。HTTP 状态码恒为 200，失败要看 errno 标签
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// HTTP 全局接口指标，包加载时注册到默认 Registry
var HTTP = newHTTPMetrics()

func newHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "HTTP requests by route and business error code",
		}, []string{"method", "route", "errno"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.05, 0.1, 0.3, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"}),
	}
}

// PrometheusMiddleware 按路由模板 (/admin/:kind/:id) 统计，未匹配的路由不计
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()

		c.Next()

		if route == "" {
			return
		}
		code := strconv.Itoa(c.GetInt(ErrnoKey))
		HTTP.RequestsTotal.WithLabelValues(c.Request.Method, route, code).Inc()
		HTTP.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
