package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ledger-core/pkg/errno"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/monitor"
)

// Response 统一响应结构，HTTP 状态码始终为 200，业务结果看 code
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	Data    interface{} `json:"data"`
}

// Page 列表接口的数据
type Page struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}

func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{} // 返回空对象而不是 null
	}
	c.JSON(http.StatusOK, Response{
		Code:    errno.OK.Code,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Error 业务错误按 errno 翻译；未知错误记日志后按内部错误返回
func Error(c *gin.Context, err error) {
	code, msg := errno.Decode(err)
	if code == errno.InternalServerError.Code {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		msg = errno.InternalServerError.Message
	}
	c.Set(monitor.ErrnoKey, code)
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: msg,
		Data:    gin.H{},
	})
}

// Abort 中间件使用: 写入错误并终止后续 handler
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
