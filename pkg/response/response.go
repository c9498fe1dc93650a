// Package response 统一 HTTP JSON 响应格式
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/optionpricing/pkg/logger"
)

// CodeOK 成功响应的业务码
const CodeOK = "OK"

// Response 响应体
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success 200 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:      CodeOK,
		Message:   "success",
		Data:      data,
		RequestID: logger.RequestIDFromContext(c.Request.Context()),
	})
}

// ErrorWithStatus 指定 HTTP 状态码的错误响应
func ErrorWithStatus(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{
		Code:      code,
		Message:   message,
		RequestID: logger.RequestIDFromContext(c.Request.Context()),
	})
}
