package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/idgen"
)

// HeaderRequestID 请求 ID 头
const HeaderRequestID = "X-Request-ID"

// requestID 透传或生成请求 ID，写入响应头与 context 供日志提取
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = idgen.NewUUIDV7()
		}
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(clog.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// recovery panic 时记录日志并返回 500
func recovery(logger clog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.ErrorContext(c.Request.Context(), "panic recovered",
			clog.String("path", c.Request.URL.Path),
			clog.Any("panic", rec))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Code: CodeInternal, Message: "internal error"})
	})
}
