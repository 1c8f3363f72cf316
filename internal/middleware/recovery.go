package middleware

import (
	"fmt"
	"runtime/debug"

	"abroadhub/internal/logger"
	"abroadhub/internal/services"

	"github.com/gin-gonic/gin"
)

// PanicRecovery 把 panic 转成 Internal 错误，交给 ErrorHandler 输出
func PanicRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.WithField("request_id", GetRequestID(c)).
					WithField("stack", string(debug.Stack())).
					Errorf("panic recovered: %v", r)
				c.Error(services.Internal(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()

		c.Next()
	}
}
