package middleware

import (
	"net/http"

	"abroadhub/internal/services"

	"github.com/gin-gonic/gin"
)

// StatusOf maps an error kind onto an HTTP status.
func StatusOf(kind services.Kind) int {
	switch kind {
	case services.KindBadRequest:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// ErrorHandler 统一输出 {"error": {"code", "message", "request_id"}}
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		kind := services.KindOf(err)
		c.JSON(StatusOf(kind), gin.H{
			"error": gin.H{
				"code":       kind,
				"message":    services.MessageOf(err),
				"request_id": GetRequestID(c),
			},
		})
	}
}
