package handlers

import (
	"context"
	"net/http"

	"abroadhub/internal/services"

	"github.com/gin-gonic/gin"
)

// Health 存活检查；ping 为 nil 时只表示进程在
func Health(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				fail(c, services.Internal(err))
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
