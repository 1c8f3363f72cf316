package handlers

import (
	"errors"
	"fmt"
	"strings"

	"abroadhub/internal/middleware"
	"abroadhub/internal/services"
	"abroadhub/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	// Inject Current User
	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// fail 交给 ErrorHandler 统一输出
func fail(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}

// bindFailed 把绑定/校验错误转成 BadRequest
func bindFailed(c *gin.Context, err error) {
	fail(c, services.BadRequest(msg(err)))
}

func msg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return field + " is required"
		case "max":
			return field + " is too long"
		default:
			return fmt.Sprintf("%s is invalid", field)
		}
	}
	return "malformed request body"
}

// paramID 解析路由里的数字 ID
func paramID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.StringToUint(c.Param(name))
	if !ok {
		fail(c, services.BadRequest("invalid "+strings.ReplaceAll(name, "_", " ")))
	}
	return id, ok
}
