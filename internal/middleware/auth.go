package middleware

import (
	"errors"
	"strconv"

	"abroadhub/internal/logger"
	"abroadhub/internal/models"
	"abroadhub/internal/services"
	"abroadhub/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"
const ActorKey = "actor"

// SessionUserKey 登录模块写入会话的键
const SessionUserKey = "user_id"

// LoadUser retrieves user from session and sets to context
func LoadUser(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := sessionUserID(session.Get(SessionUserKey))
		if ok {
			user, err := users.FindUser(c.Request.Context(), userID)
			if err == nil {
				c.Set(CheckUserKey, user)
				c.Set(ActorKey, services.ActorFromUser(user))
			} else if !errors.Is(err, store.ErrNotFound) {
				logger.Log.WithError(err).WithField("user_id", userID).Warn("load session user failed")
			}
		}
		c.Next()
	}
}

// CurrentActor 未登录时返回零值 Actor
func CurrentActor(c *gin.Context) services.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if a, ok := v.(services.Actor); ok {
			return a
		}
	}
	return services.Actor{}
}

// CurrentUser 未登录时返回 nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentActor(c).Anonymous() {
			if IsHTMX(c) {
				c.Header("HX-Redirect", "/login")
			}
			c.Error(services.Unauthorized("login required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminRequired 仅管理员
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		switch {
		case actor.Anonymous():
			c.Error(services.Unauthorized("login required"))
			c.Abort()
			return
		case !actor.IsAdmin():
			c.Error(services.Forbidden("admin only"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func IsHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// sessionUserID 会话编码器可能把 uint 还原成别的数值类型
func sessionUserID(v interface{}) (uint, bool) {
	switch id := v.(type) {
	case uint:
		return id, id > 0
	case int:
		return uint(id), id > 0
	case int64:
		return uint(id), id > 0
	case uint64:
		return uint(id), id > 0
	case float64:
		return uint(id), id > 0
	case string:
		n, err := strconv.ParseUint(id, 10, 64)
		return uint(n), err == nil && n > 0
	}
	return 0, false
}

