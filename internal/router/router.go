package router

import (
	"context"

	"abroadhub/internal/handlers"
	"abroadhub/internal/logger"
	"abroadhub/internal/middleware"
	"abroadhub/internal/services"
	"abroadhub/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const SessionName = "abroadhub_session"

// Deps 路由需要的全部依赖
type Deps struct {
	Comments      *services.CommentService
	Users         store.UserStore
	SessionSecret string
	TemplatesDir  string // 为空时不加载模板，只提供 JSON
	Ping          func(ctx context.Context) error
}

// New 组装 gin 引擎：中间件顺序为 请求ID -> 访问日志 -> 错误输出 -> panic 恢复 -> 会话 -> 当前用户
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.ErrorHandler(),
		middleware.PanicRecovery(),
	)
	r.Use(sessions.Sessions(SessionName, cookie.NewStore([]byte(d.SessionSecret))))
	r.Use(middleware.LoadUser(d.Users))

	if err := handlers.RegisterValidators(); err != nil {
		logger.Log.WithError(err).Fatal("register validators failed")
	}
	if d.TemplatesDir != "" {
		r.HTMLRender = LoadTemplates(d.TemplatesDir)
	}

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Handlers
	commentHandler := handlers.NewCommentHandler(d.Comments)
	adminHandler := handlers.NewAdminHandler(d.Comments)

	r.GET("/healthz", handlers.Health(d.Ping)) // 存活检查

	// 公共路由 (Public Routes)
	r.GET("/posts/:post_id/comments", commentHandler.ListThread) // 一级评论分页
	r.GET("/comments/:id", commentHandler.Get)                   // 单条评论
	r.GET("/comments/:id/replies", commentHandler.Replies)       // 展开回复

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts/:post_id/comments", commentHandler.Create) // 发表评论/回复
		authorized.PATCH("/comments/:id", commentHandler.Edit)             // 编辑评论
		authorized.DELETE("/comments/:id", commentHandler.Delete)          // 删除评论（软删除）
		authorized.POST("/comments/:id/vote", commentHandler.Vote)         // 赞/踩/取消
		authorized.POST("/comments/:id/report", commentHandler.Report)     // 举报
	}

	// 管理路由 (Admin Routes)
	admin := r.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/reports", adminHandler.ListReports)          // 举报列表
		admin.DELETE("/reports/:id", adminHandler.DismissReport) // 处理/忽略举报
	}
}
