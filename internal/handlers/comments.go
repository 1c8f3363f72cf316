package handlers

import (
	"net/http"
	"strconv"

	"abroadhub/internal/middleware"
	"abroadhub/internal/services"
	"abroadhub/internal/utils"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	svc *services.CommentService
}

func NewCommentHandler(svc *services.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

type createCommentRequest struct {
	Content    string `json:"content" form:"content" binding:"required"`
	ParentID   *uint  `json:"parent_id" form:"parent_id"`
	IsMarkdown bool   `json:"is_markdown" form:"is_markdown"`
}

type editCommentRequest struct {
	Content    string `json:"content" form:"content" binding:"required"`
	IsMarkdown bool   `json:"is_markdown" form:"is_markdown"`
}

type voteRequest struct {
	VoteType *int8 `json:"vote_type" form:"vote_type" binding:"required,vote_type"`
}

type reportRequest struct {
	Reason string `json:"reason" form:"reason" binding:"required,max=200"`
}

// ListThread 帖子的一级评论
func (h *CommentHandler) ListThread(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		return
	}
	page := utils.IntInRange(c.Query("page"), 1, 1, 1<<20)
	limit := utils.StringToInt(c.Query("limit"))

	tp, err := h.svc.FetchThread(c.Request.Context(), middleware.CurrentActor(c), postID, c.Query("sort"), page, limit)
	if err != nil {
		fail(c, err)
		return
	}

	dto := newThreadDTO(tp)
	if middleware.IsHTMX(c) {
		Render(c, http.StatusOK, "comments/thread.html", gin.H{"Thread": dto})
		return
	}
	c.JSON(http.StatusOK, dto)
}

// Replies 展开一层回复，depth 是父评论所在深度，缺省时由服务端计算
func (h *CommentHandler) Replies(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	depth := -1
	if d := c.Query("depth"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n >= 0 {
			depth = n
		}
	}

	page := utils.IntInRange(c.Query("page"), 1, 1, 1<<20)
	limit := utils.StringToInt(c.Query("limit"))

	tp, err := h.svc.FetchReplies(c.Request.Context(), middleware.CurrentActor(c), id, c.Query("sort"), page, limit, depth)
	if err != nil {
		fail(c, err)
		return
	}

	dto := newThreadDTO(tp)
	if middleware.IsHTMX(c) {
		Render(c, http.StatusOK, "comments/replies.html", gin.H{"Thread": dto})
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *CommentHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	node, err := h.svc.Get(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newNodeDTO(node))
}

// Create 发表评论，parent_id 为空是一级评论
func (h *CommentHandler) Create(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		return
	}
	var req createCommentRequest
	if err := c.ShouldBind(&req); err != nil {
		bindFailed(c, err)
		return
	}
	// 表单里空的 parent_id 会被绑定成 0
	if req.ParentID != nil && *req.ParentID == 0 {
		req.ParentID = nil
	}

	node, err := h.svc.Create(c.Request.Context(), middleware.CurrentActor(c), services.CreateInput{
		PostID:     postID,
		ParentID:   req.ParentID,
		Content:    req.Content,
		IsMarkdown: req.IsMarkdown,
	})
	if err != nil {
		fail(c, err)
		return
	}

	dto := newNodeDTO(node)
	if middleware.IsHTMX(c) {
		Render(c, http.StatusCreated, "comments/comment.html", gin.H{"Comment": dto})
		return
	}
	c.JSON(http.StatusCreated, dto)
}

func (h *CommentHandler) Edit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req editCommentRequest
	if err := c.ShouldBind(&req); err != nil {
		bindFailed(c, err)
		return
	}

	actor := middleware.CurrentActor(c)
	if _, err := h.svc.Edit(c.Request.Context(), actor, id, req.Content, req.IsMarkdown); err != nil {
		fail(c, err)
		return
	}
	// 重新读取以带上回复数和访问者状态
	node, err := h.svc.Get(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, err)
		return
	}

	dto := newNodeDTO(node)
	if middleware.IsHTMX(c) {
		Render(c, http.StatusOK, "comments/comment.html", gin.H{"Comment": dto})
		return
	}
	c.JSON(http.StatusOK, dto)
}

// Delete 软删除，重复删除也返回成功
func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Vote 赞/踩/取消；HTMX 请求只回分数
func (h *CommentHandler) Vote(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req voteRequest
	if err := c.ShouldBind(&req); err != nil {
		bindFailed(c, err)
		return
	}

	res, err := h.svc.Vote(c.Request.Context(), middleware.CurrentActor(c), id, *req.VoteType)
	if err != nil {
		fail(c, err)
		return
	}
	if middleware.IsHTMX(c) {
		c.String(http.StatusOK, strconv.Itoa(res.Score))
		return
	}
	c.JSON(http.StatusOK, res)
}

// Report 举报评论
func (h *CommentHandler) Report(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req reportRequest
	if err := c.ShouldBind(&req); err != nil {
		bindFailed(c, err)
		return
	}

	r, err := h.svc.Report(c.Request.Context(), middleware.CurrentActor(c), id, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	if middleware.IsHTMX(c) {
		c.String(http.StatusOK, "已举报")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": r.ID, "comment_id": r.CommentID})
}
