package handlers

import (
	"net/http"

	"abroadhub/internal/middleware"
	"abroadhub/internal/services"
	"abroadhub/internal/utils"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	svc *services.CommentService
}

func NewAdminHandler(svc *services.CommentService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

type reportDTO struct {
	ID        uint      `json:"id"`
	CommentID uint      `json:"comment_id"`
	PostID    uint      `json:"post_id"`
	Reason    string    `json:"reason"`
	Reporter  authorDTO `json:"reporter"`
	CreatedAt string    `json:"created_at"`
}

// ListReports 举报列表
func (h *AdminHandler) ListReports(c *gin.Context) {
	limit := utils.StringToInt(c.Query("limit"))
	reports, err := h.svc.ListReports(c.Request.Context(), middleware.CurrentActor(c), limit)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]reportDTO, len(reports))
	for i, r := range reports {
		out[i] = reportDTO{
			ID:        r.ID,
			CommentID: r.CommentID,
			PostID:    r.PostID,
			Reason:    r.Reason,
			Reporter:  newAuthorDTO(r.User),
			CreatedAt: r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
	}
	c.JSON(http.StatusOK, gin.H{"reports": out})
}

// DismissReport 处理/忽略举报
func (h *AdminHandler) DismissReport(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DismissReport(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
