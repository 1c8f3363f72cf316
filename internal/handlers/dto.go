package handlers

import (
	"html/template"
	"time"

	"abroadhub/internal/models"
	"abroadhub/internal/services"
	"abroadhub/internal/utils"
)

type authorDTO struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Username    string `json:"username"`
	ImageURL    string `json:"image_url"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

// commentDTO 评论对外的形状，content_html 在这里渲染
type commentDTO struct {
	ID          uint                 `json:"id"`
	PostID      uint                 `json:"post_id"`
	ParentID    *uint                `json:"parent_id"`
	Author      authorDTO            `json:"author"`
	Content     string               `json:"content"`
	ContentHTML template.HTML        `json:"content_html"`
	IsMarkdown  bool                 `json:"is_markdown"`
	Status      models.CommentStatus `json:"status"`
	IsEdited    bool                 `json:"is_edited"`
	EditedAt    *time.Time           `json:"edited_at,omitempty"`
	Upvotes     int                  `json:"upvotes"`
	Downvotes   int                  `json:"downvotes"`
	Score       int                  `json:"score"`
	ReplyCount  int                  `json:"reply_count"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`

	Depth      int  `json:"depth"`
	CanReply   bool `json:"can_reply"`
	ViewerVote int8 `json:"viewer_vote"`
	CanModify  bool `json:"can_modify"`
}

type threadDTO struct {
	PostID   uint         `json:"post_id"`
	ParentID *uint        `json:"parent_id,omitempty"`
	Sort     string       `json:"sort"`
	Page     int          `json:"page"`
	Limit    int          `json:"limit"`
	HasMore  bool         `json:"has_more"`
	Comments []commentDTO `json:"comments"`

	ParentDepth int `json:"-"`
}

func newAuthorDTO(u models.User) authorDTO {
	avatar := u.ImageURL
	if avatar == "" {
		avatar = utils.AvatarFallback(u.ID)
	}
	return authorDTO{
		ID:          u.ID,
		Name:        u.Name,
		Username:    u.Username,
		ImageURL:    u.ImageURL,
		DisplayName: utils.DisplayName(u.Name, u.Username),
		Avatar:      avatar,
	}
}

func newCommentDTO(c *models.Comment) commentDTO {
	html := template.HTML(template.HTMLEscapeString(c.Content))
	if !c.IsDeleted() {
		html = utils.RenderContent(c.Content, c.IsMarkdown)
	}
	return commentDTO{
		ID:          c.ID,
		PostID:      c.PostID,
		ParentID:    c.ParentID,
		Author:      newAuthorDTO(c.Author),
		Content:     c.Content,
		ContentHTML: html,
		IsMarkdown:  c.IsMarkdown,
		Status:      c.Status,
		IsEdited:    c.IsEdited,
		EditedAt:    c.EditedAt,
		Upvotes:     c.Upvotes,
		Downvotes:   c.Downvotes,
		Score:       c.Score(),
		ReplyCount:  c.ReplyCount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func newNodeDTO(n *services.ThreadNode) commentDTO {
	dto := newCommentDTO(&n.Comment)
	dto.Depth = n.Depth
	dto.CanReply = n.CanReply
	dto.ViewerVote = n.ViewerVote
	dto.CanModify = n.CanModify
	return dto
}

func newThreadDTO(tp *services.ThreadPage) threadDTO {
	comments := make([]commentDTO, len(tp.Nodes))
	for i := range tp.Nodes {
		comments[i] = newNodeDTO(&tp.Nodes[i])
	}
	return threadDTO{
		PostID:   tp.PostID,
		ParentID: tp.ParentID,
		Sort:     string(tp.Sort),
		Page:     tp.Page,
		Limit:    tp.Limit,
		HasMore:  tp.HasMore,
		Comments: comments,

		ParentDepth: tp.ParentDepth,
	}
}
