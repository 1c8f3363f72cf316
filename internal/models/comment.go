package models

import (
	"time"
)

type CommentStatus string

const (
	CommentActive  CommentStatus = "active"
	CommentDeleted CommentStatus = "deleted"
)

// DeletedPlaceholder replaces the content of a soft-deleted comment.
const DeletedPlaceholder = "[deleted]"

type Comment struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	PostID     uint          `gorm:"not null;index:idx_comments_post_parent,priority:1" json:"post_id"`
	ParentID   *uint         `gorm:"index:idx_comments_post_parent,priority:2" json:"parent_id"` // nil 表示一级评论
	Parent     *Comment      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	AuthorID   uint          `gorm:"not null;index" json:"author_id"`
	Author     User          `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"author"`
	Content    string        `gorm:"type:text;not null" json:"content"`
	IsMarkdown bool          `gorm:"default:false" json:"is_markdown"`
	Status     CommentStatus `gorm:"size:16;not null;default:active;index" json:"status"`
	IsEdited   bool          `gorm:"default:false" json:"is_edited"`
	EditedAt   *time.Time    `json:"edited_at,omitempty"`
	// 冗余计数，只能由投票事务修改
	Upvotes   int       `gorm:"not null;default:0" json:"upvotes"`
	Downvotes int       `gorm:"not null;default:0" json:"downvotes"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 非数据库字段，查询时填充
	ReplyCount int `gorm:"-" json:"reply_count"`
}

// Score is upvotes minus downvotes.
func (c *Comment) Score() int {
	return c.Upvotes - c.Downvotes
}

func (c *Comment) IsDeleted() bool {
	return c.Status == CommentDeleted
}
