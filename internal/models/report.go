package models

import (
	"time"
)

type Report struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"` // Reporter
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	CommentID uint      `gorm:"not null;index" json:"comment_id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Reason    string    `gorm:"size:200;not null" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
