package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeCommentPost  NotificationType = "comment_post"
	NotificationTypeReplyComment NotificationType = "reply_comment"
	NotificationTypeReport       NotificationType = "report" // 举报通知
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"` // Receiver
	ActorID   *uint            `gorm:"index" json:"actor_id"`         // Sender
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	PostID    uint             `gorm:"index" json:"post_id"`
	CommentID uint             `gorm:"index" json:"comment_id"`
	Reason    string           `gorm:"type:text" json:"reason"`
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
