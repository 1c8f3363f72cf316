package models

import (
	"time"
)

// CommentVote 每个用户对每条评论至多一行；取消投票即删除该行（不存 0）
type CommentVote struct {
	CommentID uint      `gorm:"primaryKey;autoIncrement:false" json:"comment_id"`
	Comment   Comment   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	VoterID   uint      `gorm:"primaryKey;autoIncrement:false;index" json:"voter_id"`
	VoteType  int8      `gorm:"not null" json:"vote_type"` // 1 or -1
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
