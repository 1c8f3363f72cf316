package store

import (
	"context"
	"errors"

	"abroadhub/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrParentMismatch = errors.New("parent comment belongs to another post")
	ErrInvalidComment = errors.New("comment requires post, author and non-empty content")
)

// ListParams selects exactly one level of a post's comment tree.
type ListParams struct {
	PostID   uint
	ParentID *uint // nil = top-level
	Sort     Sort
	Limit    int
	Offset   int
}

// CommentStore 评论持久化。读路径上记录不存在返回 ErrNotFound，由调用方当作正常结果处理。
type CommentStore interface {
	// Insert stores c and returns it joined with its author.
	Insert(ctx context.Context, c *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, p ListParams) ([]models.Comment, error)
	// CountReplies counts children of every given parent regardless of status.
	CountReplies(ctx context.Context, parentIDs []uint) (map[uint]int, error)
	// UpdateContent edits an active comment; deleted or missing comments yield ErrNotFound.
	UpdateContent(ctx context.Context, id uint, content string, isMarkdown bool) (*models.Comment, error)
	SoftDelete(ctx context.Context, id uint) error

	// VotesBy returns the voter's vote type for each of the given comments that has one.
	VotesBy(ctx context.Context, voterID uint, commentIDs []uint) (map[uint]int8, error)
	// RunVoteTx runs fn atomically: either every write made through the VoteTx lands or none does.
	RunVoteTx(ctx context.Context, fn func(tx VoteTx) error) error
}

// VoteTx is the only write path to comment_votes and to the upvotes/downvotes counters.
type VoteTx interface {
	// LockComment loads the comment and holds it until the transaction ends.
	LockComment(ctx context.Context, id uint) (*models.Comment, error)
	FindVote(ctx context.Context, commentID, voterID uint) (*models.CommentVote, error)
	SaveVote(ctx context.Context, v *models.CommentVote) error
	DeleteVote(ctx context.Context, commentID, voterID uint) error
	AdjustTally(ctx context.Context, commentID uint, upDelta, downDelta int) error
}

type UserStore interface {
	FindUser(ctx context.Context, id uint) (*models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
}

type PostStore interface {
	FindPost(ctx context.Context, id uint) (*models.Post, error)
}

type ReportStore interface {
	CreateReport(ctx context.Context, r *models.Report) error
	ListReports(ctx context.Context, limit int) ([]models.Report, error)
	DeleteReport(ctx context.Context, id uint) error
}

type NotificationStore interface {
	CreateNotifications(ctx context.Context, ns []models.Notification) error
}
