package services

import (
	"context"
	"errors"
	"fmt"

	"abroadhub/internal/models"
	"abroadhub/internal/store"
)

// Notifier 通知子系统的边界。失败只记日志，不影响评论操作本身。
type Notifier interface {
	CommentCreated(ctx context.Context, c *models.Comment, parent *models.Comment) error
	ReportFiled(ctx context.Context, r *models.Report) error
}

// StoreNotifier writes in-site notification rows.
type StoreNotifier struct {
	notes store.NotificationStore
	posts store.PostStore
	users store.UserStore
}

func NewStoreNotifier(notes store.NotificationStore, posts store.PostStore, users store.UserStore) *StoreNotifier {
	return &StoreNotifier{notes: notes, posts: posts, users: users}
}

// CommentCreated 回复通知父评论作者；一级评论通知帖子作者。自己回复自己不通知。
func (n *StoreNotifier) CommentCreated(ctx context.Context, c *models.Comment, parent *models.Comment) error {
	actorID := c.AuthorID
	note := models.Notification{
		ActorID:   &actorID,
		PostID:    c.PostID,
		CommentID: c.ID,
	}

	if parent != nil {
		note.UserID = parent.AuthorID
		note.Type = models.NotificationTypeReplyComment
	} else {
		post, err := n.posts.FindPost(ctx, c.PostID)
		if errors.Is(err, store.ErrNotFound) {
			// 帖子不归评论模块管，找不到就不通知
			return nil
		}
		if err != nil {
			return err
		}
		note.UserID = post.UserID
		note.Type = models.NotificationTypeCommentPost
	}

	if note.UserID == actorID {
		return nil
	}
	return n.notes.CreateNotifications(ctx, []models.Notification{note})
}

// ReportFiled 给所有管理员各发一条举报通知
func (n *StoreNotifier) ReportFiled(ctx context.Context, r *models.Report) error {
	admins, err := n.users.ListAdmins(ctx)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		return nil
	}

	actorID := r.UserID
	reason := fmt.Sprintf("举报了评论 #%d，原因: %s", r.CommentID, r.Reason)
	notes := make([]models.Notification, 0, len(admins))
	for _, admin := range admins {
		notes = append(notes, models.Notification{
			UserID:    admin.ID,
			ActorID:   &actorID,
			Type:      models.NotificationTypeReport,
			PostID:    r.PostID,
			CommentID: r.CommentID,
			Reason:    reason,
		})
	}
	return n.notes.CreateNotifications(ctx, notes)
}
