package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"abroadhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists comments, votes and their collaborators in Postgres through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) Insert(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	if c.PostID == 0 || c.AuthorID == 0 || strings.TrimSpace(c.Content) == "" {
		return nil, ErrInvalidComment
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if c.ParentID != nil {
			var parent models.Comment
			if err := tx.Select("id", "post_id").First(&parent, *c.ParentID).Error; err != nil {
				return notFound(err)
			}
			if parent.PostID != c.PostID {
				return ErrParentMismatch
			}
		}
		c.ID = 0
		c.Status = models.CommentActive
		c.IsEdited = false
		c.EditedAt = nil
		c.Upvotes, c.Downvotes = 0, 0
		return tx.Omit(clause.Associations).Create(c).Error
	})
	if err != nil {
		return nil, err
	}
	// 作者信息在读取时关联，不存副本
	return s.GetByID(ctx, c.ID)
}

func (s *GormStore) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).Preload("Author").First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *GormStore) ListByPost(ctx context.Context, p ListParams) ([]models.Comment, error) {
	q := s.db.WithContext(ctx).Preload("Author").Where("post_id = ?", p.PostID)
	if p.ParentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *p.ParentID)
	}
	for _, o := range p.Sort.orderClauses() {
		q = q.Order(o)
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}

	var out []models.Comment
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) CountReplies(ctx context.Context, parentIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}

	type countResult struct {
		ParentID uint
		Count    int
	}
	var results []countResult
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Select("parent_id, COUNT(*) AS count").
		Where("parent_id IN ?", parentIDs).
		Group("parent_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		counts[r.ParentID] = r.Count
	}
	return counts, nil
}

func (s *GormStore) UpdateContent(ctx context.Context, id uint, content string, isMarkdown bool) (*models.Comment, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND status = ?", id, models.CommentActive).
		Updates(map[string]interface{}{
			"content":     content,
			"is_markdown": isMarkdown,
			"is_edited":   true,
			"edited_at":   now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// SoftDelete keeps the row so replies stay addressable. Re-running it is harmless.
func (s *GormStore) SoftDelete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.CommentDeleted,
			"content":    models.DeletedPlaceholder,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) VotesBy(ctx context.Context, voterID uint, commentIDs []uint) (map[uint]int8, error) {
	out := make(map[uint]int8, len(commentIDs))
	if voterID == 0 || len(commentIDs) == 0 {
		return out, nil
	}
	var votes []models.CommentVote
	err := s.db.WithContext(ctx).
		Where("voter_id = ? AND comment_id IN ?", voterID, commentIDs).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	for _, v := range votes {
		out[v.CommentID] = v.VoteType
	}
	return out, nil
}

func (s *GormStore) RunVoteTx(ctx context.Context, fn func(tx VoteTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormVoteTx{db: tx})
	})
}

type gormVoteTx struct {
	db *gorm.DB
}

func (t *gormVoteTx) LockComment(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (t *gormVoteTx) FindVote(ctx context.Context, commentID, voterID uint) (*models.CommentVote, error) {
	var v models.CommentVote
	err := t.db.WithContext(ctx).
		Where("comment_id = ? AND voter_id = ?", commentID, voterID).
		First(&v).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (t *gormVoteTx) SaveVote(ctx context.Context, v *models.CommentVote) error {
	return t.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "comment_id"}, {Name: "voter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"vote_type", "updated_at"}),
		}).
		Create(v).Error
}

func (t *gormVoteTx) DeleteVote(ctx context.Context, commentID, voterID uint) error {
	return t.db.WithContext(ctx).
		Where("comment_id = ? AND voter_id = ?", commentID, voterID).
		Delete(&models.CommentVote{}).Error
}

func (t *gormVoteTx) AdjustTally(ctx context.Context, commentID uint, upDelta, downDelta int) error {
	return t.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", commentID).
		UpdateColumns(map[string]interface{}{
			"upvotes":    gorm.Expr("upvotes + ?", upDelta),
			"downvotes":  gorm.Expr("downvotes + ?", downDelta),
			"updated_at": time.Now(),
		}).Error
}

func (s *GormStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *GormStore) ListAdmins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	if err := s.db.WithContext(ctx).Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}

func (s *GormStore) FindPost(ctx context.Context, id uint) (*models.Post, error) {
	var p models.Post
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *GormStore) CreateReport(ctx context.Context, r *models.Report) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(r).Error
}

func (s *GormStore) ListReports(ctx context.Context, limit int) ([]models.Report, error) {
	var reports []models.Report
	err := s.db.WithContext(ctx).Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

func (s *GormStore) DeleteReport(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Report{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateNotifications(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&ns).Error
}
