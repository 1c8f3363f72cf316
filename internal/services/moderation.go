package services

import "abroadhub/internal/models"

// Gate 评论修改权限判断
type Gate struct {
	// BlockSelfVote 为 true 时作者不能给自己的评论投票
	BlockSelfVote bool
}

// CanModify 作者本人或管理员
func (g Gate) CanModify(c *models.Comment, a Actor) bool {
	if c == nil || a.Anonymous() {
		return false
	}
	return a.ID == c.AuthorID || a.IsAdmin()
}

func (g Gate) CanDelete(c *models.Comment, a Actor) bool {
	return g.CanModify(c, a)
}

// CanReport 不能举报自己
func (g Gate) CanReport(c *models.Comment, a Actor) bool {
	if c == nil || a.Anonymous() {
		return false
	}
	return a.ID != c.AuthorID
}

func (g Gate) CanVote(c *models.Comment, a Actor) bool {
	if c == nil || a.Anonymous() {
		return false
	}
	if g.BlockSelfVote && a.ID == c.AuthorID {
		return false
	}
	return true
}
