package services

import "abroadhub/internal/models"

// Actor 当前操作者，由会话层提供，评论模块视为可信输入
type Actor struct {
	ID   uint
	Role string
}

func ActorFromUser(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{ID: u.ID, Role: u.Role}
}

// Anonymous reports whether no user is attached.
func (a Actor) Anonymous() bool {
	return a.ID == 0
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
