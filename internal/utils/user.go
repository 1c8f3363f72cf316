package utils

import (
	"strings"
)

var avatarEmojis = []string{"🌱", "🌿", "🍃", "🌾", "🎋", "🎍", "🌲", "🌳", "🐼", "🦊", "🐨", "🐸"}

// DisplayName 优先昵称，其次用户名
func DisplayName(name, username string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return username
}

// AvatarFallback 没有头像时按用户 ID 固定挑一个 emoji，同一个人每次看到的都一样
func AvatarFallback(userID uint) string {
	return avatarEmojis[int(userID%uint(len(avatarEmojis)))]
}
