package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// 代数键的存活时间要长于页缓存，否则代数过期后旧页还在
const generationTTL = 24 * time.Hour

func generationKey(postID uint) string {
	return fmt.Sprintf("comments:gen:%d", postID)
}

// Generation 返回帖子评论当前的缓存代数。丢失时生成一个新值，旧代数下的页面自然失效。
func Generation(ctx context.Context, c Cache, postID uint) (string, error) {
	b, err := c.Get(ctx, generationKey(postID))
	if err == nil {
		return string(b), nil
	}
	if err != ErrMiss {
		return "", err
	}
	return Bump(ctx, c, postID)
}

// Bump 让该帖子下所有已缓存的评论页失效
func Bump(ctx context.Context, c Cache, postID uint) (string, error) {
	gen := strconv.FormatInt(time.Now().UnixNano(), 36)
	if err := c.Set(ctx, generationKey(postID), []byte(gen), generationTTL); err != nil {
		return "", err
	}
	return gen, nil
}

// ThreadKey 一级评论分页的缓存键
func ThreadKey(postID uint, gen, sort string, page, limit int) string {
	return fmt.Sprintf("comments:thread:%d:%s:%s:%d:%d", postID, gen, sort, page, limit)
}

// RepliesKey 某条评论下一层回复的缓存键
func RepliesKey(postID uint, gen string, parentID uint, sort string, page, limit int) string {
	return fmt.Sprintf("comments:replies:%d:%s:%d:%s:%d:%d", postID, gen, parentID, sort, page, limit)
}
