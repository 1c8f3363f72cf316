package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache: miss")

// Cache 评论楼层页缓存。只存与访问者无关的数据，个人状态（投票、可编辑）每次请求现算。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Noop 关闭缓存时使用，永远未命中
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error)              { return nil, ErrMiss }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Delete(context.Context, string) error                     { return nil }
