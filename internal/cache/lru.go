package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// item 包装缓存数据和过期时间
type item struct {
	data      []byte
	expiresAt time.Time
}

// LRU 进程内缓存，容量满时淘汰最久未用的条目
type LRU struct {
	lruCache *lru.Cache[string, item]
	now      func() time.Time
}

func NewLRU(size int) (*LRU, error) {
	l, err := lru.New[string, item](size)
	if err != nil {
		return nil, err
	}
	return &LRU{lruCache: l, now: time.Now}, nil
}

// Get 获取缓存，若不存在或已过期则返回 ErrMiss
func (c *LRU) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil, ErrMiss
	}

	// 检查过期
	if c.now().After(val.expiresAt) {
		c.lruCache.Remove(key)
		return nil, ErrMiss
	}

	return val.data, nil
}

// Set 设置缓存，TTL 为过期时间
func (c *LRU) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.lruCache.Add(key, item{
		data:      val,
		expiresAt: c.now().Add(ttl),
	})
	return nil
}

// Delete 删除指定缓存
func (c *LRU) Delete(_ context.Context, key string) error {
	c.lruCache.Remove(key)
	return nil
}
