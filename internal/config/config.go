package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config 进程级配置，全部来自环境变量（可由 .env 提供）
type Config struct {
	Port          string
	DatabaseURL   string
	SessionSecret string
	LogLevel      string
	TemplatesDir  string

	StatementTimeout time.Duration

	MaxReplyDepth int
	PageSize      int
	MaxPageSize   int
	BlockSelfVote bool

	CacheDriver   string // memory, redis, none
	CacheSize     int
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Load reads .env (if any) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, reading configuration from environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an arbitrary lookup, so tests don't have to touch the process env.
func FromEnv(getenv func(string) string) Config {
	e := env{get: getenv}
	cfg := Config{
		Port:          e.str("PORT", "8080"),
		DatabaseURL:   e.str("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=abroadhub port=5432 sslmode=disable"),
		SessionSecret: e.str("SESSION_SECRET", "secret_key_change_me"),
		LogLevel:      e.str("LOG_LEVEL", "info"),
		TemplatesDir:  e.str("TEMPLATES_DIR", "./web/templates"),

		StatementTimeout: e.duration("STATEMENT_TIMEOUT", 5*time.Second),

		MaxReplyDepth: e.int("COMMENT_MAX_REPLY_DEPTH", 5),
		PageSize:      e.int("COMMENT_PAGE_SIZE", 20),
		MaxPageSize:   e.int("COMMENT_MAX_PAGE_SIZE", 100),
		BlockSelfVote: e.bool("COMMENT_BLOCK_SELF_VOTE", false),

		CacheDriver:   strings.ToLower(e.str("CACHE_DRIVER", CacheMemory)),
		CacheSize:     e.int("CACHE_SIZE", 500),
		CacheTTL:      e.duration("CACHE_TTL", 5*time.Minute),
		RedisAddr:     e.str("REDIS_ADDR", "localhost:6379"),
		RedisPassword: e.str("REDIS_PASSWORD", ""),
		RedisDB:       e.intAtLeast("REDIS_DB", 0, 0),
	}
	if cfg.PageSize > cfg.MaxPageSize {
		cfg.PageSize = cfg.MaxPageSize
	}
	return cfg
}

type env struct {
	get func(string) string
}

func (e env) str(key, def string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return def
}

func (e env) int(key string, def int) int {
	return e.intAtLeast(key, def, 1)
}

func (e env) intAtLeast(key string, def, lo int) int {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo {
		logrus.WithField("key", key).WithField("value", v).Warn("invalid integer, using default")
		return def
	}
	return n
}

func (e env) bool(key string, def bool) bool {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logrus.WithField("key", key).WithField("value", v).Warn("invalid boolean, using default")
		return def
	}
	return b
}

func (e env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		logrus.WithField("key", key).WithField("value", v).Warn("invalid duration, using default")
		return def
	}
	return d
}
