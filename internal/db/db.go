package db

import (
	"time"

	"abroadhub/internal/logger"
	"abroadhub/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres and migrates the comment schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(logger.Log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	logger.Log.Info("Database migration completed")
	return db, nil
}

// Migrate 自动迁移，顺序按外键依赖
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.CommentVote{},
		&models.Report{},
		&models.Notification{},
	)
}
