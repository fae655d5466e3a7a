package db

import (
	"context"
	"fmt"
	"log/slog"

	"thicket/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// indexes gorm tags cannot express.
var extraIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower ON users (lower(username))`,
	`CREATE INDEX IF NOT EXISTS idx_comments_content_lower ON comments (lower(content))`,
	`CREATE INDEX IF NOT EXISTS idx_comments_ancestors ON comments USING GIN (ancestors jsonb_path_ops)`,
}

// Open connects to Postgres and migrates the schema.
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	slog.Info("database connection established")

	if err := Migrate(ctx, gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate creates or updates every table the engine uses.
func Migrate(ctx context.Context, gdb *gorm.DB) error {
	tx := gdb.WithContext(ctx)
	err := tx.AutoMigrate(
		&models.User{},
		&models.Comment{},
		&models.Bond{},
		&models.Save{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	for _, stmt := range extraIndexes {
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	slog.Info("database migration completed")
	return nil
}
