package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arnold/memoboard-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens PostgreSQL when url starts with postgres, SQLite otherwise.
func Connect(url string, log *slog.Logger, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	isSQLite := !strings.HasPrefix(url, "postgres")
	if isSQLite {
		dialector = sqlite.Open(url)
	} else {
		dialector = postgres.Open(url)
	}

	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(slog.NewLogLogger(log.Handler(), slog.LevelDebug), logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if isSQLite {
		// SQLite allows one writer; a single connection serializes writes
		// instead of surfacing "database is locked".
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.TeamInvite{},
		&models.JoinRequest{},
		&models.Memo{},
		&models.DeletedMemo{},
		&models.Task{},
		&models.Board{},
		&models.DeletedBoard{},
		&models.BoardItem{},
		&models.Category{},
		&models.Tag{},
		&models.Tagging{},
		&models.Comment{},
		&models.Attachment{},
		&models.Activity{},
		&models.SlackConfig{},
		&models.Notification{},
	)
}
