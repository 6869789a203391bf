package models

import (
	"context"
	"fmt"
	"time"

	"github.com/taskwise/backend/internal/config"
	applog "github.com/taskwise/backend/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database and applies pool limits. The
// returned handle is shared by every service and must be released with Close.
func Open(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, GormConfig(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	return db, nil
}

// GormConfig is the gorm configuration shared by Open and tests. Constraint
// violations are translated to gorm.ErrDuplicatedKey and timestamps are UTC.
func GormConfig(mode string) *gorm.Config {
	level := logger.Warn
	if mode == "debug" {
		level = logger.Info
	}
	return &gorm.Config{
		Logger: logger.New(applog.GormWriter{}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}

// DefaultRoles are seeded on first start.
var DefaultRoles = []Role{
	{Name: "Admin", Description: "Full access to every resource"},
	{Name: "Task Creator", Description: "Creates and manages own projects and their tasks"},
	{Name: "Read-Only", Description: "View access to projects the user is a member of"},
}

// SeedDefaultData creates the default roles if they do not exist yet.
func SeedDefaultData(db *gorm.DB) (int, error) {
	created := 0
	for _, r := range DefaultRoles {
		role := r
		var count int64
		if err := db.Model(&Role{}).Where("name = ?", role.Name).Count(&count).Error; err != nil {
			return created, err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&role).Error; err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
