package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storeclip/src/log"
)

type Config struct {
	// Type is "postgres" or "sqlite".
	Type     string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Open connects to the configured database. For sqlite, Name is the file
// path (or a "file::memory:" DSN).
func Open(cfg Config) (*gorm.DB, error) {
	var dia gorm.Dialector

	switch cfg.Type {
	case "postgres", "pgsql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port)
		dia = postgres.Open(dsn)
	case "sqlite":
		dia = sqlite.Open(cfg.Name)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	db, err := gorm.Open(dia, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	if cfg.Type == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("database connected", "type", cfg.Type)
	return db, nil
}
