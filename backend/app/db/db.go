package db

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Driver string // "sqlite" or "mysql"
	DSN    string
	// DataDir holds the sqlite file when DSN is empty.
	DataDir string
}

func Connect(cfg Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	switch cfg.Driver {
	case "mysql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("mysql driver requires db.dsn")
		}
		return gorm.Open(mysql.Open(cfg.DSN), gcfg)
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dir := cfg.DataDir
			if dir == "" {
				dir = "."
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(dir, "push_history.db")
		}
		return gorm.Open(sqlite.Open(dsn), gcfg)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}
