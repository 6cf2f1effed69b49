package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps the GORM database connection
type DB struct {
	*gorm.DB
}

// Connect opens the database selected by driver. dsn is a Postgres DSN or a SQLite file path.
func Connect(driver, dsn, logLevel string) (*DB, error) {
	switch driver {
	case DriverPostgres:
		return open(postgres.Open(dsn), logLevel, func(d *DB) error {
			sqlDB, err := d.DB.DB()
			if err != nil {
				return err
			}
			sqlDB.SetMaxIdleConns(10)
			sqlDB.SetMaxOpenConns(100)
			sqlDB.SetConnMaxLifetime(time.Hour)
			return nil
		})
	case DriverSQLite:
		return OpenSQLite(dsn, logLevel)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// OpenSQLite opens (or creates) a SQLite database file. Transactions take the
// write lock up front so concurrent ledger writers serialize instead of failing.
func OpenSQLite(path, logLevel string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", path)
	return open(sqlite.Open(dsn), logLevel, nil)
}

func open(dialector gorm.Dialector, logLevel string, tune func(*DB) error) (*DB, error) {
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(gormLogLevel(logLevel)),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	database := &DB{DB: gormDB}
	if tune != nil {
		if err := tune(database); err != nil {
			return nil, err
		}
	}
	return database, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}

// IsPostgres reports whether the connection uses the Postgres dialect.
func (db *DB) IsPostgres() bool {
	return db.Dialector.Name() == DriverPostgres
}

// Ping checks if the database connection is alive
func (db *DB) Ping() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
