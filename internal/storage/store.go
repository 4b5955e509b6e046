// Package storage persists users, categories, transactions and budgets in
// SQLite. The schema is owned by the embedded migrations; rows are read and
// written through GORM.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// Options configures Open.
type Options struct {
	Path string
	// LogSQL echoes every statement through GORM's logger.
	LogSQL bool
}

// Store owns the database connection. Every unit of work runs inside
// Transact and is committed or rolled back as a whole.
type Store struct {
	sqlDB *sql.DB
	db    *gorm.DB
}

func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("open store: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dsn(opts.Path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := RunMigrations(opts.Path); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	gormLogger := logger.Default
	if !opts.LogSQL {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}

	db, err := gorm.Open(&gormsqlite.Dialector{Conn: sqlDB}, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	return &Store{sqlDB: sqlDB, db: db}, nil
}

// dsn enables foreign keys and a busy timeout on every pooled connection.
func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (s *Store) Close() error {
	if s.sqlDB != nil {
		return s.sqlDB.Close()
	}
	return nil
}

// Transact runs fn in one database transaction. Any error returned by fn,
// or a panic inside it, rolls the transaction back.
func (s *Store) Transact(ctx context.Context, fn func(r *Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}
