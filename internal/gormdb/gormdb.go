// Package gormdb implements the user, account, and rating repositories on GORM.
// It backs local development (SQLite) and can also run against PostgreSQL.
package gormdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps a GORM connection.
type DB struct {
	gorm *gorm.DB
	now  func() time.Time
}

// Option configures a DB.
type Option func(*gorm.Config)

// WithClock overrides the timestamp source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(c *gorm.Config) { c.NowFunc = now }
}

// Open connects with the named driver ("sqlite" or "postgres") and migrates the schema.
func Open(driver, dsn string, opts ...Option) (*DB, error) {
	cfg := &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	g, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to ":memory:" gets its own database.
	if driver == "sqlite" && strings.Contains(dsn, ":memory:") {
		sqlDB, err := g.DB()
		if err != nil {
			return nil, fmt.Errorf("getting sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := g.AutoMigrate(&userRow{}, &accountRow{}, &ratingRow{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{gorm: g, now: cfg.NowFunc}, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Users returns a UserRepository.
func (db *DB) Users() *UserRepository {
	return &UserRepository{db: db}
}

// Accounts returns an AccountRepository.
func (db *DB) Accounts() *AccountRepository {
	return &AccountRepository{db: db}
}

// Ratings returns a RatingRepository.
func (db *DB) Ratings() *RatingRepository {
	return &RatingRepository{db: db}
}
