package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"travellog/pkg/logger"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type Options struct {
	// MaxOpenConns applies to PostgreSQL. SQLite is pinned to one connection.
	MaxOpenConns int
}

// Open connects to the database named by rawURL, configures the pool and
// applies the schema. postgres:// and postgresql:// URLs use lib/pq,
// sqlite://path (or sqlite://:memory:) uses the pure-Go SQLite driver.
func Open(rawURL string, opts Options) (*gorm.DB, error) {
	dialect, dialector, err := dialectorFor(rawURL)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
		SkipDefaultTransaction: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := configurePool(db, dialect, opts); err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	logger.LogInfo("Database initialized (%s)", dialect)
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(rawURL string) (string, gorm.Dialector, error) {
	rawURL = strings.TrimSpace(rawURL)
	scheme, rest, ok := strings.Cut(rawURL, "://")
	if !ok {
		return "", nil, errors.New("invalid database url: missing scheme")
	}

	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return DialectPostgres, postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        rawURL,
		}), nil

	case "sqlite", "sqlite3":
		path := rest
		if path == "" {
			return "", nil, errors.New("sqlite url is missing a path")
		}
		if path == ":memory:" {
			return DialectSQLite, sqlite.Open(":memory:"), nil
		}
		if err := ensureDir(path); err != nil {
			return "", nil, fmt.Errorf("failed to ensure database directory: %w", err)
		}
		// WAL allows readers alongside the single writer; busy_timeout waits for
		// the lock instead of failing immediately.
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
		return DialectSQLite, sqlite.Open(dsn), nil

	default:
		return "", nil, fmt.Errorf("unsupported database url scheme %q", scheme)
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0750)
	}
	return nil
}

func configurePool(db *gorm.DB, dialect string, opts Options) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic database interface: %w", err)
	}

	if dialect == DialectSQLite {
		// One connection serializes writers and keeps :memory: databases alive.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		return nil
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen / 2)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)
	return nil
}

func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&Location{}); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_locations_created_at ON locations(created_at DESC);",
	}

	for _, idx := range indices {
		if err := db.Exec(idx).Error; err != nil {
			logger.LogWarn("Failed to create index: %v", err)
		}
	}
	return nil
}
