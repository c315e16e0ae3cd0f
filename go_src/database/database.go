package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"fyersbot/go_src/configuration"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
	"github.com/sirupsen/logrus"
)

const (
	duckDBMemoryLimit    = "1GB"
	duckDBThreads        = "2"
	corruptionMarkerFile = ".db_corrupted"
	inMemoryPath         = ":memory:"
)

// MarketDB owns the DuckDB connection holding market data.
type MarketDB struct {
	db     *sql.DB
	dbPath string
}

// NewMarketDB opens the database at config.Database.Path, or an in-memory one when useInMemory is set.
func NewMarketDB(config *configuration.Config, useInMemory bool) (*MarketDB, error) {
	dbPath := inMemoryPath
	connStr := ""
	if !useInMemory {
		if config == nil || config.Database.Path == "" {
			return nil, fmt.Errorf("database path not provided in configuration")
		}
		dbPath = config.Database.Path
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory '%s': %w", filepath.Dir(dbPath), err)
		}
		if _, err := os.Stat(markerPath(dbPath)); err == nil {
			return nil, fmt.Errorf("database at %s is marked as corrupted", dbPath)
		}
		connStr = dbPath + "?access_mode=READ_WRITE"
	}

	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB database at %s: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DuckDB database at %s: %w", dbPath, err)
	}
	// An in-memory database lives per connection.
	if useInMemory {
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range []string{
		fmt.Sprintf("SET memory_limit='%s';", duckDBMemoryLimit),
		fmt.Sprintf("SET threads=%s;", duckDBThreads),
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply initial config '%s': %w", stmt, err)
		}
	}
	logrus.Debugf("Opened DuckDB database %s", dbPath)
	return &MarketDB{db: db, dbPath: dbPath}, nil
}

func (m *MarketDB) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// DB returns the underlying connection pool.
func (m *MarketDB) DB() *sql.DB {
	return m.db
}

func (m *MarketDB) inMemory() bool {
	return m.dbPath == inMemoryPath || m.dbPath == ""
}

func markerPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), corruptionMarkerFile)
}

// IsDatabaseCorrupted reports whether the corruption marker sits next to the database file.
func (m *MarketDB) IsDatabaseCorrupted() bool {
	if m.inMemory() {
		return false
	}
	_, err := os.Stat(markerPath(m.dbPath))
	return err == nil
}

// MarkDatabaseAsCorrupted drops the marker so later opens refuse the file.
func (m *MarketDB) MarkDatabaseAsCorrupted() error {
	if m.inMemory() {
		return fmt.Errorf("cannot mark an in-memory database as corrupted")
	}
	file, err := os.Create(markerPath(m.dbPath))
	if err != nil {
		return fmt.Errorf("failed to create corruption marker file: %w", err)
	}
	return file.Close()
}

func (m *MarketDB) RemoveCorruptionMark() error {
	if m.inMemory() {
		return nil
	}
	if err := os.Remove(markerPath(m.dbPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove corruption marker file: %w", err)
	}
	return nil
}
