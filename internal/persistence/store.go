package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aristath/traingraph/internal/graph"
	"github.com/aristath/traingraph/internal/registry"
)

// CompiledGraph is one stored compile result.
type CompiledGraph struct {
	ID        string       // Assigned on save when empty
	Project   string       // Project identifier the recipe was compiled for
	Source    string       // Where the recipe came from (path or label)
	Outputs   []string     // Output task names, in compile order
	Schema    graph.Schema // The compiled schema
	CreatedAt time.Time    // Set on save when zero
}

// GraphSummary describes a stored graph without loading its tasks.
type GraphSummary struct {
	ID        string
	Project   string
	Source    string
	Tasks     int
	CreatedAt time.Time
}

// Store defines the persistence interface for compiled graphs.
type Store interface {
	SaveGraph(ctx context.Context, g *CompiledGraph) error
	GetGraph(ctx context.Context, id string) (*CompiledGraph, error)
	ListGraphs(ctx context.Context) ([]GraphSummary, error)
	DeleteGraph(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	reg   *registry.Registry // Resolves stored implementation names on load
	retry RetryConfig
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode, foreign keys, and busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string, reg *registry.Registry) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	// Note: modernc.org/sqlite doesn't support _foreign_keys in connection string
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return open(ctx, connStr, reg)
}

// NewMemoryStore creates an in-memory SQLite store for testing.
// Each store gets its own named database; its connections share a cache.
func NewMemoryStore(ctx context.Context, reg *registry.Registry) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	return open(ctx, connStr, reg)
}

func open(ctx context.Context, connStr string, reg *registry.Registry) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys via PRAGMA (required for modernc.org/sqlite)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// A single connection keeps the foreign_keys pragma in effect for every statement
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, reg: reg, retry: DefaultRetryConfig()}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
