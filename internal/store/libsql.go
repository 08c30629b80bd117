package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/jeevan-health/triage/pkg/schema"
)

// LibSQLStore implements Store using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db    *sql.DB
	locks sync.Map // collection name -> *sync.Mutex
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Collections ---

func (s *LibSQLStore) ReadCollection(ctx context.Context, name string) (json.RawMessage, error) {
	data, err := readCollection(ctx, s.db, name)
	if err != nil {
		return nil, storeFailure("read collection "+name, err)
	}
	return data, nil
}

func (s *LibSQLStore) WriteCollection(ctx context.Context, name string, data json.RawMessage) error {
	unlock := s.lock(name)
	defer unlock()

	if err := writeCollection(ctx, s.db, name, data); err != nil {
		return storeFailure("write collection "+name, err)
	}
	return nil
}

// Update performs a read-modify-write of one collection under its lock and
// inside a transaction. An error from fn aborts the cycle and is returned
// unchanged; nothing is written.
func (s *LibSQLStore) Update(ctx context.Context, name string, fn UpdateFunc) error {
	unlock := s.lock(name)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeFailure("begin update "+name, err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := readCollection(ctx, tx, name)
	if err != nil {
		return storeFailure("read collection "+name, err)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if err := writeCollection(ctx, tx, name, next); err != nil {
		return storeFailure("write collection "+name, err)
	}
	if err := tx.Commit(); err != nil {
		return storeFailure("commit update "+name, err)
	}
	return nil
}

func (s *LibSQLStore) lock(name string) func() {
	v, _ := s.locks.LoadOrStore(name, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// --- Keyed values ---

func (s *LibSQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("key", key)
	}
	if err != nil {
		return nil, storeFailure("get "+key, err)
	}
	return value, nil
}

func (s *LibSQLStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return storeFailure("set "+key, err)
	}
	return nil
}

func (s *LibSQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return storeFailure("delete "+key, err)
	}
	return nil
}

// --- Helpers ---

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func readCollection(ctx context.Context, q querier, name string) (json.RawMessage, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM collections WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func writeCollection(ctx context.Context, q querier, name string, data json.RawMessage) error {
	if len(data) == 0 {
		data = json.RawMessage("[]")
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		name, string(data), time.Now().UTC(),
	)
	return err
}

func storeNotFound(resource, id string) *schema.TriageError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func storeFailure(op string, err error) *schema.TriageError {
	return schema.NewErrorf(schema.ErrCodeStore, "%s: %v", op, err).WithCause(err)
}
