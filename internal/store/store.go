package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ankiplace/ankiplace/internal/canvas"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on review_proofs(user_id) for balance audits
const currentSchemaVersion = 1

// Store owns the two access modes to the durable SQLite file.
//
// The writer handle is the exclusive mutating connection: it is limited
// to a single open connection and only the write serializer ever calls
// the mutating methods. The reader handle is a read-only connection pool
// used for concurrent queries; under WAL each reader sees the last
// committed snapshot, so an in-progress write is never observable.
type Store struct {
	writer *sql.DB
	reader *sql.DB

	// Overridable for deterministic tests.
	now   func() float64
	newID func() string
}

// Open creates or opens the SQLite database at the given path.
// Applies required pragmas, idempotent schema initialization, and
// migrations, then verifies file integrity.
//
// The writer connection is configured with:
//   - WAL mode, so readers are never blocked by the writer
//   - FULL synchronous mode: a committed write is on stable storage
//     before the call returns, which is what lets the serializer
//     acknowledge commits to callers
//   - 5-second busy timeout for residual lock contention
//   - foreign key enforcement
//
// This function is idempotent - safe to call against an already
// initialized file. A corrupt or unreadable file is a fatal error here,
// never a silent recovery.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	writer, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := writer.Ping(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a second mutating connection
	// would only manufacture SQLITE_BUSY failures.
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)

	if err := applyPragmas(writer); err != nil {
		writer.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := verifyIntegrity(writer); err != nil {
		writer.Close()
		return nil, err
	}

	if err := applySchema(writer); err != nil {
		writer.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := seedCanvas(writer); err != nil {
		writer.Close()
		return nil, fmt.Errorf("seed canvas: %w", err)
	}

	reader, err := openReader(path)
	if err != nil {
		writer.Close()
		return nil, err
	}

	return &Store{
		writer: writer,
		reader: reader,
		now:    func() float64 { return float64(time.Now().UnixNano()) / float64(time.Second) },
		newID:  uuid.NewString,
	}, nil
}

// openReader opens the concurrent read-only connection pool.
// Connection options go through the DSN rather than Exec'd pragmas so
// that every pooled connection gets them.
func openReader(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", url.PathEscape(path))
	reader, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open read-only database: %w", err)
	}
	if err := reader.Ping(); err != nil {
		reader.Close()
		return nil, fmt.Errorf("connect read-only database: %w", err)
	}
	return reader, nil
}

// Close closes both database handles.
// Should be called exactly once at process shutdown, after the write
// serializer has drained.
func (s *Store) Close() error {
	var firstErr error
	if s.reader != nil {
		if err := s.reader.Close(); err != nil {
			firstErr = err
		}
	}
	if s.writer != nil {
		if err := s.writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// applyPragmas sets required SQLite configuration on the writer.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyIntegrity runs a quick integrity check and reports corruption as
// a fatal store failure. Startup is the one place a damaged file can be
// caught before it serves traffic.
func verifyIntegrity(db *sql.DB) error {
	var result string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return canvas.NewStoreFailure("database file unreadable", err)
	}
	if result != "ok" {
		return canvas.NewStoreFailure(fmt.Sprintf("database corrupt: %s", result), nil)
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds an index on review_proofs.user_id so balance audits
// don't scan the whole proof log. CREATE INDEX IF NOT EXISTS is a no-op
// when the index already exists, so new and old databases converge.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_review_proofs_user
		ON review_proofs(user_id)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// seedCanvas populates the full 32x32 grid on first initialization.
// Every cell exists from the start, so paints are pure UPDATEs and reads
// never have to synthesize missing cells. Idempotent: a non-empty canvas
// is left untouched.
func seedCanvas(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM canvas").Scan(&count); err != nil {
		return fmt.Errorf("count canvas cells: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.Prepare(`
		INSERT INTO canvas (x, y, color, last_user_id, last_modified)
		VALUES (?, ?, 0, NULL, 0)
	`)
	if err != nil {
		return fmt.Errorf("prepare seed statement: %w", err)
	}
	defer stmt.Close()

	for y := 0; y < canvas.Height; y++ {
		for x := 0; x < canvas.Width; x++ {
			if _, err := stmt.Exec(x, y); err != nil {
				return fmt.Errorf("seed cell (%d,%d): %w", x, y, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.writer.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// IntegrityCheck re-runs the startup integrity check on demand.
// Used by the check subcommand.
func (s *Store) IntegrityCheck(ctx context.Context) error {
	var result string
	if err := s.writer.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return canvas.NewStoreFailure("database file unreadable", err)
	}
	if result != "ok" {
		return canvas.NewStoreFailure(fmt.Sprintf("database corrupt: %s", result), nil)
	}
	return nil
}
