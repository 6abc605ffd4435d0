// Package artifact is the persistence layer for spec.md §6's "Artifact
// outputs": the ordered events log, balances snapshots, and dealer
// metrics, written to a sqlite file an external writer (CLI, notebook,
// replay tool) can read back. The core simulator never opens this
// package itself — it is consumed by the driver loop (cmd/simulate)
// after or between runs, keeping the deterministic core free of I/O.
//
// Grounded on internal/database/db.go.orig's DB type: same profile-keyed
// PRAGMA string builder, the same connection-pool tuning, and the same
// WithTransaction/HealthCheck/WALCheckpoint/GetStats surface,
// adapted from a multi-schema portfolio database to this module's single
// append-only run store. The teacher located its schema files on disk
// via runtime.Caller; this package has no external schema files to find
// (the teacher pack ships no .sql fixtures), so the schema is embedded
// directly as a Go string constant in schema.go instead.
package artifact

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Profile selects the PRAGMA tuning applied to the connection, mirroring
// the teacher's DatabaseProfile enum.
type Profile string

const (
	// ProfileRun is the default: safe enough for an audit trail, fast
	// enough for a single-writer simulation run.
	ProfileRun Profile = "run"
	// ProfileScratch favors speed over durability, for throwaway runs
	// (e.g. parameter sweeps) where the artifact file is never reused.
	ProfileScratch Profile = "scratch"
)

// Config configures a new Store.
type Config struct {
	Path    string
	Profile Profile
}

// Store wraps a sqlite connection configured for one simulation run's
// artifact output.
type Store struct {
	conn    *sql.DB
	path    string
	profile Profile
}

// Open creates (or reopens) the artifact database at cfg.Path and applies
// its schema. Pass "file::memory:?cache=shared" for an in-process,
// throwaway store (tests, R3 round-trip checks within one process).
func Open(cfg Config) (*Store, error) {
	if strings.HasPrefix(cfg.Path, "file:") {
		// in-memory or otherwise caller-managed URI; skip filepath work
	} else if cfg.Path != "" {
		absPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("resolve artifact db path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("create artifact db directory: %w", err)
		}
		cfg.Path = absPath
	}

	if cfg.Profile == "" {
		cfg.Profile = ProfileRun
	}

	conn, err := sql.Open("sqlite", buildConnectionString(cfg.Path, cfg.Profile))
	if err != nil {
		return nil, fmt.Errorf("open artifact db: %w", err)
	}
	configureConnectionPool(conn, cfg.Profile)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping artifact db: %w", err)
	}

	st := &Store{conn: conn, path: cfg.Path, profile: cfg.Profile}
	if err := st.migrate(); err != nil {
		return nil, fmt.Errorf("migrate artifact db: %w", err)
	}
	return st, nil
}

// buildConnectionString builds the sqlite connection string with
// profile-specific PRAGMAs (adapted from db.go.orig's buildConnectionString).
func buildConnectionString(path string, profile Profile) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	connStr := path + sep + "_pragma=journal_mode(WAL)"
	switch profile {
	case ProfileScratch:
		connStr += "&_pragma=synchronous(OFF)"
		connStr += "&_pragma=temp_store(MEMORY)"
	default: // ProfileRun
		connStr += "&_pragma=synchronous(NORMAL)"
		connStr += "&_pragma=temp_store(MEMORY)"
	}
	connStr += "&_pragma=foreign_keys(1)"
	connStr += "&_pragma=cache_size(-32000)" // 32MB cache
	return connStr
}

// configureConnectionPool tunes the connection pool for a single-writer,
// single-process artifact store (adapted from db.go.orig): one open and
// one idle connection, with no lifetime or idle-time limit, so the one
// connection lives as long as the Store.
func configureConnectionPool(conn *sql.DB, profile Profile) {
	conn.SetMaxOpenConns(1) // sqlite allows one writer; avoid interleaved writers
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.conn.Close() }

// Path returns the artifact database's file path (or URI).
func (s *Store) Path() string { return s.path }

// WithTransaction runs fn inside a transaction, committing on success and
// rolling back (converting a panic to an error) otherwise. Adapted from
// db.go.orig's package-level WithTransaction helper.
func (s *Store) WithTransaction(fn func(*sql.Tx) error) (err error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin artifact transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in artifact transaction: %v", p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("artifact transaction failed: %w (rollback also failed: %v)", err, rbErr)
			} else {
				err = fmt.Errorf("artifact transaction failed: %w", err)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("commit artifact transaction: %w", commitErr)
		}
	}()
	err = fn(tx)
	return err
}

// HealthCheck runs sqlite's integrity_check, for periodic operator checks
// on a long-running artifact file (adapted from db.go.orig's HealthCheck).
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("artifact db ping failed: %w", err)
	}
	var result string
	if err := s.conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("artifact db integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("artifact db integrity check failed: %s", result)
	}
	return nil
}

// WALCheckpoint forces a WAL checkpoint (adapted from db.go.orig).
func (s *Store) WALCheckpoint(mode string) error {
	if mode == "" {
		mode = "TRUNCATE"
	}
	_, err := s.conn.Exec(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode))
	if err != nil {
		return fmt.Errorf("artifact db WAL checkpoint failed: %w", err)
	}
	return nil
}

// Stats reports basic file/page statistics (adapted from db.go.orig's
// Stats/GetStats).
type Stats struct {
	SizeBytes     int64
	WALSizeBytes  int64
	PageCount     int64
	PageSize      int64
	FreelistCount int64
}

// GetStats retrieves artifact database statistics.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}
	if fi, err := os.Stat(s.path); err == nil {
		stats.SizeBytes = fi.Size()
	}
	if fi, err := os.Stat(s.path + "-wal"); err == nil {
		stats.WALSizeBytes = fi.Size()
	}
	if err := s.conn.QueryRow("PRAGMA page_count").Scan(&stats.PageCount); err != nil {
		return nil, fmt.Errorf("get page count: %w", err)
	}
	if err := s.conn.QueryRow("PRAGMA page_size").Scan(&stats.PageSize); err != nil {
		return nil, fmt.Errorf("get page size: %w", err)
	}
	if err := s.conn.QueryRow("PRAGMA freelist_count").Scan(&stats.FreelistCount); err != nil {
		return nil, fmt.Errorf("get freelist count: %w", err)
	}
	return stats, nil
}
