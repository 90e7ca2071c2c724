package folio

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = sql.ErrNoRows

// timeLayout is fixed-width so that string order equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Store wraps the SQLite database holding posts, comments, likes, settings
// and the admin account.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, recovers from a corrupt file, and runs schema migrations.
func NewStore(path string, log zerolog.Logger) (*Store, error) {
	log = log.With().Str("component", "store").Logger()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	existed := fileExists(path)
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	if existed {
		if err := checkIntegrity(db); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("database integrity check failed")
			_ = db.Close()
			backup, err := backupCorrupted(path, time.Now())
			if err != nil {
				return nil, fmt.Errorf("backup corrupted database: %w", err)
			}
			log.Warn().Str("backup", backup).Msg("corrupted database moved aside, creating a new one")
			if db, err = openSQLite(path); err != nil {
				return nil, err
			}
		}
	}

	s := &Store{db: db, log: log, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.seedSettings(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed settings: %w", err)
	}
	log.Info().Str("path", path).Msg("database ready")
	return s, nil
}

// openSQLite opens a pooled handle. Pragmas are set through the DSN so that
// every pooled connection gets them, and _txlock=immediate makes each
// transaction take the write lock at BEGIN.
func openSQLite(path string) (*sql.DB, error) {
	dsn := "file:" + filepath.ToSlash(path) +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(ON)" +
		"&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	return db, nil
}

// checkIntegrity runs PRAGMA integrity_check. Any error, including failing to
// read the file as a database at all, counts as corruption.
func checkIntegrity(db *sql.DB) error {
	var result string
	if err := db.QueryRow(`PRAGMA integrity_check`).Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity_check: %s", result)
	}
	return nil
}

// backupCorrupted renames the database file and its WAL siblings to
// <path>.corrupted.<timestamp> and returns the new database file name.
func backupCorrupted(path string, at time.Time) (string, error) {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(at.UTC().Format(timeLayout))
	backup := path + ".corrupted." + stamp
	if err := os.Rename(path, backup); err != nil {
		return "", err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if fileExists(path + suffix) {
			_ = os.Rename(path+suffix, backup+suffix)
		}
	}
	return backup, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (s *Store) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) stamp() string {
	return formatTime(s.now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	if t, err := time.Parse(timeLayout, v); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// dayRange returns the [start, end) timestamps of the UTC calendar day holding t.
func dayRange(t time.Time) (string, string) {
	start := t.UTC().Truncate(24 * time.Hour)
	return formatTime(start), formatTime(start.Add(24 * time.Hour))
}

// likePattern turns user input into a LIKE substring pattern, escaping the
// wildcard characters. Use together with ESCAPE '\'.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
