// Package sqlite provides a SQLite-backed ISessionPersistence.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

//go:embed schema.sql
var schema string

const (
	keySchemaVersion     = "schema_version"
	currentSchemaVersion = "v1"
	sessionRowID         = 1
)

// SqlitePersistence stores the session and nonce ledger in a single SQLite file
type SqlitePersistence struct {
	sqlDB  *sql.DB
	logger *zap.Logger
	now    func() time.Time
	mu     sync.RWMutex
	closed bool
}

var _ persistence.ISessionPersistence = (*SqlitePersistence)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// NewSqlitePersistence opens the database at path and applies the schema
func NewSqlitePersistence(path string, logger *zap.Logger) (*SqlitePersistence, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time keeps the nonce ledger free of SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	sp := &SqlitePersistence{
		sqlDB:  sqlDB,
		logger: logger,
		now:    time.Now,
	}
	if err := sp.initSchema(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Sqlite persistence initialized", "path", cleanPath)
	return sp, nil
}

func (s *SqlitePersistence) initSchema(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var existing string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, keySchemaVersion).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.sqlDB.ExecContext(ctx, `INSERT INTO metadata (key, value) VALUES (?, ?)`, keySchemaVersion, currentSchemaVersion)
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existing != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
	}
	return nil
}

// SetClock replaces the time source used for nonce expiry
func (s *SqlitePersistence) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SaveSession persists the current session
func (s *SqlitePersistence) SaveSession(session *types.Session) error {
	if session == nil {
		return fmt.Errorf("cannot save nil Session")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return persistence.ErrClosed
	}

	data, err := persistence.MarshalSession(session)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.Exec(
		`INSERT INTO sessions (id, payload, expires_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		sessionRowID,
		data,
		session.ExpiresAt,
		toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save Session: %w", err)
	}
	return nil
}

// LoadSession returns the current session or nil
func (s *SqlitePersistence) LoadSession() (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, persistence.ErrClosed
	}

	var data []byte
	err := s.sqlDB.QueryRow(`SELECT payload FROM sessions WHERE id = ?`, sessionRowID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load Session: %w", err)
	}

	return persistence.UnmarshalSession(data)
}

// DeleteSession removes the current session
func (s *SqlitePersistence) DeleteSession() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return persistence.ErrClosed
	}

	if _, err := s.sqlDB.Exec(`DELETE FROM sessions WHERE id = ?`, sessionRowID); err != nil {
		return fmt.Errorf("failed to delete Session: %w", err)
	}
	return nil
}

// MarkNonceUsed records nonce as consumed. Expired entries are pruned first,
// then the primary key rejects a second insert of the same nonce.
func (s *SqlitePersistence) MarkNonceUsed(nonce string, ttl time.Duration) error {
	if nonce == "" {
		return fmt.Errorf("nonce cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return persistence.ErrClosed
	}

	now := s.now()
	tx, err := s.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM used_nonces WHERE expires_at <= ?`, toMillis(now)); err != nil {
		return fmt.Errorf("failed to prune nonces: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO used_nonces (nonce, expires_at) VALUES (?, ?)`,
		nonce,
		toMillis(now.Add(persistence.EffectiveTTL(ttl))),
	)
	if isUniqueViolation(err) {
		return persistence.ErrNonceAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("failed to mark nonce used: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit nonce: %w", err)
	}
	return nil
}

// IsNonceUsed reports whether nonce is recorded and not expired
func (s *SqlitePersistence) IsNonceUsed(nonce string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, persistence.ErrClosed
	}

	var count int
	err := s.sqlDB.QueryRow(
		`SELECT COUNT(1) FROM used_nonces WHERE nonce = ? AND expires_at > ?`,
		nonce,
		toMillis(s.now()),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to read nonce: %w", err)
	}
	return count > 0, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// Close closes the database handle
func (s *SqlitePersistence) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close sqlite database: %w", err)
	}

	s.logger.Sugar().Info("Sqlite persistence closed")
	return nil
}

// HealthCheck pings the database and verifies the schema version
func (s *SqlitePersistence) HealthCheck() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return persistence.ErrClosed
	}

	var version string
	if err := s.sqlDB.QueryRow(`SELECT value FROM metadata WHERE key = ?`, keySchemaVersion).Scan(&version); err != nil {
		return fmt.Errorf("sqlite health check failed: %w", err)
	}
	if version != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s", version)
	}
	return nil
}
