package badger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/types"
)

// Key prefixes for namespacing
const (
	keySession           = "session:current"
	keyPrefixNonce       = "nonce:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	// concurrent MarkNonceUsed transactions on the same key conflict; the loser
	// retries, up to maxConflictRetries attempts in total
	maxConflictRetries = 3
	gcInterval         = 5 * time.Minute
)

// BadgerPersistence is a disk-backed ISessionPersistence using Badger.
// Consumed nonces are stored with a Badger TTL so they expire on their own.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.ISessionPersistence = (*BadgerPersistence)(nil)

// NewBadgerPersistence opens (or creates) a Badger database at dataPath.
// Writes are synced, and a background goroutine runs value log GC.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	if dataPath == "" {
		return nil, fmt.Errorf("badger data path cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = newBadgerLoggerAdapter(logger)
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger persistence initialized", "path", absPath)

	return bp, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}

		return nil
	})
}

func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// SaveSession persists the current session
func (b *BadgerPersistence) SaveSession(session *types.Session) error {
	if session == nil {
		return fmt.Errorf("cannot save nil Session")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	data, err := persistence.MarshalSession(session)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keySession), data)
	})
}

// LoadSession returns the current session or nil
func (b *BadgerPersistence) LoadSession() (*types.Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrClosed
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySession))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load Session: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	return persistence.UnmarshalSession(data)
}

// DeleteSession removes the current session
func (b *BadgerPersistence) DeleteSession() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(keySession))
	})
}

// MarkNonceUsed records nonce as consumed with a Badger TTL
func (b *BadgerPersistence) MarkNonceUsed(nonce string, ttl time.Duration) error {
	if nonce == "" {
		return fmt.Errorf("nonce cannot be empty")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	key := []byte(keyPrefixNonce + nonce)
	ttl = persistence.EffectiveTTL(ttl)

	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = b.db.Update(func(txn *badgerdb.Txn) error {
			_, getErr := txn.Get(key)
			if getErr == nil {
				return persistence.ErrNonceAlreadyUsed
			}
			if !errors.Is(getErr, badgerdb.ErrKeyNotFound) {
				return getErr
			}
			marker := []byte(time.Now().UTC().Format(time.RFC3339))
			return txn.SetEntry(badgerdb.NewEntry(key, marker).WithTTL(ttl))
		})
		if !errors.Is(err, badgerdb.ErrConflict) {
			break
		}
	}
	if err != nil && !errors.Is(err, persistence.ErrNonceAlreadyUsed) {
		return fmt.Errorf("failed to mark nonce used: %w", err)
	}
	return err
}

// IsNonceUsed reports whether nonce is recorded and not expired
func (b *BadgerPersistence) IsNonceUsed(nonce string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, persistence.ErrClosed
	}

	var used bool
	err := b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keyPrefixNonce + nonce))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		used = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to read nonce: %w", err)
	}
	return used, nil
}

// Close shuts down the persistence layer
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger persistence closed")
	return nil
}

// HealthCheck verifies the database is readable and initialized
func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrClosed
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}
