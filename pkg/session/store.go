package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/config"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence/badger"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence/memory"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence/redis"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence/sqlite"
)

// OpenStore creates the session store cfg selects and checks that it is usable
func OpenStore(cfg *config.PersistenceConfig, logger *zap.Logger) (persistence.ISessionPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("persistence config cannot be nil")
	}
	typ, err := persistence.ParsePersistenceType(cfg.Type)
	if err != nil {
		return nil, err
	}

	var store persistence.ISessionPersistence
	switch typ {
	case persistence.PersistenceTypeMemory:
		store = memory.NewMemoryPersistence(logger)
	case persistence.PersistenceTypeBadger:
		store, err = badger.NewBadgerPersistence(cfg.DataPath, logger)
	case persistence.PersistenceTypeRedis:
		store, err = redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		}, logger)
	case persistence.PersistenceTypeSqlite:
		store, err = sqlite.NewSqlitePersistence(cfg.DataPath, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s persistence: %w", typ, err)
	}

	if err := store.HealthCheck(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%s persistence failed health check: %w", typ, err)
	}
	return store, nil
}
