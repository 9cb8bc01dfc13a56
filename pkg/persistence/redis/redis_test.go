package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/logger"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/persistence"
	"github.com/Layr-Labs/eigenx-wallet-auth/pkg/testutil"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis skips the test when Redis is not reachable. Every store gets
// its own key prefix so tests never see each other's keys.
func requireRedis(t *testing.T) *RedisPersistence {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cfg := &RedisConfig{
		Address:   getTestRedisAddress(),
		DB:        15,
		KeyPrefix: "test-" + uuid.NewString() + ":",
	}

	rp, err := NewRedisPersistence(cfg, testLogger)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}

	return rp
}

func TestRedisPersistence_Suite(t *testing.T) {
	requireRedis(t).Close()

	testutil.RunSessionPersistenceSuite(t, func(t *testing.T) persistence.ISessionPersistence {
		return requireRedis(t)
	})
}

func TestRedisPersistence_Validation(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewRedisPersistence(nil, testLogger)
	assert.Error(t, err)

	_, err = NewRedisPersistence(&RedisConfig{}, testLogger)
	assert.Error(t, err)

	_, err = NewRedisPersistence(&RedisConfig{Address: "localhost:6379"}, nil)
	assert.Error(t, err)
}

func TestRedisPersistence_NonceExpires(t *testing.T) {
	rp := requireRedis(t)
	defer func() { _ = rp.Close() }()

	require.NoError(t, rp.MarkNonceUsed("short", 50*time.Millisecond))

	require.Eventually(t, func() bool {
		used, err := rp.IsNonceUsed("short")
		return err == nil && !used
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRedisPersistence_SessionExpiresWithToken(t *testing.T) {
	rp := requireRedis(t)
	defer func() { _ = rp.Close() }()

	session := testutil.NewTestSession()
	session.ExpiresAt = time.Now().Add(time.Hour).Unix()
	require.NoError(t, rp.SaveSession(session))

	ttl, err := rp.client.TTL(context.Background(), rp.prefixKey(keySession)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}
