package persistence

import (
	"fmt"
	"strings"
	"time"
)

// PersistenceType selects a storage backend
type PersistenceType string

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
	PersistenceTypeSqlite PersistenceType = "sqlite"
)

// DefaultNonceTTL is how long a consumed nonce is remembered when the
// backend gives no expiry
const DefaultNonceTTL = 24 * time.Hour

// SupportedPersistenceTypes lists every backend
var SupportedPersistenceTypes = []PersistenceType{
	PersistenceTypeMemory,
	PersistenceTypeBadger,
	PersistenceTypeRedis,
	PersistenceTypeSqlite,
}

// ParsePersistenceType parses a backend name, case-insensitively
func ParsePersistenceType(s string) (PersistenceType, error) {
	t := PersistenceType(strings.ToLower(strings.TrimSpace(s)))
	for _, supported := range SupportedPersistenceTypes {
		if t == supported {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported persistence type %q", s)
}

// EffectiveTTL substitutes DefaultNonceTTL for a non-positive ttl
func EffectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultNonceTTL
	}
	return ttl
}
