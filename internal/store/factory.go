package store

import (
	"fmt"
	"time"

	"github.com/nemaeval/nema-eval/internal/config"
	"github.com/nemaeval/nema-eval/internal/pkg/errors"
)

// New creates a store from configuration.
// Supported types: "memory", "file", "sqlite", "redis". The "none" type
// means results are not persisted and yields a VALIDATION_ERROR here.
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Path), nil
	case "sqlite":
		s, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		ttl := time.Duration(cfg.TTLHours) * time.Hour
		s, err := NewRedisStore(cfg.RedisURL, ttl)
		if err != nil {
			return nil, errors.Wrap(errors.CodeUnavailable, "redis result store", err)
		}
		return s, nil
	case "none", "":
		return nil, errors.ValidationError("result store is disabled (store.type is none)")
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown store type: %s", cfg.Type))
	}
}
