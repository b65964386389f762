package storage

import (
	"context"
	"fmt"

	"github.com/bassista/go_reel/internal/config"
	"github.com/bassista/go_reel/internal/logger"
	"github.com/bassista/go_reel/internal/repository"
)

// NewStorageFromConfig builds the storage variant named by cfg.Backend.
// For the memory backend, snapshots (may be nil) provides the initial content.
// For the mongo backend it blocks until MongoDB is reachable or ctx is done.
func NewStorageFromConfig(ctx context.Context, cfg config.StoreConfig, snapshots repository.Repository) (Storage, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return newMemoryFromConfig(ctx, cfg.Memory, snapshots)
	case config.BackendMongo, "":
		return newMongoFromConfig(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: %s, %s)", cfg.Backend, config.BackendMongo, config.BackendMemory)
	}
}

func newMemoryFromConfig(ctx context.Context, cfg config.MemoryConfig, snapshots repository.Repository) (*MemoryStorage, error) {
	mem := NewMemoryStorage()
	if snapshots != nil {
		doc, err := snapshots.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		mem = NewMemoryStorageFromDocument(*doc)
	}
	if cfg.SeedSamples {
		mem.SeedSamples()
	}
	return mem, nil
}

func newMongoFromConfig(ctx context.Context, cfg config.MongoConfig) (*CachedStorage, error) {
	client, err := ConnectMongo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	records, err := NewMongoRecordStore(ctx, client, cfg.Database, cfg.SocketTimeout)
	if err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}

	cached := NewCachedStorage(records)
	if err := cached.Warm(ctx); err != nil {
		// the first full read will retry
		logger.WithComponent("storage").Warnf("cache warm-up failed: %v", err)
	}
	return cached, nil
}
