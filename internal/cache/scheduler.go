package cache

import (
	"context"
	"time"

	"github.com/bassista/go_reel/internal/logger"
	"github.com/bassista/go_reel/internal/repository"
)

// StartPersistenceScheduler periodically writes the store to the snapshot file when it is dirty.
// On ctx.Done it flushes one last time. The returned channel is closed once the goroutine exits.
func StartPersistenceScheduler(
	ctx context.Context,
	store PersistableStore,
	repo repository.Saver,
	interval time.Duration,
) <-chan struct{} {
	done := make(chan struct{})
	log := logger.WithComponent("persist")
	log.Debugf("starting persistence scheduler every %v", interval)

	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// the request context is gone; the final write must still land
				flush(context.WithoutCancel(ctx), store, repo)
				log.Info("persistence scheduler stopped")
				return
			case <-ticker.C:
				flush(ctx, store, repo)
			}
		}
	}()
	return done
}

func flush(ctx context.Context, store PersistableStore, repo repository.Saver) {
	log := logger.WithComponent("persist")
	if !store.IsDirty() {
		return
	}
	if err := ctx.Err(); err != nil {
		log.Debugf("flush cancelled: %v", err)
		return
	}

	snapshot, err := store.Snapshot()
	if err != nil {
		log.Errorf("snapshot failed: %v", err)
		return
	}
	snapshot.Metadata.LastUpdate = time.Now().UnixMilli()

	if err := repo.Save(ctx, &snapshot); err != nil {
		log.Errorf("save failed: %v", err)
		return
	}

	store.ClearDirty()
	store.SetLastUpdate(snapshot.Metadata.LastUpdate)
	log.Debugf("store persisted with %d movies", len(snapshot.Movies))
}
