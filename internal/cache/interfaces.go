package cache

import "github.com/bassista/go_reel/internal/repository"

// PersistableStore is the store API needed by the persistence scheduler.
type PersistableStore interface {
	IsDirty() bool
	Snapshot() (repository.DataDocument, error)
	ClearDirty()
	SetLastUpdate(ts int64)
}

// SnapshotStore is a store that can be persisted and also refreshed from the snapshot file.
// The in-memory storage implements it.
type SnapshotStore interface {
	repository.CacheStore
	PersistableStore
}
