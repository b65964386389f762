package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/go_reel/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
)

const watchDebounce = 200 * time.Millisecond

// CacheStore is what the watcher callback needs from the in-memory store it refreshes.
type CacheStore interface {
	GetLastUpdate() int64
	IsDirty() bool
	Snapshot() (DataDocument, error)
	Replace(doc DataDocument) error
}

// JSONRepository handles disk persistence and watching of the snapshot file.
type JSONRepository struct {
	path      string
	dir       string
	base      string
	validator *validator.Validate
	mu        sync.Mutex
}

// NewJSONRepository creates a repository for the given JSON file path.
// It returns the repository interface to avoid leaking implementation details.
func NewJSONRepository(path string) (Repository, error) {
	if path == "" {
		return nil, errors.New("snapshot file path is required")
	}

	dir := filepath.Dir(path)
	if dir == "" {
		dir = "."
	}
	return &JSONRepository{
		path:      path,
		dir:       dir,
		base:      filepath.Base(path),
		validator: NewValidator(),
	}, nil
}

// Load reads, parses and validates the snapshot file.
// A missing file is created with an empty document so the watcher has something to observe.
func (r *JSONRepository) Load(ctx context.Context) (*DataDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.loadUnlocked()
	if errors.Is(err, os.ErrNotExist) {
		empty := &DataDocument{}
		empty.ApplyDefaults()
		if err := os.MkdirAll(r.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
		if err := r.saveUnlocked(empty); err != nil {
			return nil, err
		}
		logger.WithComponent("snapshot-repo").Infof("created empty snapshot file %s", r.path)
		return empty, nil
	}
	return doc, err
}

// loadUnlocked reads the JSON file without acquiring the lock (caller must hold it).
func (r *JSONRepository) loadUnlocked() (*DataDocument, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer file.Close()

	var doc DataDocument
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode snapshot file: %w", err)
	}

	doc.ApplyDefaults()

	if err := r.validator.Struct(&doc); err != nil {
		return nil, fmt.Errorf("validate snapshot file: %w", err)
	}
	return &doc, nil
}

// Save validates and writes the document atomically to disk.
func (r *JSONRepository) Save(ctx context.Context, doc *DataDocument) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.validator.Struct(doc); err != nil {
		return fmt.Errorf("validate before save: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveUnlocked(doc)
}

// saveUnlocked writes via temp file + rename so readers never see a partial document.
func (r *JSONRepository) saveUnlocked(doc *DataDocument) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmpFile, err := os.CreateTemp(r.dir, r.base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), r.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}

// StartWatcher reloads target whenever the snapshot file is edited outside the process.
// The parent directory is watched so temp+rename replacements are seen; events are filtered
// by basename and debounced. Cancel ctx to stop the goroutine and close the watcher.
func (r *JSONRepository) StartWatcher(ctx context.Context, target CacheStore) error {
	if target == nil {
		return errors.New("watch target is required")
	}
	onChange := r.MakeWatcherCallback(target)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != r.base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, onChange)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithComponent("snapshot-repo").Warnf("watcher error: %v", err)
			}
		}
	}()

	logger.WithComponent("snapshot-repo").Infof("watching snapshot file %s", r.path)
	return nil
}

// MakeWatcherCallback returns the reload callback used by the watcher.
// Disk wins only when it is at least as new as the store and the store has nothing unsaved.
func (r *JSONRepository) MakeWatcherCallback(target CacheStore) func() {
	log := logger.WithComponent("snapshot-repo")
	return func() {
		r.mu.Lock()
		diskDoc, err := r.loadUnlocked()
		r.mu.Unlock()
		if err != nil {
			log.Warnf("watch reload failed: %v", err)
			return
		}

		storeLastUpdate := target.GetLastUpdate()
		diskLastUpdate := diskDoc.Metadata.LastUpdate
		if diskLastUpdate < storeLastUpdate {
			log.Debugf("disk snapshot older than store (disk=%d, store=%d), skipping reload", diskLastUpdate, storeLastUpdate)
			return
		}

		if target.IsDirty() {
			// unsaved changes will overwrite the file on the next flush
			log.Warn("disk snapshot changed but store is dirty, skipping reload")
			return
		}

		if diskLastUpdate == storeLastUpdate {
			current, err := target.Snapshot()
			if err != nil {
				log.Errorf("reload aborted, cannot snapshot store: %v", err)
				return
			}
			if AreDataDocumentsEqual(&current, diskDoc) {
				return
			}
		}

		if err := target.Replace(*diskDoc); err != nil {
			log.Errorf("reload failed: %v", err)
			return
		}
		log.Info("store reloaded from newer snapshot file")
	}
}
