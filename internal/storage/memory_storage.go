package storage

import (
	"context"
	"sync"
	"time"

	"github.com/bassista/go_reel/internal/logger"
	"github.com/bassista/go_reel/internal/repository"
	"github.com/google/uuid"
)

const subscriberBuffer = 64

// MemoryStorage keeps movies and users in process memory.
// It emits its own change events on every mutation, and it can be persisted to and
// reloaded from a JSON snapshot file.
type MemoryStorage struct {
	mu         sync.RWMutex
	movies     map[string]repository.Movie
	movieOrder []string
	users      map[string]repository.User
	userOrder  []string
	dirty      bool
	lastUpdate int64

	subMu       sync.Mutex
	subscribers map[chan repository.ChangeEvent]struct{}
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		movies:      map[string]repository.Movie{},
		users:       map[string]repository.User{},
		subscribers: map[chan repository.ChangeEvent]struct{}{},
	}
}

// NewMemoryStorageFromDocument creates a store preloaded with a snapshot.
func NewMemoryStorageFromDocument(doc repository.DataDocument) *MemoryStorage {
	s := NewMemoryStorage()
	s.load(doc)
	s.lastUpdate = doc.Metadata.LastUpdate
	return s
}

// SeedSamples adds a few well-known movies when the store is empty.
func (s *MemoryStorage) SeedSamples() {
	s.mu.RLock()
	empty := len(s.movies) == 0
	s.mu.RUnlock()
	if !empty {
		return
	}
	for _, in := range sampleMovies() {
		if _, err := s.CreateMovie(context.Background(), in); err != nil {
			logger.WithComponent("memory-storage").Warnf("seed movie %q: %v", in.Title, err)
		}
	}
	logger.WithComponent("memory-storage").Infof("seeded %d sample movies", len(sampleMovies()))
}

func (s *MemoryStorage) GetUser(_ context.Context, id string) (repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return repository.User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStorage) GetUserByUsername(_ context.Context, username string) (repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.userOrder {
		if u := s.users[id]; u.Username == username {
			return u, nil
		}
	}
	return repository.User{}, ErrUserNotFound
}

func (s *MemoryStorage) CreateUser(_ context.Context, in repository.UserInput) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == in.Username {
			return repository.User{}, ErrUsernameTaken
		}
	}
	u := repository.User{ID: uuid.NewString(), Username: in.Username, Password: in.Password}
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)
	s.touchLocked()
	return u, nil
}

func (s *MemoryStorage) GetAllMovies(_ context.Context) ([]repository.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]repository.Movie, 0, len(s.movieOrder))
	for _, id := range s.movieOrder {
		out = append(out, s.movies[id])
	}
	return out, nil
}

func (s *MemoryStorage) GetMovie(_ context.Context, id string) (repository.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	if !ok {
		return repository.Movie{}, ErrMovieNotFound
	}
	return m, nil
}

func (s *MemoryStorage) CreateMovie(_ context.Context, in repository.MovieInput) (repository.Movie, error) {
	m := in.ToMovie(uuid.NewString())

	s.mu.Lock()
	s.movies[m.ID] = m
	s.movieOrder = append(s.movieOrder, m.ID)
	s.touchLocked()
	s.mu.Unlock()

	created := m
	s.emit(repository.NewMovieChange(repository.OperationInsert, m.ID, &created))
	return m, nil
}

func (s *MemoryStorage) UpdateMovie(_ context.Context, id string, patch repository.MoviePatch) (repository.Movie, error) {
	s.mu.Lock()
	current, ok := s.movies[id]
	if !ok {
		s.mu.Unlock()
		return repository.Movie{}, ErrMovieNotFound
	}
	if patch.IsEmpty() {
		s.mu.Unlock()
		return current, nil
	}
	updated := patch.ApplyTo(current)
	s.movies[id] = updated
	s.touchLocked()
	s.mu.Unlock()

	doc := updated
	s.emit(repository.NewMovieChange(repository.OperationUpdate, id, &doc))
	return updated, nil
}

func (s *MemoryStorage) DeleteMovie(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	if _, ok := s.movies[id]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.movies, id)
	s.movieOrder = removeID(s.movieOrder, id)
	s.touchLocked()
	s.mu.Unlock()

	s.emit(repository.NewMovieChange(repository.OperationDelete, id, nil))
	return true, nil
}

// Watch delivers this store's mutation events until ctx is done.
// Events are dropped for a subscriber whose buffer is full.
func (s *MemoryStorage) Watch(ctx context.Context, onChange ChangeHandler) error {
	ch := make(chan repository.ChangeEvent, subscriberBuffer)
	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	defer func() {
		s.subMu.Lock()
		delete(s.subscribers, ch)
		s.subMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ch:
			onChange(ev)
		}
	}
}

func (s *MemoryStorage) Close(_ context.Context) error {
	return nil
}

// IsDirty reports whether there are changes not yet written to the snapshot file.
func (s *MemoryStorage) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *MemoryStorage) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

func (s *MemoryStorage) GetLastUpdate() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

func (s *MemoryStorage) SetLastUpdate(ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate = ts
}

// Snapshot returns a copy of the current content.
func (s *MemoryStorage) Snapshot() (repository.DataDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := repository.DataDocument{
		Metadata: repository.Metadata{LastUpdate: s.lastUpdate},
		Movies:   make([]repository.Movie, 0, len(s.movieOrder)),
		Users:    make([]repository.User, 0, len(s.userOrder)),
	}
	for _, id := range s.movieOrder {
		doc.Movies = append(doc.Movies, s.movies[id])
	}
	for _, id := range s.userOrder {
		doc.Users = append(doc.Users, s.users[id])
	}
	return doc, nil
}

// Replace swaps the content for doc, usually a snapshot file edited on disk,
// and emits one change event per movie that differs.
func (s *MemoryStorage) Replace(doc repository.DataDocument) error {
	s.mu.Lock()
	previous := s.movies
	s.load(doc)
	s.lastUpdate = doc.Metadata.LastUpdate
	s.dirty = false
	events := diffMovies(previous, s.movies, s.movieOrder)
	s.mu.Unlock()

	for _, ev := range events {
		s.emit(ev)
	}
	logger.WithComponent("memory-storage").Infof("store replaced from snapshot, %d movie change(s)", len(events))
	return nil
}

// load must be called with mu held or before the store is shared.
func (s *MemoryStorage) load(doc repository.DataDocument) {
	s.movies = make(map[string]repository.Movie, len(doc.Movies))
	s.movieOrder = make([]string, 0, len(doc.Movies))
	for _, m := range doc.Movies {
		if _, dup := s.movies[m.ID]; !dup {
			s.movieOrder = append(s.movieOrder, m.ID)
		}
		s.movies[m.ID] = m
	}
	s.users = make(map[string]repository.User, len(doc.Users))
	s.userOrder = make([]string, 0, len(doc.Users))
	for _, u := range doc.Users {
		if _, dup := s.users[u.ID]; !dup {
			s.userOrder = append(s.userOrder, u.ID)
		}
		s.users[u.ID] = u
	}
}

func (s *MemoryStorage) touchLocked() {
	s.dirty = true
	s.lastUpdate = time.Now().UnixMilli()
}

func (s *MemoryStorage) emit(ev repository.ChangeEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			logger.WithComponent("memory-storage").Warnf("subscriber buffer full, dropping %s event for %s", ev.OperationType, ev.DocumentKey)
		}
	}
}

func diffMovies(before, after map[string]repository.Movie, order []string) []repository.ChangeEvent {
	var events []repository.ChangeEvent
	for _, id := range order {
		m := after[id]
		old, existed := before[id]
		switch {
		case !existed:
			events = append(events, repository.NewMovieChange(repository.OperationInsert, id, &m))
		case old != m:
			events = append(events, repository.NewMovieChange(repository.OperationReplace, id, &m))
		}
	}
	for id := range before {
		if _, ok := after[id]; !ok {
			events = append(events, repository.NewMovieChange(repository.OperationDelete, id, nil))
		}
	}
	return events
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
