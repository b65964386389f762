package storage

import (
	"context"
	"fmt"

	"github.com/bassista/go_reel/internal/cache"
	"github.com/bassista/go_reel/internal/logger"
	"github.com/bassista/go_reel/internal/repository"
	"github.com/containerd/errdefs"
)

func movieKey(m repository.Movie) string { return m.ID }

// CachedStorage fronts a durable RecordStore with in-process read-through caches.
// Writes hit the store first and reach the cache only once the store confirmed them.
// Read failures are logged and degrade to empty/not-found results.
type CachedStorage struct {
	store  RecordStore
	movies *cache.RecordCache[repository.Movie]
	users  *cache.RecordCache[repository.User]
}

func NewCachedStorage(store RecordStore) *CachedStorage {
	return &CachedStorage{
		store:  store,
		movies: cache.NewRecordCache[repository.Movie](),
		users:  cache.NewRecordCache[repository.User](),
	}
}

// Warm loads every movie into the cache. It is called once the store is connected.
// A load that raced a write is discarded and the cache keeps its current entries.
func (s *CachedStorage) Warm(ctx context.Context) error {
	movies, installed, err := s.loadMovies(ctx)
	if err != nil {
		return fmt.Errorf("warm movie cache: %w", err)
	}
	if !installed {
		logger.WithComponent("cached-storage").Debug("movie cache load skipped, a write happened meanwhile")
		return nil
	}
	logger.WithComponent("cached-storage").Infof("movie cache warmed with %d movies", len(movies))
	return nil
}

// loadMovies reads every movie from the store and installs them in the cache
// unless a record was written or deleted while the read was in flight.
func (s *CachedStorage) loadMovies(ctx context.Context) ([]repository.Movie, bool, error) {
	gen := s.movies.Generation()
	movies, err := s.store.FindMovies(ctx)
	if err != nil {
		return nil, false, err
	}
	return movies, s.movies.ReplaceIfUnchanged(movies, movieKey, gen), nil
}

// Refresh forces a refetch of the movie cache and drops cached users.
func (s *CachedStorage) Refresh(ctx context.Context) error {
	s.users.Invalidate()
	return s.Warm(ctx)
}

// ApplyChange mirrors a store change event into the movie cache.
// Update events without a full document drop the entry so the next read refetches it.
func (s *CachedStorage) ApplyChange(ev repository.ChangeEvent) {
	if ev.Collection != repository.MoviesCollection || ev.DocumentKey == "" {
		return
	}
	log := logger.WithComponent("cached-storage")
	switch ev.OperationType {
	case repository.OperationInsert, repository.OperationUpdate, repository.OperationReplace:
		if ev.FullDocument == nil {
			s.movies.Delete(ev.DocumentKey)
			log.Debugf("movie %s dropped from cache, no document in %s event", ev.DocumentKey, ev.OperationType)
			return
		}
		s.movies.Put(ev.DocumentKey, *ev.FullDocument)
		log.Debugf("movie %s cached from %s event", ev.DocumentKey, ev.OperationType)
	case repository.OperationDelete:
		s.movies.Delete(ev.DocumentKey)
		log.Debugf("movie %s removed from cache", ev.DocumentKey)
	}
}

func (s *CachedStorage) GetUser(ctx context.Context, id string) (repository.User, error) {
	if blankID(id) {
		return repository.User{}, ErrUserNotFound
	}
	if u, ok := s.users.Get(id); ok {
		return u, nil
	}
	u, err := s.store.FindUser(ctx, id)
	if err != nil {
		return repository.User{}, s.degradeUserRead(err, "get user "+id)
	}
	s.users.Put(u.ID, u)
	return u, nil
}

func (s *CachedStorage) GetUserByUsername(ctx context.Context, username string) (repository.User, error) {
	if u, ok := s.users.Find(func(u repository.User) bool { return u.Username == username }); ok {
		return u, nil
	}
	u, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return repository.User{}, s.degradeUserRead(err, "get user by username "+username)
	}
	s.users.Put(u.ID, u)
	return u, nil
}

func (s *CachedStorage) CreateUser(ctx context.Context, in repository.UserInput) (repository.User, error) {
	u, err := s.store.InsertUser(context.WithoutCancel(ctx), in)
	if err != nil {
		return repository.User{}, fmt.Errorf("create user: %w", err)
	}
	s.users.Put(u.ID, u)
	return u, nil
}

func (s *CachedStorage) GetAllMovies(ctx context.Context) ([]repository.Movie, error) {
	if movies, warm := s.movies.All(); warm {
		return movies, nil
	}
	movies, installed, err := s.loadMovies(ctx)
	if err != nil {
		logger.WithComponent("cached-storage").Errorf("list movies failed, returning empty list: %v", err)
		return []repository.Movie{}, nil
	}
	if !installed {
		// the cached view includes the concurrent write; it is fresher than this read
		if cached, warm := s.movies.All(); warm {
			return cached, nil
		}
	}
	if movies == nil {
		movies = []repository.Movie{}
	}
	return movies, nil
}

func (s *CachedStorage) GetMovie(ctx context.Context, id string) (repository.Movie, error) {
	if blankID(id) {
		return repository.Movie{}, ErrMovieNotFound
	}
	if m, ok := s.movies.Get(id); ok {
		return m, nil
	}
	m, err := s.store.FindMovie(ctx, id)
	if err != nil {
		if !errdefs.IsNotFound(err) {
			logger.WithComponent("cached-storage").Errorf("get movie %s failed: %v", id, err)
		}
		return repository.Movie{}, ErrMovieNotFound
	}
	s.movies.Put(m.ID, m)
	return m, nil
}

func (s *CachedStorage) CreateMovie(ctx context.Context, in repository.MovieInput) (repository.Movie, error) {
	m, err := s.store.InsertMovie(context.WithoutCancel(ctx), in)
	if err != nil {
		return repository.Movie{}, fmt.Errorf("create movie: %w", err)
	}
	s.movies.Put(m.ID, m)
	logger.WithComponent("cached-storage").Debugf("movie %s created", m.ID)
	return m, nil
}

func (s *CachedStorage) UpdateMovie(ctx context.Context, id string, patch repository.MoviePatch) (repository.Movie, error) {
	if blankID(id) {
		return repository.Movie{}, ErrMovieNotFound
	}
	m, err := s.store.UpdateMovie(context.WithoutCancel(ctx), id, patch)
	if err != nil {
		if errdefs.IsNotFound(err) {
			s.movies.Delete(id)
			return repository.Movie{}, ErrMovieNotFound
		}
		return repository.Movie{}, fmt.Errorf("update movie %s: %w", id, err)
	}
	s.movies.Put(m.ID, m)
	return m, nil
}

func (s *CachedStorage) DeleteMovie(ctx context.Context, id string) (bool, error) {
	if blankID(id) {
		return false, nil
	}
	removed, err := s.store.DeleteMovie(context.WithoutCancel(ctx), id)
	if err != nil {
		return false, fmt.Errorf("delete movie %s: %w", id, err)
	}
	s.movies.Delete(id)
	return removed, nil
}

func (s *CachedStorage) Watch(ctx context.Context, onChange ChangeHandler) error {
	return s.store.Watch(ctx, onChange)
}

func (s *CachedStorage) Close(ctx context.Context) error {
	s.movies.Invalidate()
	s.users.Invalidate()
	return s.store.Close(ctx)
}

func (s *CachedStorage) degradeUserRead(err error, op string) error {
	if !errdefs.IsNotFound(err) {
		logger.WithComponent("cached-storage").Errorf("%s failed: %v", op, err)
	}
	return ErrUserNotFound
}
