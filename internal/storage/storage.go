package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/bassista/go_reel/internal/repository"
	"github.com/containerd/errdefs"
)

var (
	ErrMovieNotFound = fmt.Errorf("movie not found: %w", errdefs.ErrNotFound)
	ErrUserNotFound  = fmt.Errorf("user not found: %w", errdefs.ErrNotFound)
	ErrUsernameTaken = fmt.Errorf("username already taken: %w", errdefs.ErrAlreadyExists)
)

// ChangeHandler receives store change notifications.
type ChangeHandler func(repository.ChangeEvent)

// Storage is the CRUD contract the API layer talks to.
// CachedStorage (MongoDB plus read-through cache) and MemoryStorage implement it.
type Storage interface {
	GetUser(ctx context.Context, id string) (repository.User, error)
	GetUserByUsername(ctx context.Context, username string) (repository.User, error)
	CreateUser(ctx context.Context, in repository.UserInput) (repository.User, error)

	// GetAllMovies never surfaces store failures; it degrades to an empty list.
	GetAllMovies(ctx context.Context) ([]repository.Movie, error)
	GetMovie(ctx context.Context, id string) (repository.Movie, error)
	CreateMovie(ctx context.Context, in repository.MovieInput) (repository.Movie, error)
	UpdateMovie(ctx context.Context, id string, patch repository.MoviePatch) (repository.Movie, error)
	// DeleteMovie reports false when nothing was removed.
	DeleteMovie(ctx context.Context, id string) (bool, error)

	// Watch blocks delivering change events until ctx is done or the stream fails.
	// It returns repository.ErrChangeStreamUnsupported when the store cannot push changes.
	Watch(ctx context.Context, onChange ChangeHandler) error
	Close(ctx context.Context) error
}

// RecordStore is the durable side of CachedStorage.
// Errors are returned as-is; CachedStorage decides what degrades.
type RecordStore interface {
	FindMovies(ctx context.Context) ([]repository.Movie, error)
	FindMovie(ctx context.Context, id string) (repository.Movie, error)
	InsertMovie(ctx context.Context, in repository.MovieInput) (repository.Movie, error)
	UpdateMovie(ctx context.Context, id string, patch repository.MoviePatch) (repository.Movie, error)
	DeleteMovie(ctx context.Context, id string) (bool, error)

	FindUser(ctx context.Context, id string) (repository.User, error)
	FindUserByUsername(ctx context.Context, username string) (repository.User, error)
	InsertUser(ctx context.Context, in repository.UserInput) (repository.User, error)

	Watch(ctx context.Context, onChange ChangeHandler) error
	Close(ctx context.Context) error
}

// blankID reports whether id carries no usable identifier.
func blankID(id string) bool {
	return strings.TrimSpace(id) == ""
}
