package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bassista/go_reel/internal/config"
	"github.com/bassista/go_reel/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorageFromConfig_Memory(t *testing.T) {
	s, err := NewStorageFromConfig(context.Background(), config.StoreConfig{Backend: config.BackendMemory}, nil)
	require.NoError(t, err)

	mem, ok := s.(*MemoryStorage)
	require.True(t, ok, "expected MemoryStorage")
	all, _ := mem.GetAllMovies(context.Background())
	assert.Empty(t, all)
}

func TestNewStorageFromConfig_MemoryWithSamples(t *testing.T) {
	cfg := config.StoreConfig{Backend: config.BackendMemory, Memory: config.MemoryConfig{SeedSamples: true}}
	s, err := NewStorageFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)

	all, _ := s.GetAllMovies(context.Background())
	assert.Len(t, all, 4)
}

func TestNewStorageFromConfig_MemoryFromSnapshot(t *testing.T) {
	repo, err := repository.NewJSONRepository(filepath.Join(t.TempDir(), "movies.json"))
	require.NoError(t, err)
	doc := &repository.DataDocument{
		Metadata: repository.Metadata{LastUpdate: 77},
		Movies:   []repository.Movie{{ID: "m1", Title: "Alien", Genre: "Horror", Rating: 8.5}},
	}
	require.NoError(t, repo.Save(context.Background(), doc))

	cfg := config.StoreConfig{Backend: config.BackendMemory, Memory: config.MemoryConfig{SeedSamples: true}}
	s, err := NewStorageFromConfig(context.Background(), cfg, repo)
	require.NoError(t, err)

	all, _ := s.GetAllMovies(context.Background())
	require.Len(t, all, 1, "a non-empty snapshot is never seeded")
	assert.Equal(t, "Alien", all[0].Title)
	assert.Equal(t, int64(77), s.(*MemoryStorage).GetLastUpdate())
}

func TestNewStorageFromConfig_UnknownBackend(t *testing.T) {
	_, err := NewStorageFromConfig(context.Background(), config.StoreConfig{Backend: "postgres"}, nil)
	assert.Error(t, err)
}

func TestNewStorageFromConfig_MongoUnreachable(t *testing.T) {
	cfg := config.StoreConfig{
		Backend: config.BackendMongo,
		Mongo: config.MongoConfig{
			URI:                    "mongodb://127.0.0.1:1/?connect=direct",
			Database:               "moviesDB",
			ServerSelectionTimeout: 100 * time.Millisecond,
			RetryInterval:          10 * time.Millisecond,
			MaxConnectAttempts:     2,
		},
	}
	_, err := NewStorageFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestConnectMongo_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := ConnectMongo(ctx, config.MongoConfig{
		URI:                    "mongodb://127.0.0.1:1/?connect=direct",
		ServerSelectionTimeout: 50 * time.Millisecond,
		RetryInterval:          20 * time.Millisecond,
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnectMongo_RequiresURI(t *testing.T) {
	_, err := ConnectMongo(context.Background(), config.MongoConfig{})
	assert.Error(t, err)
}
