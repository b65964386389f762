package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bassista/go_reel/internal/cache"
	"github.com/bassista/go_reel/internal/config"
	"github.com/bassista/go_reel/internal/logger"
	"github.com/bassista/go_reel/internal/relay"
	"github.com/bassista/go_reel/internal/repository"
	"github.com/bassista/go_reel/internal/scheduler"
	"github.com/bassista/go_reel/internal/storage"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config  *config.Config
	Storage storage.Storage
	// Snapshots is the JSON snapshot file of the memory backend, nil when unused.
	Snapshots repository.Repository

	// Hub and Relay are nil when live updates are disabled.
	Hub   *relay.Hub
	Relay *relay.Relay

	BaseCtx context.Context
	Cancel  context.CancelFunc

	background []<-chan struct{}
}

func New(cfg *config.Config, store storage.Storage, snapshots repository.Repository) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("storage is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		Config:    cfg,
		Storage:   store,
		Snapshots: snapshots,
		BaseCtx:   ctx,
		Cancel:    cancel,
	}

	if cfg.Relay.Enabled {
		a.Hub = relay.NewHub(cfg.Relay.WriteTimeout, cfg.Server.CORSAllowedOrigins)
		var sinks []relay.ChangeSink
		if sink, ok := store.(relay.ChangeSink); ok {
			sinks = append(sinks, sink)
		}
		a.Relay = relay.New(store, a.Hub, sinks...)
	}
	return a, nil
}

// StartWatchers launches the background work of the configured backend:
// the change relay, snapshot watching and persistence, and cache resync.
func (a *App) StartWatchers() error {
	log := logger.WithComponent("app")

	if a.Relay != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := a.Relay.Run(a.BaseCtx); err != nil {
				log.Errorf("change relay stopped: %v", err)
			}
		}()
		a.background = append(a.background, done)
	}

	if a.Snapshots != nil {
		target, ok := a.Storage.(cache.SnapshotStore)
		if !ok {
			return fmt.Errorf("storage %T cannot be persisted to a snapshot file", a.Storage)
		}
		if err := a.Snapshots.StartWatcher(a.BaseCtx, target); err != nil {
			return fmt.Errorf("start snapshot watcher: %w", err)
		}
		done := cache.StartPersistenceScheduler(a.BaseCtx, target, a.Snapshots, a.Config.Store.Memory.PersistInterval)
		a.background = append(a.background, done)
	}

	if interval := a.Config.Store.Mongo.ResyncInterval; interval > 0 && a.Config.Store.Backend == config.BackendMongo {
		if target, ok := a.Storage.(scheduler.Refresher); ok {
			s := scheduler.NewResyncScheduler(target, interval, a.Config.Store.Mongo.SocketTimeout)
			a.background = append(a.background, s.Start(a.BaseCtx))
		} else {
			log.Warnf("storage %T does not support cache resync", a.Storage)
		}
	}
	return nil
}

// Shutdown stops background work, disconnects websocket sessions and closes the storage.
// It waits up to the configured shutdown timeout for the final snapshot flush.
func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()
	if a.Hub != nil {
		a.Hub.Close()
	}

	timeout := a.Config.Server.ShutDownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	deadline := time.After(timeout)
wait:
	for _, done := range a.background {
		select {
		case <-done:
		case <-deadline:
			logger.WithComponent("app").Warn("background workers did not stop in time")
			break wait
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.Storage.Close(ctx); err != nil {
		logger.WithComponent("app").Warnf("closing storage: %v", err)
	}
}
