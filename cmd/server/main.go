package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	route "github.com/bassista/go_reel/internal/api/route"
	appctx "github.com/bassista/go_reel/internal/app"
	"github.com/bassista/go_reel/internal/config"
	"github.com/bassista/go_reel/internal/logger"
	"github.com/bassista/go_reel/internal/repository"
	"github.com/bassista/go_reel/internal/storage"
	"github.com/enrichman/httpgrace"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithComponent("main").Fatalf("configuration error: %v", err)
	}

	if err := logger.Configure(cfg.Misc.LogLevel, cfg.Misc.LogFormat); err != nil {
		logger.WithComponent("main").Warnf("keeping default logging: %v", err)
	}
	logger.WithComponent("main").Debugf("log level set to: %s", logger.Logger.GetLevel())
	logger.WithComponent("main").Infof("App will run on port %d with the %s backend", cfg.Server.Port, cfg.Store.Backend)

	snapshots, err := newSnapshotRepository(cfg.Store)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init snapshot repository: %v", err)
	}

	// connecting to MongoDB retries until it succeeds, so let a signal abort it
	startCtx, stopStart := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	store, err := storage.NewStorageFromConfig(startCtx, cfg.Store, snapshots)
	stopStart()
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init storage: %v", err)
	}

	app, err := appctx.New(cfg, store, snapshots)
	if err != nil {
		logger.WithComponent("main").Fatalf("cannot init app: %v", err)
	}
	defer app.Shutdown()

	if err := app.StartWatchers(); err != nil {
		logger.WithComponent("main").Fatalf("cannot start background workers: %v", err)
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := route.SetupRoutes(app, logger.Logger)
	srv := createGraceHttpServer(app.BaseCtx, "main-server", app.Config.Server, r)

	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithComponent("main").Error(err)
	}
}

// newSnapshotRepository returns the JSON snapshot file of the memory backend, or nil when none is configured.
func newSnapshotRepository(cfg config.StoreConfig) (repository.Repository, error) {
	if cfg.Backend != config.BackendMemory || cfg.Memory.SnapshotPath == "" {
		return nil, nil
	}
	return repository.NewJSONRepository(cfg.Memory.SnapshotPath)
}

func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}
