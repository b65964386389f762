package route

import (
	"github.com/bassista/go_reel/internal/api/controller"
	"github.com/bassista/go_reel/internal/api/middleware"
	"github.com/bassista/go_reel/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// WebSocketPath is where browsers subscribe to movie-change notifications.
const WebSocketPath = controller.WebSocketPath

// SetupRoutes builds the engine: middlewares, health, the movie API, the
// websocket change feed and the static UI.
func SetupRoutes(appCtx *app.App, log *logrus.Logger) *gin.Engine {
	cfg := appCtx.Config

	r := gin.New()
	r.Use(middleware.HoneybadgerMiddleware(log, cfg.Misc.HoneybadgerAPIKey, cfg.Misc.Environment))
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger("/api"))
	r.Use(middleware.CORSMiddleware(cfg.Server.CORSAllowedOrigins))
	r.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout, WebSocketPath))

	var health *controller.HealthController
	if appCtx.Relay != nil {
		health = controller.NewHealthController(cfg.Store.Backend, appCtx.Relay, appCtx.Hub)
		r.GET(WebSocketPath, gin.WrapH(appCtx.Hub.Handler()))
	} else {
		health = controller.NewHealthController(cfg.Store.Backend, nil, nil)
	}
	r.GET("/health", health.Health)

	api := r.Group("/api")
	NewMovieRouter(api, appCtx.Storage)
	NewConfigurationRouter(api, cfg)

	NewUIRouter(r, cfg.Server.UIDir)
	return r
}
