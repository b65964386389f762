package controller

import (
	"net/http"

	"github.com/bassista/go_reel/internal/catalog"
	"github.com/bassista/go_reel/internal/config"
	"github.com/bassista/go_reel/internal/repository"
	"github.com/gin-gonic/gin"
)

// WebSocketPath is where the change relay accepts connections.
const WebSocketPath = "/ws"

// ConfigurationResponse tells the frontend how to talk to this server.
type ConfigurationResponse struct {
	Backend       string   `json:"backend"`
	LiveUpdates   bool     `json:"liveUpdates"`
	WebSocketPath string   `json:"wsPath"`
	SortOptions   []string `json:"sortOptions"`
	WatchedValues []string `json:"watchedValues"`
	DefaultRating float64  `json:"defaultRating"`
}

// ConfigurationController handles configuration-related API endpoints.
type ConfigurationController struct {
	config *config.Config
}

// NewConfigurationController creates a new ConfigurationController.
func NewConfigurationController(cfg *config.Config) *ConfigurationController {
	return &ConfigurationController{
		config: cfg,
	}
}

// GetConfiguration returns the application configuration for the frontend.
func (cc *ConfigurationController) GetConfiguration(c *gin.Context) {
	response := ConfigurationResponse{
		Backend:       cc.config.Store.Backend,
		LiveUpdates:   cc.config.Relay.Enabled,
		WebSocketPath: WebSocketPath,
		SortOptions: []string{
			string(catalog.SortDefault),
			string(catalog.SortRatingDesc),
			string(catalog.SortRatingAsc),
			string(catalog.SortTitleAsc),
			string(catalog.SortTitleDesc),
		},
		WatchedValues: []string{
			string(catalog.WatchedAll),
			string(catalog.WatchedOnly),
			string(catalog.WatchedUnwatched),
		},
		DefaultRating: repository.DefaultRating,
	}
	c.JSON(http.StatusOK, response)
}
