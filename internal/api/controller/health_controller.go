package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RelayStatus reports whether live updates are flowing. relay.Relay satisfies it.
type RelayStatus interface {
	Degraded() bool
}

// SessionCounter reports connected websocket sessions. relay.Hub satisfies it.
type SessionCounter interface {
	Count() int
}

type HealthResponse struct {
	Message  string `json:"message"`
	Backend  string `json:"backend"`
	Relay    string `json:"relay"`
	Sessions int    `json:"sessions"`
}

// HealthController answers liveness checks.
type HealthController struct {
	backend  string
	relay    RelayStatus
	sessions SessionCounter
}

// NewHealthController creates a HealthController. relay and sessions may be nil
// when live updates are disabled.
func NewHealthController(backend string, relay RelayStatus, sessions SessionCounter) *HealthController {
	return &HealthController{backend: backend, relay: relay, sessions: sessions}
}

func (hc *HealthController) Health(c *gin.Context) {
	resp := HealthResponse{Message: "UP", Backend: hc.backend, Relay: "active"}
	if hc.relay == nil || hc.relay.Degraded() {
		resp.Relay = "degraded"
	}
	if hc.sessions != nil {
		resp.Sessions = hc.sessions.Count()
	}
	c.JSON(http.StatusOK, resp)
}
