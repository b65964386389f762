package route

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// NewUIRouter serves the built frontend from dir. Unknown non-API paths get
// index.html so client-side routing works. API and websocket paths answer a JSON 404.
func NewUIRouter(r *gin.Engine, dir string) {
	index := filepath.Join(dir, "index.html")
	hasUI := dir != "" && fileExists(index)

	if hasUI {
		r.GET("/", func(c *gin.Context) {
			c.File(index)
		})
	}

	r.NoRoute(func(c *gin.Context) {
		p := c.Request.URL.Path
		if !hasUI || c.Request.Method != http.MethodGet || isBackendPath(p) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		// static assets first, then the SPA entry point
		asset := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+p)))
		if fileExists(asset) {
			c.File(asset)
			return
		}
		c.File(index)
	})
}

func isBackendPath(p string) bool {
	return p == "/api" || strings.HasPrefix(p, "/api/") || p == WebSocketPath || p == "/health"
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
