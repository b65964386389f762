package route

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bassista/go_reel/internal/app"
	"github.com/bassista/go_reel/internal/config"
	"github.com/bassista/go_reel/internal/logger"
	"github.com/bassista/go_reel/internal/repository"
	"github.com/bassista/go_reel/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestApp(t *testing.T, relayEnabled bool, uiDir string) *app.App {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			RequestTimeout:     time.Second,
			ShutDownTimeout:    time.Second,
			CORSAllowedOrigins: "http://localhost:5173",
			UIDir:              uiDir,
		},
		Store: config.StoreConfig{Backend: config.BackendMemory},
		Relay: config.RelayConfig{Enabled: relayEnabled, WriteTimeout: time.Second},
	}
	a, err := app.New(cfg, storage.NewMemoryStorage(), nil)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func request(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRoutes_Health(t *testing.T) {
	r := SetupRoutes(newTestApp(t, true, ""), logger.Logger)

	w := request(r, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"UP","backend":"memory","relay":"active","sessions":0}`, w.Body.String())
}

func TestSetupRoutes_HealthWithoutRelay(t *testing.T) {
	r := SetupRoutes(newTestApp(t, false, ""), logger.Logger)

	w := request(r, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"UP","backend":"memory","relay":"degraded","sessions":0}`, w.Body.String())

	w = request(r, http.MethodGet, WebSocketPath, "")
	assert.Equal(t, http.StatusNotFound, w.Code, "no websocket route when live updates are off")
}

func TestSetupRoutes_MovieEndpoints(t *testing.T) {
	r := SetupRoutes(newTestApp(t, true, ""), logger.Logger)

	w := request(r, http.MethodPost, "/api/movies", `{"title":"Dune","genre":"Sci-Fi","rating":8.5}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created repository.Movie
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = request(r, http.MethodGet, "/api/movies", "")
	require.Equal(t, http.StatusOK, w.Code)
	var all []repository.Movie
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 1)

	w = request(r, http.MethodPut, "/api/movies/"+created.ID, `{"watched":true}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodGet, "/api/genres", "")
	assert.JSONEq(t, `["Sci-Fi"]`, w.Body.String())

	w = request(r, http.MethodDelete, "/api/movies/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = request(r, http.MethodGet, "/api/movies/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRoutes_Configuration(t *testing.T) {
	r := SetupRoutes(newTestApp(t, true, ""), logger.Logger)

	w := request(r, http.MethodGet, "/api/configuration", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"wsPath":"/ws"`)
	assert.Contains(t, w.Body.String(), `"liveUpdates":true`)
}

func TestSetupRoutes_Preflight(t *testing.T) {
	r := SetupRoutes(newTestApp(t, true, ""), logger.Logger)

	req := httptest.NewRequest(http.MethodOptions, "/api/movies", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRoutes_WebSocketRequiresUpgrade(t *testing.T) {
	srv := httptest.NewServer(SetupRoutes(newTestApp(t, true, ""), logger.Logger))
	defer srv.Close()

	resp, err := http.Get(srv.URL + WebSocketPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetupRoutes_MutationReachesWebSocket(t *testing.T) {
	a := newTestApp(t, true, "")
	require.NoError(t, a.StartWatchers())
	srv := httptest.NewServer(SetupRoutes(a, logger.Logger))
	defer srv.Close()

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+WebSocketPath, "", "http://localhost:5173")
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return a.Hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// retry until the relay has subscribed to the store
	var got struct {
		Type string                 `json:"type"`
		Data repository.ChangeEvent `json:"data"`
	}
	require.Eventually(t, func() bool {
		resp, err := http.Post(srv.URL+"/api/movies", "application/json",
			strings.NewReader(`{"title":"Dune","genre":"Sci-Fi","rating":8.5}`))
		if err != nil {
			return false
		}
		resp.Body.Close()
		if err := conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
			return false
		}
		return websocket.JSON.Receive(conn, &got) == nil
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, "movie-change", got.Type)
	assert.Equal(t, repository.OperationInsert, got.Data.OperationType)
	require.NotNil(t, got.Data.FullDocument)
	assert.Equal(t, "Dune", got.Data.FullDocument.Title)
}

func TestSetupRoutes_UnknownAPIPath(t *testing.T) {
	r := SetupRoutes(newTestApp(t, true, ""), logger.Logger)

	w := request(r, http.MethodGet, "/api/unknown", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}

func TestNewUIRouter_ServesSPA(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>reel</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	r := SetupRoutes(newTestApp(t, true, dir), logger.Logger)

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "<html>reel</html>"},
		{"/assets/app.js", http.StatusOK, "console.log(1)"},
		{"/movies/123/edit", http.StatusOK, "<html>reel</html>"},
		{"/api/nope", http.StatusNotFound, `{"error":"not found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := request(r, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestNewUIRouter_NoBuildDirectory(t *testing.T) {
	r := SetupRoutes(newTestApp(t, true, filepath.Join(t.TempDir(), "missing")), logger.Logger)

	w := request(r, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
