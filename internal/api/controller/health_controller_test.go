package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeRelay struct{ degraded bool }

func (f fakeRelay) Degraded() bool { return f.degraded }

type fakeSessions int

func (f fakeSessions) Count() int { return int(f) }

func TestHealthController_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		relay    RelayStatus
		sessions SessionCounter
		want     string
	}{
		{
			name:     "active relay with sessions",
			relay:    fakeRelay{},
			sessions: fakeSessions(3),
			want:     `{"message":"UP","backend":"mongo","relay":"active","sessions":3}`,
		},
		{
			name:     "degraded relay",
			relay:    fakeRelay{degraded: true},
			sessions: fakeSessions(0),
			want:     `{"message":"UP","backend":"mongo","relay":"degraded","sessions":0}`,
		},
		{
			name: "relay disabled",
			want: `{"message":"UP","backend":"mongo","relay":"degraded","sessions":0}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthController("mongo", tt.relay, tt.sessions).Health)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}
