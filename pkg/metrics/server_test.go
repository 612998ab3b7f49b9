package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerDefaults(t *testing.T) {
	s := NewServer(ServerConfig{})
	assert.Equal(t, 9070, s.Port())

	s = NewServer(ServerConfig{Port: 9999})
	assert.Equal(t, 9999, s.Port())
}

func TestServerIndex(t *testing.T) {
	s := NewServer(ServerConfig{Port: 9999})

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ":9999/metrics")

	rec = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerMetricsEndpoint(t *testing.T) {
	InitRegistry()
	require.True(t, IsEnabled())

	s := NewServer(ServerConfig{Port: 9999})

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServerStopIdempotent(t *testing.T) {
	s := NewServer(ServerConfig{Port: 9999})
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
