package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthEndpoint(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }

	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(t, map[string]HealthCheck{"database": ok})
		w := s.do(http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Healthy bool              `json:"healthy"`
			Checks  map[string]string `json:"checks"`
		}
		decode(t, w, &body)
		assert.True(t, body.Healthy)
		assert.Equal(t, "ok", body.Checks["database"])
	})

	t.Run("failing dependency", func(t *testing.T) {
		s := newTestServer(t, map[string]HealthCheck{"database": ok, "redis": failingCheck})
		w := s.do(http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var body struct {
			Healthy bool              `json:"healthy"`
			Checks  map[string]string `json:"checks"`
		}
		decode(t, w, &body)
		assert.False(t, body.Healthy)
		assert.Equal(t, "ok", body.Checks["database"])
		assert.Equal(t, context.DeadlineExceeded.Error(), body.Checks["redis"])
	})
}
