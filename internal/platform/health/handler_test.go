package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestReadiness(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := New("test")
	h.RegisterCheck("postgres", func(context.Context) error { return nil })

	w := serve(h, "/health/ready")
	assert.Equal(t, http.StatusOK, w.Code)

	h.RegisterCheck("redis", func(context.Context) error { return errors.New("connection refused") })
	w = serve(h, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "up", resp.Checks["postgres"])
	assert.Equal(t, "down: connection refused", resp.Checks["redis"])
}

func TestReadinessCheckTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := New("test")
	h.checkTimeout = 0
	h.RegisterCheck("kafka", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	w := serve(h, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLivenessAndStatus(t *testing.T) {
	h := New("staging")
	assert.Equal(t, http.StatusOK, serve(h, "/health/live").Code)

	w := serve(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "staging", resp.Environment)
	assert.Equal(t, Version, resp.Version)
}
