package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func TestService_ReadyGate(t *testing.T) {
	s := New()
	assert.False(t, s.IsReady(), "starts not ready")

	s.SetReady(true)
	assert.True(t, s.IsReady())

	s.SetReady(false)
	assert.False(t, s.IsReady())
}

func TestService_ReadinessCheckFailure(t *testing.T) {
	s := New()
	checkErr := errors.New("db unreachable")
	s.Add(Readiness, "postgres", time.Second, func(_ context.Context) error {
		return checkErr
	})
	s.SetReady(true)

	s.Start(context.Background(), 10*time.Millisecond)
	defer s.Stop()

	waitFor(t, func() bool { return !s.IsReady() })
}

func TestService_Endpoints(t *testing.T) {
	s := New()
	s.Add(Liveness, "goroutines", time.Second, func(_ context.Context) error {
		return nil
	})
	s.Add(Readiness, "postgres", time.Second, func(_ context.Context) error {
		return errors.New("db unreachable")
	})
	s.SetReady(true)

	s.Start(context.Background(), 10*time.Millisecond)
	defer s.Stop()

	waitFor(t, func() bool {
		w := httptest.NewRecorder()
		s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		return w.Code == http.StatusServiceUnavailable
	})

	w := httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "db unreachable")

	w = httptest.NewRecorder()
	s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestService_NotReadyEndpoint(t *testing.T) {
	s := New()

	w := httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not ready")
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}
