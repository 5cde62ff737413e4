package httptransport

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sapp/pkg/requestcontext"
)

type echoRegistrar struct{}

func (echoRegistrar) Register(r chi.Router) {
	r.Post("/echo/{id}", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-Seen-Time", requestcontext.Now(ctx).Format(time.RFC3339))
		w.Header().Set("X-Seen-Request", requestcontext.RequestID(ctx))
		w.WriteHeader(http.StatusNoContent)
	})
}

type latencyRecorder struct {
	mu        sync.Mutex
	endpoints []string
}

func (l *latencyRecorder) ObserveEndpointLatency(endpoint string, _ float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.endpoints = append(l.endpoints, endpoint)
}

func newTestRouter(lat *latencyRecorder, at time.Time) http.Handler {
	return NewRouter(RouterConfig{
		Logger:  slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Latency: lat,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("sapp_up 1\n"))
		}),
		Clock: func() time.Time { return at },
	}, echoRegistrar{}, nil)
}

func TestRouterMiddlewareStack(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	lat := &latencyRecorder{}
	router := newTestRouter(lat, at)

	req := httptest.NewRequest(http.MethodPost, "/echo/42", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, at.Format(time.RFC3339), rec.Header().Get("X-Seen-Time"))
	assert.NotEmpty(t, rec.Header().Get("X-Seen-Request"))
	assert.Equal(t, []string{"/echo/{id}"}, lat.endpoints)
}

func TestRouterAcceptsFrameUploads(t *testing.T) {
	router := newTestRouter(&latencyRecorder{}, time.Now())

	for _, ct := range []string{"image/png", "image/jpeg", "application/json; charset=utf-8"} {
		req := httptest.NewRequest(http.MethodPost, "/echo/1", strings.NewReader("x"))
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, ct)
	}
}

func TestRouterRejectsUnsupportedContentType(t *testing.T) {
	router := newTestRouter(&latencyRecorder{}, time.Now())

	req := httptest.NewRequest(http.MethodPost, "/echo/1", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouterServesMetrics(t *testing.T) {
	router := newTestRouter(&latencyRecorder{}, time.Now())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sapp_up 1")
}
