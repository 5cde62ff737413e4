package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"

	"sapp/pkg/platform/middleware/device"
	"sapp/pkg/platform/middleware/metadata"
	"sapp/pkg/platform/middleware/request"
	"sapp/pkg/platform/middleware/requesttime"
)

// Registrar mounts a bounded context's routes.
type Registrar interface {
	Register(r chi.Router)
}

// RouterConfig carries the cross-cutting settings for the public router.
type RouterConfig struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	TrustedProxies []netip.Prefix
	Latency        request.LatencyObserver
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Clock feeds the per-request time; nil uses time.Now.
	Clock func() time.Time
}

// AcceptedContentTypes lists the request bodies the API understands: JSON
// payloads and raw camera frames.
var AcceptedContentTypes = []string{"application/json", "image/png", "image/jpeg"}

// NewRouter wires the middleware stack and mounts every registrar.
// The thin HTTP layer delegates to domain services so transport concerns stay isolated.
func NewRouter(cfg RouterConfig, registrars ...Registrar) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(metadata.Middleware(cfg.TrustedProxies))
	r.Use(device.Middleware)
	r.Use(requesttime.Middleware(cfg.Clock))
	r.Use(request.Logger(logger))
	r.Use(request.Latency(cfg.Latency))
	r.Use(request.Timeout(timeout))
	r.Use(request.ContentType(AcceptedContentTypes...))

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	for _, reg := range registrars {
		if reg != nil {
			reg.Register(r)
		}
	}

	return r
}
