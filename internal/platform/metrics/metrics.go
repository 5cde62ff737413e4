package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	CredentialsIssued  prometheus.Counter
	IssueFailures      *prometheus.CounterVec
	ScansByVerdict     *prometheus.CounterVec
	CameraFailures     *prometheus.CounterVec
	FramesDropped      prometheus.Counter
	LedgerAppends      prometheus.Counter
	LedgerFallbacks    prometheus.Counter
	LedgerCircuitOpen  prometheus.Gauge
	ActiveScanSessions prometheus.Gauge
	ExpiredSessions    prometheus.Counter
	EndpointLatency    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics with reg. Tests pass a fresh prometheus.NewRegistry().
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CredentialsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "sapp_credentials_issued_total",
			Help: "Total number of digital credentials issued",
		}),
		IssueFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sapp_credential_issue_failures_total",
			Help: "Issuance failures by reason",
		}, []string{"reason"}),
		ScansByVerdict: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sapp_scans_total",
			Help: "Completed credential scans by verdict",
		}, []string{"verdict"}),
		CameraFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sapp_camera_failures_total",
			Help: "Scan sessions that could not acquire a camera, by kind",
		}, []string{"kind"}),
		FramesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "sapp_scan_frames_dropped_total",
			Help: "Frames or decoded strings dropped because a decode was in flight or a result was showing",
		}),
		LedgerAppends: f.NewCounter(prometheus.CounterOpts{
			Name: "sapp_ledger_appends_total",
			Help: "Scan results appended to verification history",
		}),
		LedgerFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "sapp_ledger_fallbacks_total",
			Help: "Ledger operations served by the in-memory fallback while the shared store was unavailable",
		}),
		LedgerCircuitOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "sapp_ledger_circuit_open",
			Help: "1 while the ledger circuit breaker routes history to the in-memory fallback",
		}),
		ActiveScanSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "sapp_scan_sessions_active",
			Help: "Current number of open server-side scan sessions",
		}),
		ExpiredSessions: f.NewCounter(prometheus.CounterOpts{
			Name: "sapp_scan_sessions_expired_total",
			Help: "Scan sessions closed by the idle cleanup worker",
		}),
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sapp_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) IncrementCredentialsIssued() {
	m.CredentialsIssued.Inc()
}

func (m *Metrics) IncrementIssueFailure(reason string) {
	m.IssueFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementScan(verdict string) {
	m.ScansByVerdict.WithLabelValues(verdict).Inc()
}

func (m *Metrics) IncrementCameraFailure(kind string) {
	m.CameraFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementFramesDropped() {
	m.FramesDropped.Inc()
}

func (m *Metrics) IncrementLedgerAppends() {
	m.LedgerAppends.Inc()
}

func (m *Metrics) IncrementLedgerFallbacks() {
	m.LedgerFallbacks.Inc()
}

func (m *Metrics) SetLedgerCircuitOpen(open bool) {
	if open {
		m.LedgerCircuitOpen.Set(1)
		return
	}
	m.LedgerCircuitOpen.Set(0)
}

func (m *Metrics) SetActiveScanSessions(n int) {
	m.ActiveScanSessions.Set(float64(n))
}

func (m *Metrics) AddExpiredSessions(n int) {
	m.ExpiredSessions.Add(float64(n))
}

func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}
