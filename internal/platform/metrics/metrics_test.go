package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())

	m.IncrementCredentialsIssued()
	m.IncrementScan("VALID")
	m.IncrementScan("VALID")
	m.IncrementScan("EXPIRED")
	m.IncrementCameraFailure("PERMISSION_DENIED")
	m.SetActiveScanSessions(3)

	assert.InDelta(t, 1, testutil.ToFloat64(m.CredentialsIssued), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ScansByVerdict.WithLabelValues("VALID")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ScansByVerdict.WithLabelValues("EXPIRED")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CameraFailures.WithLabelValues("PERMISSION_DENIED")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.ActiveScanSessions), 0)
}

func TestLedgerCircuitGauge(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())

	m.SetLedgerCircuitOpen(true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LedgerCircuitOpen), 0)

	m.SetLedgerCircuitOpen(false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.LedgerCircuitOpen), 0)
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWith(prometheus.NewRegistry())
		NewWith(prometheus.NewRegistry())
	})
}
