package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	dErrors "sapp/pkg/domain-errors"
	"sapp/pkg/requestcontext"
)

type recordingSpan struct {
	noop.Span
	attrs  []attribute.KeyValue
	status codes.Code
	errs   int
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) { s.attrs = append(s.attrs, kv...) }
func (s *recordingSpan) RecordError(error, ...trace.EventOption) { s.errs++ }
func (s *recordingSpan) SetStatus(c codes.Code, _ string) { s.status = c }
func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }

type recordingTracer struct {
	noop.Tracer
	span *recordingSpan
}

func (t *recordingTracer) Start(ctx context.Context, _ string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	t.span = &recordingSpan{attrs: cfg.Attributes()}
	return ctx, t.span
}

func TestOTelSpanCarriesRequestID(t *testing.T) {
	rec := &recordingTracer{}
	ctx := requestcontext.WithRequestID(context.Background(), "req-42")

	_, span := NewOTel(WithOTelTracer(rec)).Start(ctx, SpanScanStart, String(AttrSessionID, "s-1"))
	span.End(nil)

	require.NotNil(t, rec.span)
	assert.Contains(t, rec.span.attrs, attribute.String(AttrSessionID, "s-1"))
	assert.Contains(t, rec.span.attrs, attribute.String(AttrRequestID, "req-42"))
	assert.True(t, rec.span.ended)
	assert.Equal(t, codes.Unset, rec.span.status)
}

func TestOTelSpanEndClassifiesErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     string
		status   codes.Code
		recorded int
	}{
		{"unknown session", dErrors.New(dErrors.CodeNotFound, "scan session not found"), "not_found", codes.Unset, 0},
		{"reset without result", dErrors.New(dErrors.CodeInvalidState, "no result"), "invalid_state", codes.Unset, 0},
		{"ledger unavailable", dErrors.New(dErrors.CodeUnavailable, "redis down"), "unavailable", codes.Error, 1},
		{"plain error", errors.New("render failed"), "internal_error", codes.Error, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingTracer{}
			_, span := NewOTel(WithOTelTracer(rec)).Start(context.Background(), SpanCredentialIssue)
			span.End(tt.err)

			assert.Contains(t, rec.span.attrs, attribute.String(AttrErrorCode, tt.code))
			assert.Equal(t, tt.status, rec.span.status)
			assert.Equal(t, tt.recorded, rec.span.errs)
			assert.True(t, rec.span.ended)
		})
	}
}
