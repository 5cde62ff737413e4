package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "sapp/pkg/domain-errors"
	"sapp/pkg/requestcontext"
)

const InstrumentationName = "sapp/credential"

// AttrRequestID and AttrErrorCode are set by OTelTracer on every span.
const (
	AttrRequestID = "request.id"
	AttrErrorCode = "error.code"
)

// OTelTracer emits spans through OpenTelemetry. Each span carries the request
// id from the context, and End separates caller mistakes from server faults.
type OTelTracer struct {
	tracer trace.Tracer
}

type OTelOption func(*OTelTracer)

func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) {
		o.tracer = t
	}
}

// NewOTel uses the global provider unless WithOTelTracer is given.
func NewOTel(opts ...OTelOption) *OTelTracer {
	t := &OTelTracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(InstrumentationName)
	}
	return t
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	kv := toOTelAttributes(attrs)
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		kv = append(kv, attribute.String(AttrRequestID, reqID))
	}
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(kv...))
	return ctx, &otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

// End records err. Not-found, validation and state conflicts are expected
// outcomes of a scan or issue request and leave the span status unset.
func (s *otelSpan) End(err error) {
	if err != nil {
		code := dErrors.CodeOf(err)
		s.span.SetAttributes(attribute.String(AttrErrorCode, string(code)))
		if isServerFault(code) {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
		}
	}
	s.span.End()
}

func (s *otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(toOTelAttributes(attrs)...)
}

func (s *otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(toOTelAttributes(attrs)...))
}

func isServerFault(code dErrors.Code) bool {
	switch code {
	case dErrors.CodeNotFound, dErrors.CodeBadRequest, dErrors.CodeInvalidInput,
		dErrors.CodeValidation, dErrors.CodeConflict, dErrors.CodeInvalidState:
		return false
	default:
		return true
	}
}

// toOTelAttributes drops values of unsupported types.
func toOTelAttributes(attrs []Attribute) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			kv = append(kv, attribute.String(a.Key, v))
		case bool:
			kv = append(kv, attribute.Bool(a.Key, v))
		case int64:
			kv = append(kv, attribute.Int64(a.Key, v))
		case int:
			kv = append(kv, attribute.Int(a.Key, v))
		case float64:
			kv = append(kv, attribute.Float64(a.Key, v))
		}
	}
	return kv
}

var (
	_ Tracer = (*OTelTracer)(nil)
	_ Span   = (*otelSpan)(nil)
)
