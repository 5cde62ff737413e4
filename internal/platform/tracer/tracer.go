// Package tracer is a small tracing facade so services can emit spans without
// importing OpenTelemetry directly. NoopTracer serves tests; OTelTracer serves production.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
//
//	ctx, span := t.Start(ctx, tracer.SpanCredentialIssue,
//	    tracer.String(tracer.AttrSubjectHash, tracer.HashSubject(id)),
//	)
//	defer span.End(err)
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashSubject returns a short SHA-256 prefix of a subject identifier so traces
// can be correlated without carrying the raw ID.
func HashSubject(subjectID string) string {
	if subjectID == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(subjectID))
	return hex.EncodeToString(hash[:8])
}

const (
	SpanCredentialIssue  = "credential.issue"
	SpanCredentialRender = "credential.render"
	SpanScanStart        = "scan.start"
	SpanScanDecode       = "scan.decode"
)

const (
	AttrSubjectHash = "subject.hash"
	AttrVerdict     = "scan.verdict"
	AttrReason      = "scan.reason"
	AttrSessionID   = "scan.session_id"
	AttrAccepted    = "scan.accepted"
	AttrQRBytes     = "qr.bytes"
)

const (
	EventLedgerAppended = "ledger.appended"
	EventFrameDropped   = "scan.frame_dropped"
)
