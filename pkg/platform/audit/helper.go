package audit

import (
	"context"
	"log/slog"

	"sapp/pkg/requestcontext"
)

// Emitter is the interface for audit event emission.
// Satisfied by publisher.Publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger provides structured audit logging with optional event emission.
type Logger struct {
	textLogger *slog.Logger
	emitter    Emitter
}

// NewLogger creates an audit logger. emitter may be nil.
func NewLogger(textLogger *slog.Logger, emitter Emitter) *Logger {
	return &Logger{
		textLogger: textLogger,
		emitter:    emitter,
	}
}

// Log writes an audit line and emits the matching Event. Request ID and device
// are taken from ctx.
//
// Usage:
//
//	logger.Log(ctx, audit.EventCredentialScanned, "subject_id", id, "verdict", "VALID")
func (l *Logger) Log(ctx context.Context, event AuditEvent, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}

	l.logToText(ctx, string(event), attributes)
	l.emitToAudit(ctx, string(event), requestID, attributes)
}

func (l *Logger) logToText(ctx context.Context, event string, attributes []any) {
	if l.textLogger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	l.textLogger.InfoContext(ctx, event, args...)
}

func (l *Logger) emitToAudit(ctx context.Context, event, requestID string, attributes []any) {
	if l.emitter == nil {
		return
	}

	err := l.emitter.Emit(ctx, Event{
		Action:    event,
		SubjectID: extractString(attributes, "subject_id"),
		MemberID:  extractString(attributes, "member_id"),
		Verdict:   extractString(attributes, "verdict"),
		Reason:    extractString(attributes, "reason"),
		SessionID: extractString(attributes, "session_id"),
		RequestID: requestID,
		Device:    requestcontext.Device(ctx),
	})
	if err != nil && l.textLogger != nil {
		l.textLogger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"event", event,
		)
	}
}

// extractString finds key in a flat key/value list and returns its value when it is a string.
func extractString(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		if k, ok := attributes[i].(string); ok && k == key {
			switch v := attributes[i+1].(type) {
			case string:
				return v
			case interface{ String() string }:
				return v.String()
			}
		}
	}
	return ""
}
