package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	SubjectID string    `json:"subject_id,omitempty"`
	MemberID  string    `json:"member_id,omitempty"`
	Verdict   string    `json:"verdict,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Device    string    `json:"device,omitempty"`
}

type AuditEvent string

const (
	EventCredentialIssued  AuditEvent = "credential_issued"
	EventCredentialScanned AuditEvent = "credential_scanned"
	EventScanSessionFailed AuditEvent = "scan_session_failed"
)

// Store persists audit events. Implementations must tolerate concurrent Append calls.
type Store interface {
	Append(ctx context.Context, event Event) error
}

