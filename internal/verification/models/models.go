package models

import (
	"time"

	credmodels "sapp/internal/credential/models"
	id "sapp/pkg/domain"
)

// SessionView is a point-in-time snapshot of a server-side scan session.
type SessionView struct {
	ID        id.ScanSessionID
	State     string
	Message   string
	Result    *credmodels.ScanResult
	CreatedAt time.Time
	LastSeen  time.Time
}

// ScanOutcome reports what happened to one submitted frame or transport string.
// Accepted is false when the input was dropped.
type ScanOutcome struct {
	Accepted bool
	State    string
	Result   *credmodels.ScanResult
}
