package models

import (
	"fmt"
	"time"

	id "sapp/pkg/domain"
)

// Verdict is the outcome of validating a decoded credential.
type Verdict string

const (
	VerdictValid         Verdict = "VALID"
	VerdictExpired       Verdict = "EXPIRED"
	VerdictInvalid       Verdict = "INVALID"
	VerdictForeignIssuer Verdict = "FOREIGN_ISSUER"
)

func (v Verdict) String() string { return string(v) }

// Machine-readable causes carried on ScanResult.Reason.
const (
	ReasonValid         = "valid"
	ReasonExpired       = "expired"
	ReasonForeignIssuer = "foreign_issuer"
	ReasonMissingFields = "missing_fields"
	ReasonMalformed     = "malformed"
)

// CredentialRecord is the payload carried inside the QR code. ExpiresAt is
// always IssuedAt plus the issuer's validity window; it is never stored.
//
// IntegrityToken is informational only. It is derived from public fields with a
// reversible encoding and is never checked on verification.
type CredentialRecord struct {
	SubjectID      string
	DisplayName    string
	Email          string
	Organization   string
	Department     string
	Title          string
	MemberID       string
	IssuedAt       time.Time
	ExpiresAt      time.Time
	Issuer         string
	IntegrityToken string
}

// HasRequiredFields reports whether subject, display name and member ID are present.
func (r CredentialRecord) HasRequiredFields() bool {
	return r.SubjectID != "" && r.DisplayName != "" && r.MemberID != ""
}

// Profile is the read-only view of a member supplied by the profile source.
type Profile struct {
	SubjectID    id.SubjectID
	FirstName    string
	LastName     string
	Email        string
	Organization string
	Department   string
	Title        string
	AvatarURL    string
}

// ScanResult is produced once per completed decode+validate cycle and never mutated.
// For an undecodable transport only ID, ScannedAt, Verdict and Reason are set.
type ScanResult struct {
	ID          id.ScanID `json:"id"`
	SubjectID   string    `json:"subject_id,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	MemberID    string    `json:"member_id,omitempty"`
	Department  string    `json:"department,omitempty"`
	ScannedAt   time.Time `json:"scanned_at"`
	Verdict     Verdict   `json:"verdict"`
	Reason      string    `json:"reason"`
}

// NewScanResult builds the result for a decoded record.
func NewScanResult(record CredentialRecord, verdict Verdict, reason string, scannedAt time.Time) ScanResult {
	return ScanResult{
		ID:          id.NewScanID(),
		SubjectID:   record.SubjectID,
		DisplayName: record.DisplayName,
		MemberID:    record.MemberID,
		Department:  record.Department,
		ScannedAt:   scannedAt,
		Verdict:     verdict,
		Reason:      reason,
	}
}

// NewInvalidScanResult builds the result for a transport that could not be decoded.
func NewInvalidScanResult(reason string, scannedAt time.Time) ScanResult {
	return ScanResult{
		ID:        id.NewScanID(),
		ScannedAt: scannedAt,
		Verdict:   VerdictInvalid,
		Reason:    reason,
	}
}

// IssuedCredential bundles a freshly issued record with its transport forms.
type IssuedCredential struct {
	Record    CredentialRecord
	Transport string
	QRCode    []byte
	Notice    string
}

// ValidityNotice renders the human expiry notice shown next to the QR code,
// e.g. "valid for 24 hours".
func ValidityNotice(window time.Duration) string {
	hours := int(window / time.Hour)
	switch {
	case window%time.Hour != 0:
		return fmt.Sprintf("valid for %s", window)
	case hours == 1:
		return "valid for 1 hour"
	default:
		return fmt.Sprintf("valid for %d hours", hours)
	}
}
