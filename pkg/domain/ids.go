// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "sapp/pkg/domain-errors"
)

// MaxSubjectIDLength bounds opaque subject identifiers accepted at trust boundaries.
const MaxSubjectIDLength = 128

// SubjectID is the opaque, stable identifier of a credential holder as issued by
// the external account store. It is not required to be a UUID.
type SubjectID string

// Distinct UUID-backed ID types - compiler prevents passing a ScanID where a
// ScanSessionID is expected.
type (
	ScanSessionID uuid.UUID
	ScanID        uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseSubjectID(s string) (SubjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject ID cannot be empty")
	}
	if len(s) > MaxSubjectIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject ID is too long")
	}
	return SubjectID(s), nil
}

func ParseScanSessionID(s string) (ScanSessionID, error) {
	id, err := parseUUID(s, "scan session ID")
	return ScanSessionID(id), err
}

// New functions - server-generated identifiers.

func NewScanSessionID() ScanSessionID { return ScanSessionID(uuid.New()) }
func NewScanID() ScanID               { return ScanID(uuid.New()) }

// String methods - for logging and debugging.

func (id SubjectID) String() string     { return string(id) }
func (id ScanSessionID) String() string { return uuid.UUID(id).String() }
func (id ScanID) String() string        { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id SubjectID) IsNil() bool     { return id == "" }
func (id ScanSessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ScanID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}

// Text marshalling lets UUID-backed IDs appear as plain strings in JSON payloads.

func (id ScanID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ScanID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = ScanID(u)
	return nil
}

func (id ScanSessionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ScanSessionID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = ScanSessionID(u)
	return nil
}
