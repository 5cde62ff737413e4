// Package codec converts credential records to and from the transport string
// embedded in QR codes. The transport is a JSON object with camelCase keys.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sapp/internal/credential/models"
)

// TimeLayout is ISO-8601 with millisecond precision, e.g. 2026-03-01T12:00:00.000Z.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// MaxTransportBytes bounds decode input; a version-40 QR code holds under 3 KB.
const MaxTransportBytes = 8 << 10

// DecodeErrorKind classifies why a transport string could not become a record.
type DecodeErrorKind string

const (
	KindMalformed     DecodeErrorKind = "MALFORMED"
	KindMissingFields DecodeErrorKind = "MISSING_FIELDS"
)

// DecodeError is returned by Decode. Err holds the underlying parse error for MALFORMED.
type DecodeError struct {
	Kind   DecodeErrorKind
	Fields []string
	Err    error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Kind == KindMissingFields:
		return fmt.Sprintf("credential decode: missing required fields: %s", strings.Join(e.Fields, ", "))
	case e.Err != nil:
		return fmt.Sprintf("credential decode: malformed: %v", e.Err)
	default:
		return "credential decode: malformed"
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Reason maps the error kind to a ScanResult reason.
func (e *DecodeError) Reason() string {
	if e.Kind == KindMissingFields {
		return models.ReasonMissingFields
	}
	return models.ReasonMalformed
}

type wireRecord struct {
	SubjectID      string `json:"subjectId"`
	DisplayName    string `json:"displayName"`
	Email          string `json:"email"`
	Organization   string `json:"organization,omitempty"`
	Department     string `json:"department,omitempty"`
	Title          string `json:"title,omitempty"`
	MemberID       string `json:"memberId"`
	IssuedAt       string `json:"issuedAt,omitempty"`
	ExpiresAt      string `json:"expiresAt,omitempty"`
	Issuer         string `json:"issuer"`
	IntegrityToken string `json:"integrityToken,omitempty"`
}

// fields lists the wire keys with their destinations. Keys match exactly;
// encoding/json alone would also accept "SUBJECTID".
func (w *wireRecord) fields() []struct {
	key string
	dst *string
} {
	return []struct {
		key string
		dst *string
	}{
		{"subjectId", &w.SubjectID},
		{"displayName", &w.DisplayName},
		{"email", &w.Email},
		{"organization", &w.Organization},
		{"department", &w.Department},
		{"title", &w.Title},
		{"memberId", &w.MemberID},
		{"issuedAt", &w.IssuedAt},
		{"expiresAt", &w.ExpiresAt},
		{"issuer", &w.Issuer},
		{"integrityToken", &w.IntegrityToken},
	}
}

var errNotObject = errors.New("transport is not a JSON object")

func decodeWire(transport string) (wireRecord, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(transport), &obj); err != nil {
		return wireRecord{}, err
	}
	if obj == nil {
		return wireRecord{}, errNotObject
	}

	var w wireRecord
	for _, f := range w.fields() {
		raw, ok := obj[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return wireRecord{}, fmt.Errorf("%s: %w", f.key, err)
		}
	}
	return w, nil
}

// Encode serializes a record. Timestamps are written in UTC at millisecond precision.
func Encode(r models.CredentialRecord) (string, error) {
	w := wireRecord{
		SubjectID:      r.SubjectID,
		DisplayName:    r.DisplayName,
		Email:          r.Email,
		Organization:   r.Organization,
		Department:     r.Department,
		Title:          r.Title,
		MemberID:       r.MemberID,
		IssuedAt:       FormatTime(r.IssuedAt),
		ExpiresAt:      FormatTime(r.ExpiresAt),
		Issuer:         r.Issuer,
		IntegrityToken: r.IntegrityToken,
	}
	b, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("encode credential: %w", err)
	}
	return string(b), nil
}

// Decode parses a transport string. It returns a *DecodeError of kind MALFORMED
// when the input is not a JSON object of the expected shape (including wrongly
// typed fields and unparseable timestamps) and MISSING_FIELDS when subjectId,
// displayName or memberId is absent or empty. Keys are case-sensitive; a key
// that differs only in case is ignored like any unknown key.
func Decode(transport string) (models.CredentialRecord, error) {
	if len(transport) > MaxTransportBytes {
		return models.CredentialRecord{}, &DecodeError{
			Kind: KindMalformed,
			Err:  fmt.Errorf("transport exceeds %d bytes", MaxTransportBytes),
		}
	}

	w, err := decodeWire(transport)
	if err != nil {
		return models.CredentialRecord{}, &DecodeError{Kind: KindMalformed, Err: err}
	}

	issuedAt, err := parseTime("issuedAt", w.IssuedAt)
	if err != nil {
		return models.CredentialRecord{}, &DecodeError{Kind: KindMalformed, Err: err}
	}
	expiresAt, err := parseTime("expiresAt", w.ExpiresAt)
	if err != nil {
		return models.CredentialRecord{}, &DecodeError{Kind: KindMalformed, Err: err}
	}

	var missing []string
	if w.SubjectID == "" {
		missing = append(missing, "subjectId")
	}
	if w.DisplayName == "" {
		missing = append(missing, "displayName")
	}
	if w.MemberID == "" {
		missing = append(missing, "memberId")
	}
	if len(missing) > 0 {
		return models.CredentialRecord{}, &DecodeError{Kind: KindMissingFields, Fields: missing}
	}

	return models.CredentialRecord{
		SubjectID:      w.SubjectID,
		DisplayName:    w.DisplayName,
		Email:          w.Email,
		Organization:   w.Organization,
		Department:     w.Department,
		Title:          w.Title,
		MemberID:       w.MemberID,
		IssuedAt:       issuedAt,
		ExpiresAt:      expiresAt,
		Issuer:         w.Issuer,
		IntegrityToken: w.IntegrityToken,
	}, nil
}

// FormatTime renders t in the transport layout, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func parseTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t.UTC(), nil
}
