// Package issuer builds credential records from member profiles. It performs no I/O.
package issuer

import (
	"encoding/base64"
	"strings"
	"time"
	"unicode/utf8"

	"sapp/internal/credential/codec"
	"sapp/internal/credential/models"
)

const (
	DefaultName           = "SAPP Security"
	DefaultMemberPrefix   = "SAPP-"
	DefaultValidityWindow = 24 * time.Hour

	// PlaceholderDisplayName is used when a profile has neither full name nor email.
	PlaceholderDisplayName = "Member"

	memberFragmentLength = 8
	memberPadding        = "0"
	integrityTokenLength = 16
)

// Config is the issuing organization's identity. Zero fields take the defaults.
type Config struct {
	Name           string
	MemberPrefix   string
	ValidityWindow time.Duration
}

// Issuer stamps profiles into CredentialRecords.
type Issuer struct {
	cfg Config
}

// New creates an Issuer, filling unset Config fields with defaults.
func New(cfg Config) *Issuer {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.MemberPrefix == "" {
		cfg.MemberPrefix = DefaultMemberPrefix
	}
	if cfg.ValidityWindow <= 0 {
		cfg.ValidityWindow = DefaultValidityWindow
	}
	return &Issuer{cfg: cfg}
}

// Name returns the issuer constant written into every record.
func (i *Issuer) Name() string { return i.cfg.Name }

// ValidityWindow returns the lifetime of issued credentials.
func (i *Issuer) ValidityWindow() time.Duration { return i.cfg.ValidityWindow }

// Issue builds a record for p as of now. issuedAt is now in UTC truncated to milliseconds.
func (i *Issuer) Issue(p models.Profile, now time.Time) models.CredentialRecord {
	subjectID := p.SubjectID.String()
	issuedAt := now.UTC().Truncate(time.Millisecond)

	return models.CredentialRecord{
		SubjectID:      subjectID,
		DisplayName:    DisplayName(p),
		Email:          strings.TrimSpace(p.Email),
		Organization:   strings.TrimSpace(p.Organization),
		Department:     strings.TrimSpace(p.Department),
		Title:          strings.TrimSpace(p.Title),
		MemberID:       i.MemberID(subjectID),
		IssuedAt:       issuedAt,
		ExpiresAt:      issuedAt.Add(i.cfg.ValidityWindow),
		Issuer:         i.cfg.Name,
		IntegrityToken: IntegrityToken(subjectID, issuedAt),
	}
}

// MemberID is the prefix followed by the first eight characters of subjectID,
// uppercased and right-padded with "0". It depends on subjectID only.
func (i *Issuer) MemberID(subjectID string) string {
	fragment := subjectID
	if utf8.RuneCountInString(fragment) > memberFragmentLength {
		fragment = string([]rune(fragment)[:memberFragmentLength])
	}
	fragment = strings.ToUpper(fragment)
	if n := utf8.RuneCountInString(fragment); n < memberFragmentLength {
		fragment += strings.Repeat(memberPadding, memberFragmentLength-n)
	}
	return i.cfg.MemberPrefix + fragment
}

// DisplayName is "First Last" when both names are present, else the email,
// else PlaceholderDisplayName.
func DisplayName(p models.Profile) string {
	first := strings.TrimSpace(p.FirstName)
	last := strings.TrimSpace(p.LastName)
	if first != "" && last != "" {
		return first + " " + last
	}
	if email := strings.TrimSpace(p.Email); email != "" {
		return email
	}
	return PlaceholderDisplayName
}

// IntegrityToken is the first 16 characters of base64(subjectID + issuedAt).
// It is a reversible encoding of public fields, not a MAC, and anyone can forge it.
// TODO: replace with an HMAC over the encoded record under a server-held key once
// verification moves behind a trusted boundary.
func IntegrityToken(subjectID string, issuedAt time.Time) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(subjectID + codec.FormatTime(issuedAt)))
	if len(encoded) > integrityTokenLength {
		return encoded[:integrityTokenLength]
	}
	return encoded
}
