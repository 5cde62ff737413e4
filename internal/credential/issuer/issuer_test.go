package issuer

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sapp/internal/credential/models"
)

type IssuerSuite struct {
	suite.Suite
	issuer *Issuer
	now    time.Time
}

func TestIssuerSuite(t *testing.T) {
	suite.Run(t, new(IssuerSuite))
}

func (s *IssuerSuite) SetupTest() {
	s.issuer = New(Config{})
	s.now = time.Date(2026, 3, 1, 12, 30, 15, 123_456_789, time.UTC)
}

func (s *IssuerSuite) profile() models.Profile {
	return models.Profile{
		SubjectID:    "abc123",
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        "jane@acme.test",
		Organization: "Acme",
		Department:   "Research",
		Title:        "Engineer",
	}
}

func (s *IssuerSuite) TestIssue() {
	r := s.issuer.Issue(s.profile(), s.now)

	s.Equal("abc123", r.SubjectID)
	s.Equal("Jane Doe", r.DisplayName)
	s.Equal("Acme", r.Organization)
	s.Equal("SAPP-ABC12300", r.MemberID)
	s.Equal("SAPP Security", r.Issuer)
	s.Equal(time.Date(2026, 3, 1, 12, 30, 15, 123_000_000, time.UTC), r.IssuedAt)
	s.Equal(r.IssuedAt.Add(24*time.Hour), r.ExpiresAt)
	s.Len(r.IntegrityToken, 16)
}

func (s *IssuerSuite) TestIssuedAtIsUTC() {
	local := s.now.In(time.FixedZone("PST", -8*3600))
	r := s.issuer.Issue(s.profile(), local)
	s.Equal(time.UTC, r.IssuedAt.Location())
	s.True(r.IssuedAt.Equal(s.now.Truncate(time.Millisecond)))
}

func (s *IssuerSuite) TestConfigOverrides() {
	iss := New(Config{Name: "Acme Security", MemberPrefix: "ACME-", ValidityWindow: time.Hour})
	r := iss.Issue(s.profile(), s.now)
	s.Equal("Acme Security", r.Issuer)
	s.Equal("ACME-ABC12300", r.MemberID)
	s.Equal(time.Hour, r.ExpiresAt.Sub(r.IssuedAt))
}

func (s *IssuerSuite) TestMemberID() {
	tests := []struct {
		subject string
		want    string
	}{
		{"abc123", "SAPP-ABC12300"},
		{"abcdefghijkl", "SAPP-ABCDEFGH"},
		{"12345678", "SAPP-12345678"},
		{"a", "SAPP-A0000000"},
		{"", "SAPP-00000000"},
		{"élan-vital", "SAPP-ÉLAN-VIT"},
	}
	for _, tt := range tests {
		s.Run(tt.subject, func() {
			s.Equal(tt.want, s.issuer.MemberID(tt.subject))
		})
	}
}

func (s *IssuerSuite) TestMemberIDIgnoresIssueTime() {
	first := s.issuer.Issue(s.profile(), s.now)
	second := s.issuer.Issue(s.profile(), s.now.Add(72*time.Hour))
	s.Equal(first.MemberID, second.MemberID)

	subject := s.profile().SubjectID.String()
	s.Equal(IntegrityToken(subject, s.now), first.IntegrityToken)
	s.Equal(IntegrityToken(subject, s.now.Add(72*time.Hour)), second.IntegrityToken)
}

func (s *IssuerSuite) TestIntegrityTokenCoversTwelveBytes() {
	// 16 base64 characters encode 12 input bytes, so a subject of 12 or more
	// bytes leaves the issue time out of the token entirely.
	long := "member-000042"
	s.Equal(
		IntegrityToken(long, s.now),
		IntegrityToken(long, s.now.Add(30*24*time.Hour)),
	)
	s.Len(IntegrityToken(long, s.now), 16)

	s.NotEqual(
		IntegrityToken("abc", s.now),
		IntegrityToken("abc", s.now.AddDate(1, 0, 0)),
	)
}

func (s *IssuerSuite) TestDisplayName() {
	tests := []struct {
		name    string
		profile models.Profile
		want    string
	}{
		{"both names", models.Profile{FirstName: " Jane ", LastName: "Doe "}, "Jane Doe"},
		{"first only falls back to email", models.Profile{FirstName: "Jane", Email: "jane@acme.test"}, "jane@acme.test"},
		{"last only falls back to email", models.Profile{LastName: "Doe", Email: "jane@acme.test"}, "jane@acme.test"},
		{"no names no email", models.Profile{FirstName: "Jane"}, PlaceholderDisplayName},
		{"blank email", models.Profile{Email: "   "}, PlaceholderDisplayName},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.Equal(tt.want, DisplayName(tt.profile))
		})
	}
}

func (s *IssuerSuite) TestIntegrityTokenIsReversibleEncoding() {
	issued := s.now.Truncate(time.Millisecond)
	token := IntegrityToken("abc123", issued)

	full := base64.StdEncoding.EncodeToString([]byte("abc123" + "2026-03-01T12:30:15.123Z"))
	s.Equal(full[:16], token)
}
