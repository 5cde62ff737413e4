// Package seeder provisions demo member profiles for local runs and end-to-end tests.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"sapp/internal/credential/models"
	id "sapp/pkg/domain"
)

// ProfileStore is where seeded profiles are written.
type ProfileStore interface {
	Save(ctx context.Context, profile models.Profile) error
}

// Seeder populates a profile store with demo members.
type Seeder struct {
	profiles ProfileStore
	logger   *slog.Logger
}

func New(profiles ProfileStore, logger *slog.Logger) *Seeder {
	return &Seeder{profiles: profiles, logger: logger}
}

// DemoProfiles covers every display-name branch: full name, email only, and neither.
func DemoProfiles() []models.Profile {
	return []models.Profile{
		{SubjectID: "abc123", FirstName: "Jane", LastName: "Doe", Email: "jane@acme.test",
			Organization: "Acme", Department: "Research", Title: "Engineer"},
		{SubjectID: "member-0002", FirstName: "Bob", LastName: "Brown", Email: "bob@acme.test",
			Organization: "Acme", Department: "Operations", Title: "Facilities Lead"},
		{SubjectID: "contractor-77", FirstName: "Charlie", Email: "charlie@contractors.test",
			Organization: "Acme", Department: "Security"},
		{SubjectID: "visitor-1", Organization: "Acme"},
		{SubjectID: "x", FirstName: "Diana", LastName: "Davis", Email: "diana@acme.test",
			Organization: "Acme", Department: "Research", Title: "Director"},
	}
}

// SeedAll saves every demo profile.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo profiles...")

	profiles := DemoProfiles()
	for _, p := range profiles {
		if _, err := id.ParseSubjectID(p.SubjectID.String()); err != nil {
			return fmt.Errorf("invalid demo subject %q: %w", p.SubjectID, err)
		}
		if err := s.profiles.Save(ctx, p); err != nil {
			return fmt.Errorf("failed to seed profile %s: %w", p.SubjectID, err)
		}
	}

	s.logger.Info("demo profiles seeded successfully",
		"profiles", len(profiles),
	)
	return nil
}
