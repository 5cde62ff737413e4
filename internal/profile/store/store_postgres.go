package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sapp/internal/credential/models"
	id "sapp/pkg/domain"
)

// PostgresStore reads profiles from the member_profiles table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindBySubject(ctx context.Context, subjectID id.SubjectID) (models.Profile, error) {
	query := `
		SELECT subject_id, first_name, last_name, email, organization,
			department, title, avatar_url
		FROM member_profiles
		WHERE subject_id = $1
	`
	var p models.Profile
	var subject string
	err := s.db.QueryRowContext(ctx, query, subjectID.String()).Scan(
		&subject, &p.FirstName, &p.LastName, &p.Email, &p.Organization,
		&p.Department, &p.Title, &p.AvatarURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, fmt.Errorf("find profile by subject: %w", err)
	}
	p.SubjectID = id.SubjectID(subject)
	return p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p models.Profile) error {
	query := `
		INSERT INTO member_profiles (
			subject_id, first_name, last_name, email, organization,
			department, title, avatar_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (subject_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			organization = EXCLUDED.organization,
			department = EXCLUDED.department,
			title = EXCLUDED.title,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query,
		p.SubjectID.String(),
		p.FirstName,
		p.LastName,
		p.Email,
		p.Organization,
		p.Department,
		p.Title,
		p.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
