// Package store holds member profiles, the read-only source credentials are issued from.
package store

import (
	"context"

	"sapp/internal/credential/models"
	id "sapp/pkg/domain"
	"sapp/pkg/platform/sentinel"
)

// ErrNotFound is returned when no profile exists for a subject.
var ErrNotFound = sentinel.ErrNotFound

// Store looks up member profiles. Save exists for provisioning and demo seeding;
// the credential path only reads.
type Store interface {
	FindBySubject(ctx context.Context, subjectID id.SubjectID) (models.Profile, error)
	Save(ctx context.Context, profile models.Profile) error
}
