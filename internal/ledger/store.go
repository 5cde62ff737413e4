package ledger

import (
	"context"

	"sapp/internal/credential/models"
	id "sapp/pkg/domain"
)

// Store keeps one ledger per scan session.
type Store interface {
	Append(ctx context.Context, session id.ScanSessionID, result models.ScanResult) error
	// List returns the session's history newest first; an unknown session has an empty history.
	List(ctx context.Context, session id.ScanSessionID) ([]models.ScanResult, error)
	// Discard drops the session's history. Discarding an unknown session is a no-op.
	Discard(ctx context.Context, session id.ScanSessionID) error
}
