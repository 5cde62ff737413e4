package seeder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sapp/internal/credential/issuer"
	"sapp/internal/credential/models"
	"sapp/internal/profile/store"
)

func TestSeedAll(t *testing.T) {
	ctx := context.Background()
	profiles := store.NewInMemoryStore()

	require.NoError(t, New(profiles, slog.New(slog.NewTextHandler(io.Discard, nil))).SeedAll(ctx))

	jane, err := profiles.FindBySubject(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Acme", jane.Organization)

	names := map[string]bool{}
	for _, p := range DemoProfiles() {
		names[issuer.DisplayName(p)] = true
	}
	assert.True(t, names["Jane Doe"])
	assert.True(t, names["charlie@contractors.test"])
	assert.True(t, names[issuer.PlaceholderDisplayName])
}

type failingStore struct{}

func (failingStore) Save(context.Context, models.Profile) error { return errors.New("db down") }

func TestSeedAllPropagatesErrors(t *testing.T) {
	err := New(failingStore{}, slog.New(slog.NewTextHandler(io.Discard, nil))).SeedAll(context.Background())
	assert.ErrorContains(t, err, "db down")
}
