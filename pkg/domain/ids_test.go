package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sapp/pkg/domain-errors"
)

// TestParseScanSessionID validates the parsing invariant at trust boundaries:
// "session IDs must be valid, non-empty, non-nil UUIDs".
func TestParseScanSessionID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseScanSessionID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseScanSessionID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseScanSessionID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParseScanSessionID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, ScanSessionID(raw), id)
		assert.False(t, id.IsNil())
	})
}

func TestParseSubjectID(t *testing.T) {
	t.Run("accepts opaque non-uuid identifiers", func(t *testing.T) {
		id, err := ParseSubjectID("  abc123 ")
		require.NoError(t, err)
		assert.Equal(t, SubjectID("abc123"), id)
	})

	t.Run("rejects blank", func(t *testing.T) {
		_, err := ParseSubjectID("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects oversized", func(t *testing.T) {
		_, err := ParseSubjectID(strings.Repeat("x", MaxSubjectIDLength+1))
		require.Error(t, err)
	})
}

func TestScanIDJSON(t *testing.T) {
	id := NewScanID()

	b, err := json.Marshal(struct {
		ID ScanID `json:"id"`
	}{ID: id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(b))

	var decoded struct {
		ID ScanID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, id, decoded.ID)

	require.Error(t, json.Unmarshal([]byte(`{"id":"nope"}`), &decoded))
}
