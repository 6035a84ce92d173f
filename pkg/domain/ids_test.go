package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "siwarga/pkg/domain-errors"
)

// TestParseUUID_Invariants validates that IDs parsed at trust boundaries are
// valid, non-empty, non-nil UUIDs.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

func TestParseID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE residents;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResidentID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	parsers := map[string]func(string) error{
		"user":         func(s string) error { _, err := ParseUserID(s); return err },
		"resident":     func(s string) error { _, err := ParseResidentID(s); return err },
		"family":       func(s string) error { _, err := ParseFamilyID(s); return err },
		"rt":           func(s string) error { _, err := ParseRTID(s); return err },
		"document":     func(s string) error { _, err := ParseDocumentID(s); return err },
		"complaint":    func(s string) error { _, err := ParseComplaintID(s); return err },
		"recipient":    func(s string) error { _, err := ParseRecipientID(s); return err },
		"notification": func(s string) error { _, err := ParseNotificationID(s); return err },
	}

	for name, parse := range parsers {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, parse(validUUID))
			for _, input := range []string{"", "invalid", uuid.Nil.String()} {
				require.Error(t, parse(input), "input %q", input)
			}
		})
	}
}

func TestIDs_JSONRoundTrip(t *testing.T) {
	type envelope struct {
		Resident ResidentID `json:"resident_id"`
	}
	in := envelope{Resident: ResidentID(uuid.New())}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), in.Resident.String())

	var out envelope
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in.Resident, out.Resident)
}
