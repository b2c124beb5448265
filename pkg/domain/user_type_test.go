package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "memberflow/pkg/domain-errors"
)

func TestParseUserType(t *testing.T) {
	t.Run("accepts canonical values", func(t *testing.T) {
		for _, s := range []string{"Primary", "Secondary", "NonMember", "Internal"} {
			got, err := ParseUserType(s)
			require.NoError(t, err)
			assert.Equal(t, UserType(s), got)
		}
	})

	t.Run("maps legacy Secondry literal to Secondary", func(t *testing.T) {
		got, err := ParseUserType("Secondry")
		require.NoError(t, err)
		assert.Equal(t, UserTypeSecondary, got)
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		_, err := ParseUserType("Tertiary")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects lowercase variants", func(t *testing.T) {
		_, err := ParseUserType("primary")
		require.Error(t, err)
	})
}

func TestUserTypeJSON(t *testing.T) {
	type doc struct {
		Type UserType `json:"type"`
	}

	t.Run("canonicalizes the legacy spelling on decode", func(t *testing.T) {
		var d doc
		require.NoError(t, json.Unmarshal([]byte(`{"type":"Secondry"}`), &d))
		assert.Equal(t, UserTypeSecondary, d.Type)
	})

	t.Run("decodes canonical values as-is", func(t *testing.T) {
		var d doc
		require.NoError(t, json.Unmarshal([]byte(`{"type":"Primary"}`), &d))
		assert.Equal(t, UserTypePrimary, d.Type)
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		var d doc
		err := json.Unmarshal([]byte(`{"type":"Boss"}`), &d)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("allows the empty value for display-only entries", func(t *testing.T) {
		var d doc
		require.NoError(t, json.Unmarshal([]byte(`{"type":""}`), &d))
		assert.Equal(t, UserType(""), d.Type)
	})

	t.Run("round-trips through encoding", func(t *testing.T) {
		out, err := json.Marshal(doc{Type: UserTypeSecondary})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"Secondary"}`, string(out))
	})
}
