package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "satsvault/pkg/domain-errors"
)

func TestParseOwnerID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseOwnerID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects oversized value", func(t *testing.T) {
		_, err := ParseOwnerID(strings.Repeat("a", 257))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts opaque value without interpreting it", func(t *testing.T) {
		id, err := ParseOwnerID("npub1xyz|device-7")
		require.NoError(t, err)
		assert.Equal(t, "npub1xyz|device-7", id.String())
		assert.False(t, id.IsNil())
	})
}

func TestParseRecordID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseRecordID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects oversized value", func(t *testing.T) {
		_, err := ParseRecordID(strings.Repeat("q", 257))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts mint-issued quote id", func(t *testing.T) {
		id, err := ParseRecordID("bGhrfoo…quote")
		require.NoError(t, err)
		assert.False(t, id.IsNil())
	})
}
