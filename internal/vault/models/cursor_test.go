package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "satsvault/pkg/domain-errors"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	c := Cursor{CreatedAt: at, ID: "quote-42"}

	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, decoded.CreatedAt.Equal(at))
	assert.Equal(t, c.ID, decoded.ID)
}

func TestDecodeCursorEmptyMeansStart(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"not-base64!!", "YWJjZGVm", "e30"} {
		_, err := DecodeCursor(token)
		require.Error(t, err, "token %q", token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}

func TestCursorAfterOrdering(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	c := &Cursor{CreatedAt: at, ID: "b"}

	assert.True(t, c.After(&Record{CreatedAt: at.Add(time.Second), ID: "a"}))
	assert.True(t, c.After(&Record{CreatedAt: at, ID: "c"}), "same timestamp breaks ties by id")
	assert.False(t, c.After(&Record{CreatedAt: at, ID: "b"}))
	assert.False(t, c.After(&Record{CreatedAt: at.Add(-time.Second), ID: "z"}))
}
