package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCursor_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 28, 12, 30, 45, 123456789, time.UTC)

	encoded := EncodeCursor("doc-123", ts)
	require.NotEmpty(t, encoded)

	cursor, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "doc-123", cursor.LastID)
	assert.True(t, cursor.Timestamp.Equal(ts))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor_Empty(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeCursor_InvalidBase64(t *testing.T) {
	_, err := DecodeCursor("not base64!!!")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestDecodeCursor_MissingSeparator(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("no-separator"))
	_, err := DecodeCursor(encoded)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestDecodeCursor_BadTimestamp(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("id|yesterday"))
	_, err := DecodeCursor(encoded)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
