package persistence

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitsync/internal/domain"
)

func TestCursorTokenCarriesStart(t *testing.T) {
	start := time.UnixMilli(1_700_000_123_456).UTC()
	token := EncodeCursor(&domain.Cursor{Start: start})
	require.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	require.True(t, decoded.Start.Equal(start))

	require.Empty(t, EncodeCursor(nil))
	empty, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, empty)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	require.Error(t, err)

	_, err = DecodeCursor(base64.StdEncoding.EncodeToString([]byte("other|12")))
	require.Error(t, err)

	_, err = DecodeCursor(base64.StdEncoding.EncodeToString([]byte("start|abc")))
	require.Error(t, err)
}

func TestPageSize(t *testing.T) {
	require.Equal(t, 20, PageSize(0))
	require.Equal(t, 7, PageSize(7))
	require.Equal(t, 100, PageSize(1000))
}
