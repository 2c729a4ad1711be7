package filehost_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-filehost/pkg/filehost"
)

func TestParseDate(t *testing.T) {
	for _, raw := range []string{"2024-01-02", "2024-01-02T03:04", "2024-01-02T03:04:05", "2024-01-02T03:04:05.123Z", "2024-01-02T05:04:05+02:00"} {
		got, err := filehost.ParseDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, 2024, got.Year())
		assert.Equal(t, 2, got.Day())
	}
	_, err := filehost.ParseDate("02/01/2024")
	assert.Error(t, err)
}
