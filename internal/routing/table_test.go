package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoutes(t *testing.T) {
	table := Default()

	got, err := table.URL(BonusIndex, 5)
	require.NoError(t, err)
	assert.Equal(t, "/users/5/bonuses", got)

	got, err = table.URL(UserDestroy, int64(42))
	require.NoError(t, err)
	assert.Equal(t, "/users/42", got)
}

func TestURLEscapesParams(t *testing.T) {
	table := NewTable()
	table.Register("file", "/files/{name}/raw")
	got, err := table.URL("file", "a b/c")
	require.NoError(t, err)
	assert.Equal(t, "/files/a%20b%2Fc/raw", got)
}

func TestURLErrors(t *testing.T) {
	table := Default()

	_, err := table.URL("missing.route", 1)
	assert.Error(t, err)

	_, err = table.URL(BonusIndex)
	assert.Error(t, err)

	_, err = table.URL(BonusIndex, 1, 2)
	assert.Error(t, err)

	_, err = table.URL("missing.route")
	assert.Error(t, err)
}
