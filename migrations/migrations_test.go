package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	up, err := Load("up")
	require.NoError(t, err)
	assert.Contains(t, up, "CREATE TABLE IF NOT EXISTS tourism_arrivals")
	assert.Contains(t, up, "CREATE TABLE IF NOT EXISTS training_runs")

	down, err := Load("down")
	require.NoError(t, err)
	assert.Contains(t, down, "DROP TABLE IF EXISTS training_runs")

	_, err = Load("sideways")
	assert.Error(t, err)
}
