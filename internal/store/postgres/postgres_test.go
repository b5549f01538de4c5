package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-videos-backend/internal/store"
)

func TestParseID(t *testing.T) {
	_, err := parseID("42")
	assert.ErrorIs(t, err, store.ErrInvalidID)

	id, err := parseID("6f1c1a5e-3a57-4c3b-9a3e-0f4b5e1d2c3b")
	require.NoError(t, err)
	assert.Equal(t, "6f1c1a5e-3a57-4c3b-9a3e-0f4b5e1d2c3b", id.String())
}

func TestNullString(t *testing.T) {
	assert.False(t, nullString("").Valid)
	assert.True(t, nullString("x").Valid)
}

func TestSetClause(t *testing.T) {
	var c setClause
	c.add("title", "Lava")
	c.addRaw("generation_id = NULL")
	c.add("updated_at", "now")

	assert.Equal(t, []string{"title = $1", "generation_id = NULL", "updated_at = $2"}, c.parts)
	assert.Equal(t, []any{"Lava", "now"}, c.args)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "001_create_projects.sql", entries[0].Name())
}

func TestSetClause_Guards(t *testing.T) {
	var c setClause
	c.add("image_generation_status", "pending")
	c.guard("image_generation_status", "requested")
	c.guardRaw("generation_id IS NULL")

	assert.Equal(t, "id = $3 AND image_generation_status = $2 AND generation_id IS NULL", c.where(3))
	assert.Equal(t, []any{"pending", "requested"}, c.args)
}
