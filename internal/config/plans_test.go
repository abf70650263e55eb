package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanBookHolderLoadsConfiguredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
plans:
  - slug: unico
    name: Único
    monthlyPrice: 9000
    maxOrdersPerMonth: 80
trialOf: unico
trialDays: 14
`), 0o600))

	holder, err := NewPlanBookHolder(Config{PlansFile: path})
	require.NoError(t, err)

	book := holder.Get()
	require.Len(t, book.Plans, 1)
	assert.Equal(t, "unico", book.Plans[0].Slug)
	assert.EqualValues(t, 9000, book.Plans[0].MonthlyPrice)
	assert.Equal(t, "unico", book.TrialOf)
	assert.Equal(t, 14, book.TrialDay)
}

func TestPlanBookHolderMissingConfiguredFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")

	holder, err := NewPlanBookHolder(Config{PlansFile: path})
	require.NoError(t, err)

	book := holder.Get()
	assert.Equal(t, DefaultPlanBook().TrialOf, book.TrialOf)
	require.NotEmpty(t, book.Plans)
	assert.Equal(t, "basico", book.Plans[0].Slug)
}

func TestPlanBookHolderRejectsInvalidCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
plans:
  - slug: repetido
  - slug: repetido
`), 0o600))

	_, err := NewPlanBookHolder(Config{PlansFile: path})
	assert.Error(t, err)
}
