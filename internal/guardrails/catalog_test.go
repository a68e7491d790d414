package guardrails

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "risks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCategories(t *testing.T) {
	path := writeCatalog(t, `
categories:
  - name: custom-risk
    definition: user requests something custom
    threshold: 0.7
  - name: second-risk
    definition: another definition
    threshold: 0.9
`)

	categories, err := LoadCategories(path)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "custom-risk", categories[0].Name)
	assert.InDelta(t, 0.7, categories[0].Threshold, 1e-9)
}

func TestLoadCategoriesEmptyCatalog(t *testing.T) {
	_, err := LoadCategories(writeCatalog(t, "categories: []\n"))
	assert.Error(t, err)
}

func TestLoadCategoriesValidation(t *testing.T) {
	_, err := LoadCategories(writeCatalog(t, `
categories:
  - definition: nameless
    threshold: 0.5
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name")

	_, err = LoadCategories(writeCatalog(t, `
categories:
  - name: broken
    definition: x
    threshold: 2.0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside [0,1]")
}

func TestLoadCategoriesMissingFile(t *testing.T) {
	_, err := LoadCategories(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestMarshalCatalogRoundTrip(t *testing.T) {
	data, err := MarshalCatalog(DefaultCategories())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "risks.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	categories, err := LoadCategories(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultCategories(), categories)
}
