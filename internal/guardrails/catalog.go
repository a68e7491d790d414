package guardrails

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk shape of a standalone risk catalog.
type catalogFile struct {
	Categories []RiskCategory `yaml:"categories"`
}

// LoadCategories reads a risk catalog from a YAML file. The catalog replaces,
// rather than extends, the built-in categories.
func LoadCategories(path string) ([]RiskCategory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read risk catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse risk catalog %s: %w", path, err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("risk catalog %s contains no categories", path)
	}

	for i, category := range file.Categories {
		if category.Name == "" {
			return nil, fmt.Errorf("risk catalog %s: category at index %d has no name", path, i)
		}
		if category.Threshold < 0 || category.Threshold > 1 {
			return nil, fmt.Errorf("risk catalog %s: category %q threshold %v outside [0,1]",
				path, category.Name, category.Threshold)
		}
	}
	return file.Categories, nil
}

// MarshalCatalog renders a category list in the catalog file format.
func MarshalCatalog(categories []RiskCategory) ([]byte, error) {
	return yaml.Marshal(catalogFile{Categories: categories})
}
