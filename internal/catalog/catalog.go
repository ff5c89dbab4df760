// Package catalog loads the namespace catalog from embedded data.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/silverpath-kr/silverpath/internal/domain/namespace"
)

//go:embed namespaces.yaml
var namespacesYAML []byte

type namespacesFile struct {
	Namespaces []struct {
		Key            string `yaml:"key"`
		Description    string `yaml:"description"`
		City           string `yaml:"city"`
		Category       string `yaml:"category"`
		RequiresRegion bool   `yaml:"requires_region"`
		StrictRegion   bool   `yaml:"strict_region"`
	} `yaml:"namespaces"`
}

// Load parses the embedded namespace catalog.
func Load() (namespace.Catalog, error) {
	return parse(namespacesYAML)
}

func parse(data []byte) (namespace.Catalog, error) {
	var file namespacesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return namespace.Catalog{}, fmt.Errorf("parse namespace catalog: %w", err)
	}

	namespaces := make([]namespace.Namespace, 0, len(file.Namespaces))
	for _, n := range file.Namespaces {
		ns, err := namespace.New(n.Key, n.Description, n.City, n.Category, n.RequiresRegion, n.StrictRegion)
		if err != nil {
			return namespace.Catalog{}, err
		}
		namespaces = append(namespaces, ns)
	}
	return namespace.NewCatalog(namespaces)
}
