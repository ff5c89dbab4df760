// Package namespace defines vector-index namespaces and the catalog that
// maps (city, category) pairs onto them.
package namespace

import "fmt"

// Namespace identifies one searchable partition of the vector index together
// with its routing constraints.
type Namespace struct {
	key            string
	description    string
	city           string
	category       string
	requiresRegion bool
	strictRegion   bool
}

// New validates and creates a Namespace. City and category may be empty for
// region-agnostic namespaces; strictRegion implies requiresRegion.
func New(key, description, city, category string, requiresRegion, strictRegion bool) (Namespace, error) {
	if key == "" {
		return Namespace{}, fmt.Errorf("namespace key is required")
	}
	if description == "" {
		return Namespace{}, fmt.Errorf("namespace %q has no description", key)
	}
	if strictRegion && !requiresRegion {
		return Namespace{}, fmt.Errorf("namespace %q is strict but does not require a region", key)
	}
	return Namespace{
		key:            key,
		description:    description,
		city:           city,
		category:       category,
		requiresRegion: requiresRegion,
		strictRegion:   strictRegion,
	}, nil
}

// Key returns the namespace key used against the vector index.
func (n Namespace) Key() string { return n.key }

// Description returns the human-readable description shown to the language
// model during classification.
func (n Namespace) Description() string { return n.description }

// City returns the city this namespace covers, or "" when region-agnostic.
func (n Namespace) City() string { return n.city }

// Category returns the service category, or "" when region-agnostic.
func (n Namespace) Category() string { return n.category }

// RequiresRegion reports whether searches in this namespace must carry a
// region scope.
func (n Namespace) RequiresRegion() bool { return n.requiresRegion }

// StrictRegion reports whether an unresolvable region scope is a terminal
// condition for this namespace rather than a fall-back to popular defaults.
func (n Namespace) StrictRegion() bool { return n.strictRegion }

// Catalog is the immutable set of known namespaces.
type Catalog struct {
	namespaces []Namespace
	byKey      map[string]int
}

// NewCatalog validates and creates a Catalog.
func NewCatalog(namespaces []Namespace) (Catalog, error) {
	if len(namespaces) == 0 {
		return Catalog{}, fmt.Errorf("catalog has no namespaces")
	}
	byKey := make(map[string]int, len(namespaces))
	for i, n := range namespaces {
		if _, dup := byKey[n.Key()]; dup {
			return Catalog{}, fmt.Errorf("duplicate namespace key %q", n.Key())
		}
		byKey[n.Key()] = i
	}
	return Catalog{namespaces: namespaces, byKey: byKey}, nil
}

// All returns every namespace in declared order.
func (c Catalog) All() []Namespace { return c.namespaces }

// Get looks up a namespace by key.
func (c Catalog) Get(key string) (Namespace, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Namespace{}, false
	}
	return c.namespaces[i], true
}

// KeyFor finds the namespace covering the given city and category. Composing
// keys through this lookup keeps every produced key valid by construction.
func (c Catalog) KeyFor(city, category string) (Namespace, bool) {
	if city == "" || category == "" {
		return Namespace{}, false
	}
	for _, n := range c.namespaces {
		if n.City() == city && n.Category() == category {
			return n, true
		}
	}
	return Namespace{}, false
}
