// Package region defines administrative regions and per-city region sets.
package region

import "fmt"

// Region is an administrative unit (district, city, or county) belonging to
// exactly one parent city or province.
type Region struct {
	name      string
	city      string
	neighbors []string
}

// New validates and creates a Region. The neighbor list is the adjacency
// exactly as declared in the source data: directed, ordered, possibly empty
// for island or exclave regions. It is never auto-symmetrized.
func New(name, city string, neighbors []string) (Region, error) {
	if name == "" {
		return Region{}, fmt.Errorf("region name is required")
	}
	if city == "" {
		return Region{}, fmt.Errorf("parent city is required for region %q", name)
	}
	return Region{name: name, city: city, neighbors: neighbors}, nil
}

// Name returns the region name, unique within its city.
func (r Region) Name() string { return r.name }

// City returns the parent city or province.
func (r Region) City() string { return r.city }

// Neighbors returns the declared adjacency list in declared order.
func (r Region) Neighbors() []string { return r.neighbors }

// Set is the immutable collection of regions of one city, with the city's
// configured popular-region defaults.
type Set struct {
	city    string
	regions []Region
	popular []string
	index   map[string]int
}

// NewSet validates and creates a per-city region Set.
func NewSet(city string, regions []Region, popular []string) (Set, error) {
	if city == "" {
		return Set{}, fmt.Errorf("city name is required")
	}
	if len(regions) == 0 {
		return Set{}, fmt.Errorf("city %q has no regions", city)
	}

	index := make(map[string]int, len(regions))
	for i, r := range regions {
		if r.City() != city {
			return Set{}, fmt.Errorf("region %q belongs to %q, not %q", r.Name(), r.City(), city)
		}
		if _, dup := index[r.Name()]; dup {
			return Set{}, fmt.Errorf("duplicate region %q in city %q", r.Name(), city)
		}
		index[r.Name()] = i
	}
	for _, p := range popular {
		if _, ok := index[p]; !ok {
			return Set{}, fmt.Errorf("popular region %q is not a region of %q", p, city)
		}
	}

	return Set{city: city, regions: regions, popular: popular, index: index}, nil
}

// City returns the city this set covers.
func (s Set) City() string { return s.city }

// Regions returns all regions in declared order.
func (s Set) Regions() []Region { return s.regions }

// Popular returns the configured default popular regions.
func (s Set) Popular() []string { return s.popular }

// Get looks up a region by name.
func (s Set) Get(name string) (Region, bool) {
	i, ok := s.index[name]
	if !ok {
		return Region{}, false
	}
	return s.regions[i], true
}

// Contains reports whether the set declares a region with the given name.
func (s Set) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}
