// Package gazetteer loads the administrative-region data and answers place
// lookups: which city a region belongs to, what its neighbors are, and what
// the sensible default regions for a city are.
package gazetteer

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/silverpath-kr/silverpath/internal/domain/region"
)

//go:embed regions.yaml
var regionsYAML []byte

type regionsFile struct {
	Cities []struct {
		Name    string   `yaml:"name"`
		Popular []string `yaml:"popular"`
		Regions []struct {
			Name      string   `yaml:"name"`
			Neighbors []string `yaml:"neighbors"`
		} `yaml:"regions"`
	} `yaml:"cities"`
}

// Gazetteer holds the region sets of every served city, in declared order.
// Region names are not unique across cities (중구 exists in both 서울특별시
// and 인천광역시); reverse lookups resolve to the first declaring city.
type Gazetteer struct {
	cities []string
	sets   map[string]region.Set
}

// New loads the embedded region data.
func New() (*Gazetteer, error) {
	return parse(regionsYAML)
}

func parse(data []byte) (*Gazetteer, error) {
	var file regionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse region data: %w", err)
	}
	if len(file.Cities) == 0 {
		return nil, fmt.Errorf("region data declares no cities")
	}

	g := &Gazetteer{sets: make(map[string]region.Set, len(file.Cities))}
	for _, c := range file.Cities {
		if _, dup := g.sets[c.Name]; dup {
			return nil, fmt.Errorf("duplicate city %q in region data", c.Name)
		}
		regions := make([]region.Region, 0, len(c.Regions))
		for _, r := range c.Regions {
			reg, err := region.New(r.Name, c.Name, r.Neighbors)
			if err != nil {
				return nil, fmt.Errorf("city %q: %w", c.Name, err)
			}
			regions = append(regions, reg)
		}
		set, err := region.NewSet(c.Name, regions, c.Popular)
		if err != nil {
			return nil, err
		}
		g.cities = append(g.cities, c.Name)
		g.sets[c.Name] = set
	}
	return g, nil
}

// Cities returns the served cities in declared order.
func (g *Gazetteer) Cities() []string { return g.cities }

// Set returns the region set of a city.
func (g *Gazetteer) Set(city string) (region.Set, bool) {
	s, ok := g.sets[city]
	return s, ok
}

// Contains reports whether the named region belongs to the named city.
func (g *Gazetteer) Contains(city, name string) bool {
	s, ok := g.sets[city]
	return ok && s.Contains(name)
}

// ParentCityOf finds the city a region belongs to, scanning cities in
// declared order so ambiguous names resolve deterministically.
func (g *Gazetteer) ParentCityOf(name string) (string, bool) {
	for _, city := range g.cities {
		if g.sets[city].Contains(name) {
			return city, true
		}
	}
	return "", false
}

// PopularOf returns the configured default regions for a city.
func (g *Gazetteer) PopularOf(city string) []string {
	s, ok := g.sets[city]
	if !ok {
		return nil
	}
	return s.Popular()
}

// NeighborsOf returns up to limit declared neighbors of a region, in the
// declared proximity order. Regions with no adjacency (islands) and names
// absent from the city's set fall back to the city's popular regions, so a
// resolvable city always yields a usable scope.
func (g *Gazetteer) NeighborsOf(city, name string, limit int) []string {
	s, ok := g.sets[city]
	if !ok {
		return nil
	}
	r, ok := s.Get(name)
	if !ok || len(r.Neighbors()) == 0 {
		return clip(s.Popular(), limit)
	}
	return clip(r.Neighbors(), limit)
}

func clip(list []string, limit int) []string {
	if limit <= 0 || limit >= len(list) {
		return list
	}
	return list[:limit]
}
