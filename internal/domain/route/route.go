// Package route holds the request-scoped types that flow through the query
// routing pipeline.
package route

// Location is a resolved place reference: a city (province) and optionally a
// region (district, city, or county) within it.
type Location struct {
	City   string
	Region string
}

// IsZero reports whether no place was resolved at all.
func (l Location) IsZero() bool { return l.City == "" && l.Region == "" }

// Classification is the outcome of namespace classification. NamespaceKey is
// empty on a miss; a miss is a value, not an error.
type Classification struct {
	NamespaceKey string
	Confidence   float64
	Reasoning    string
	FastPath     bool
}

// Miss reports whether classification failed to settle on a namespace.
func (c Classification) Miss() bool { return c.NamespaceKey == "" }

// Context accumulates the state of one routed query as it moves through
// extraction, classification, scope expansion, search, and fallback.
type Context struct {
	RawQuery     string
	NamespaceKey string
	Confidence   float64
	Reasoning    string
	FastPath     bool
	Location     *Location
	Scope        []string
	Hits         []Hit
	UsedFallback bool
	Answer       string
}

// NewContext starts a routing context for a raw user query.
func NewContext(query string) *Context {
	return &Context{RawQuery: query}
}

// TargetRegion returns the resolved target region, or "" when none.
func (c *Context) TargetRegion() string {
	if c.Location == nil {
		return ""
	}
	return c.Location.Region
}
