package route

// Hit is one ranked search result returned by the vector index, or the
// synthetic result carrying a generated answer.
type Hit struct {
	id       string
	score    float64
	title    string
	category string
	content  string
}

// NewHit creates a Hit. Scores are reported as returned by the index; no
// normalization is applied here.
func NewHit(id string, score float64, title, category, content string) Hit {
	return Hit{id: id, score: score, title: title, category: category, content: content}
}

// ID returns the record identifier.
func (h Hit) ID() string { return h.id }

// Score returns the relevance score.
func (h Hit) Score() float64 { return h.score }

// Title returns the record title.
func (h Hit) Title() string { return h.title }

// Category returns the record category, which for regional namespaces is the
// region the record belongs to.
func (h Hit) Category() string { return h.category }

// Content returns the record text.
func (h Hit) Content() string { return h.content }
