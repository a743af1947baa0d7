package candidate

// Candidate is a raw nearest-neighbor hit: an item and its similarity to the query.
// Higher scores are better; the absolute scale depends on the index distance metric.
type Candidate struct {
	itemID string
	score  float64
}

// New creates a candidate.
func New(itemID string, score float64) Candidate {
	return Candidate{itemID: itemID, score: score}
}

// ItemID returns the catalog item identifier.
func (c Candidate) ItemID() string { return c.itemID }

// Score returns the similarity score.
func (c Candidate) Score() float64 { return c.score }
