package result

// Result is a single ranked recommendation.
type Result struct {
	itemID      string
	score       float64
	displayName *string
	description *string
}

// New creates a recommendation without display metadata.
func New(itemID string, score float64) Result {
	return Result{itemID: itemID, score: score}
}

// WithDisplay returns a copy carrying catalog display metadata.
// An empty description is kept absent.
func (r Result) WithDisplay(name, description string) Result {
	r.displayName = &name
	if description != "" {
		r.description = &description
	}
	return r
}

// ItemID returns the catalog item identifier.
func (r *Result) ItemID() string { return r.itemID }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// DisplayName returns the item name, or nil when enrichment was unavailable.
func (r *Result) DisplayName() *string { return r.displayName }

// Description returns the item description, or nil when unknown.
func (r *Result) Description() *string { return r.description }
