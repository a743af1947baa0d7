package request

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/clubrec/internal/domain"
)

// Default recommendation limits.
const (
	DefaultMaxQueryBytes = 8192
	DefaultTopN          = 10
	DefaultMaxTopN       = 50
)

// Limits bound a recommendation request. Zero fields fall back to the defaults above.
type Limits struct {
	MaxQueryBytes int
	DefaultTopN   int
	MaxTopN       int
}

// Normalized fills zero fields with defaults and keeps DefaultTopN within MaxTopN.
func (l Limits) Normalized() Limits {
	if l.MaxQueryBytes <= 0 {
		l.MaxQueryBytes = DefaultMaxQueryBytes
	}
	if l.MaxTopN <= 0 {
		l.MaxTopN = DefaultMaxTopN
	}
	if l.DefaultTopN <= 0 {
		l.DefaultTopN = DefaultTopN
	}
	if l.DefaultTopN > l.MaxTopN {
		l.DefaultTopN = l.MaxTopN
	}
	return l
}

// Request is a validated recommendation query.
type Request struct {
	queryText string
	topN      int
}

// New validates and normalizes a recommendation query.
// queryText is trimmed; topN is defaulted when nil and clamped into [1, MaxTopN] otherwise.
func New(queryText string, topN *int, limits Limits) (Request, error) {
	lim := limits.Normalized()

	if !utf8.ValidString(queryText) {
		return Request{}, domain.NewValidationError("queryText", "must be valid UTF-8")
	}

	text := strings.TrimSpace(queryText)
	if text == "" {
		return Request{}, domain.NewValidationError("queryText", "is required")
	}
	if len(text) > lim.MaxQueryBytes {
		return Request{}, domain.NewValidationError("queryText",
			fmt.Sprintf("exceeds %d bytes", lim.MaxQueryBytes))
	}

	n := lim.DefaultTopN
	if topN != nil {
		n = min(max(*topN, 1), lim.MaxTopN)
	}

	return Request{queryText: text, topN: n}, nil
}

// QueryText returns the trimmed query.
func (r *Request) QueryText() string { return r.queryText }

// TopN returns the number of results requested.
func (r *Request) TopN() int { return r.topN }
