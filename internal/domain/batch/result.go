// Package batch describes per-item outcomes of bulk catalog operations.
package batch

// ItemStatus is the processing outcome of a single item.
type ItemStatus string

// Item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of ingesting one catalog item.
type Result struct {
	id      string
	status  ItemStatus
	vectors int
	err     error
}

// NewOK records a stored item and how many field vectors were written for it.
func NewOK(id string, vectors int) Result {
	return Result{id: id, status: StatusOK, vectors: vectors}
}

// NewError records a failed item.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Vectors returns the number of field vectors written.
func (r Result) Vectors() int { return r.vectors }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary aggregates a run.
type Summary struct {
	Succeeded int
	Failed    int
	Vectors   int
	Tokens    int
}

// Summarize counts outcomes. tokens is passed through from the embedder.
func Summarize(results []Result, tokens int) Summary {
	s := Summary{Tokens: tokens}
	for _, r := range results {
		if r.status == StatusOK {
			s.Succeeded++
			s.Vectors += r.vectors
		} else {
			s.Failed++
		}
	}
	return s
}
