package model

import "errors"

var (
	// ErrValidation marks input rejected before it reaches the backend.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidRecord marks a backend record that failed boundary checks.
	ErrInvalidRecord = errors.New("invalid record")
)

// Record is anything kept in a Collection, keyed by a server-assigned id.
type Record interface {
	RecordID() int
}

// Collection is one page of a remote list plus the total match count.
// Count may exceed len(Results) when a limit is applied.
type Collection[T Record] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

// Clone returns a copy whose Results slice does not alias c's.
func (c Collection[T]) Clone() Collection[T] {
	out := Collection[T]{Count: c.Count}
	if c.Results != nil {
		out.Results = make([]T, len(c.Results))
		copy(out.Results, c.Results)
	}
	return out
}

// Len returns the number of materialized records.
func (c Collection[T]) Len() int { return len(c.Results) }
