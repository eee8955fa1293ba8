package collection

import "errors"

var (
	// ErrConsistency means an id matched zero or several local records.
	ErrConsistency = errors.New("collection consistency fault")
	// ErrStale means a result arrived for a snapshot that has since been replaced.
	ErrStale = errors.New("result for a replaced snapshot")
	// ErrClosed means the synchronizer was closed before the operation resolved.
	ErrClosed = errors.New("synchronizer closed")
)
