package store

import "errors"

// ErrNotOpen indicates a store was constructed without a database handle.
var ErrNotOpen = errors.New("tracking store has no database handle")
