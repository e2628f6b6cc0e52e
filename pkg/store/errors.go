package store

import "errors"

// ErrNotFound is wrapped by lookups for missing blobs or refs.
var ErrNotFound = errors.New("not found")
