package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist. Handlers
// map it onto a NOT_FOUND response.
var ErrNotFound = errors.New("record not found")
