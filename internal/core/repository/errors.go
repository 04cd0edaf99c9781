package repository

import "errors"

// ErrNotFound is wrapped by repository implementations when a lookup
// matches no row, so services can branch with errors.Is.
var ErrNotFound = errors.New("not found")
