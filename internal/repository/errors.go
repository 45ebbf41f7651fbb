package repository

import "errors"

// ErrDuplicate is returned when an insert collides with a unique key
var ErrDuplicate = errors.New("duplicate record")
