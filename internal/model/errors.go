package model

import "errors"

// ErrDuplicate is returned by stores when a unique field (username, email)
// is already taken.
var ErrDuplicate = errors.New("duplicate record")
