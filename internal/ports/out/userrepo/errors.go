package userrepo

import "errors"

// ErrNotFound indicates no mirror record exists for the requested user.
var ErrNotFound = errors.New("user not found")
