package planrepo

import "errors"

var (
	// ErrNotFound indicates the requested plan (or a plan holding the requested invite token) does not exist.
	ErrNotFound = errors.New("plan not found")

	// ErrAlreadyExists indicates a plan already exists with the provided ID.
	ErrAlreadyExists = errors.New("plan already exists")

	// ErrMalformed indicates a stored plan exists but its body could not be decoded.
	ErrMalformed = errors.New("plan document malformed")
)
