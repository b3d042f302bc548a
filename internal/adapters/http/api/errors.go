package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrNoResult   = errors.New("no benchmark result available")
	ErrNoSpec     = errors.New("no benchmark spec to run")
)
