package sentinel

import "errors"

// Sentinel dependency errors. Stores and collaborators return these (optionally
// wrapped) so the pipeline can translate them into domain errors exactly once.
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
