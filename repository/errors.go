package repository

import "errors"

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateVote is returned when a vote violates the (entry, dedupe key) index.
	ErrDuplicateVote = errors.New("duplicate vote")
)
