package repositories

import "errors"

var (
	// ErrNotFound indicates a referenced film or user does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the write would give a user an email another user already holds.
	ErrConflict = errors.New("record conflict")
)
