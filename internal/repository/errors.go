package repository

import "errors"

var (
	// ErrCapacityExceeded is returned by AppendPair when the day is already full.
	ErrCapacityExceeded = errors.New("puzzle day is full")
	// ErrNotFound is returned by targeted mutations of rows that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an optimistic update lost a race.
	ErrConflict = errors.New("concurrent update")
)
