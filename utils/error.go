package utils

import "errors"

var (
	// ErrEmptyQueue is returned when a pop is attempted on an empty queue.
	ErrEmptyQueue = errors.New("queue is empty")

	// ErrNotFound is returned when a cache lookup finds no matching record.
	ErrNotFound = errors.New("record not found")
)
