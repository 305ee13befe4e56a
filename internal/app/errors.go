package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrValidation marks malformed or out-of-range input. It is returned
	// before any storage access.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientComparable is returned by Compare when fewer than two
	// politicians have evaluations to compare.
	ErrInsufficientComparable = errors.New("at least two comparable politicians are required")

	ErrPoliticianNotFound = errors.New("politician not found")
	ErrBackpressure       = errors.New("ingestion queue is full")
	ErrNotStarted         = errors.New("service not started")
)
