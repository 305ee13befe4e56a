package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrUnknownArchivalResult = errors.New("unknown archival result")
)

// Archival run results.
const (
	ArchivalCompleted = "completed"
	ArchivalTruncated = "truncated"
	ArchivalFailed    = "failed"
)

// ValidateArchivalResult reports whether result is a known archival result label.
func ValidateArchivalResult(result string) error {
	switch result {
	case ArchivalCompleted, ArchivalTruncated, ArchivalFailed:
		return nil
	default:
		return ErrUnknownArchivalResult
	}
}
