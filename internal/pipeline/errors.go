package pipeline

import "errors"

var (
	// ErrInvalidArea is returned when a request names an unusable area code.
	ErrInvalidArea = errors.New("invalid area code")

	// ErrInvalidCount is returned when a request asks for fewer than one listing.
	ErrInvalidCount = errors.New("desired count must be positive")
)
