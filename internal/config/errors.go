package config

import "errors"

// Configuration validation errors returned by Config.Validate().
// Package-level sentinel errors let callers use errors.Is() for
// programmatic handling while keeping human-readable messages.
var (
	// ErrNoSource is returned when no law source is specified.
	ErrNoSource = errors.New("no law source specified: provide one or more source slugs (e.g. codice-civile)")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the politeness delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidReferenceScope is returned when the reference scope is
	// neither "all" nor "same-source".
	ErrInvalidReferenceScope = errors.New(`invalid reference scope: must be "all" or "same-source"`)
)
