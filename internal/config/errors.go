package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and are reported before any
// external validator runs. Callers use errors.Is() to tell them apart.
var (
	// ErrNoDocument is returned when the document path or URL is empty.
	ErrNoDocument = errors.New("no document specified: provide a document path or URL")

	// ErrUserWithoutToken is returned when --user is given without --token.
	// The user only makes sense as the owner of the authentication token.
	ErrUserWithoutToken = errors.New("invalid flag combination: --user requires --token")

	// ErrInvalidPort is returned when the local server port is out of range.
	ErrInvalidPort = errors.New("invalid port: must be between 0 and 65535")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRedirectLimit is returned when the redirect limit is negative.
	ErrInvalidRedirectLimit = errors.New("invalid redirect limit: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrEmptyToolCommand is returned when a validator command is blank.
	ErrEmptyToolCommand = errors.New("invalid tool configuration: command must not be empty")

	// ErrInvalidFilterPattern is returned when a markup filter pattern is not
	// a valid regular expression.
	ErrInvalidFilterPattern = errors.New("invalid markup filter pattern")
)
