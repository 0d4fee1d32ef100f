package csrf

import "errors"

var (
	// ErrSecretRequired is returned by NewManager when the signing secret is empty.
	ErrSecretRequired = errors.New("csrf: signing secret is required")

	// ErrValidationFailed is returned when the kept and sent halves do not
	// correlate: missing value, malformed envelope, bad signature, or id
	// mismatch. Deliberately indistinct so callers cannot probe which check failed.
	ErrValidationFailed = errors.New("csrf: state validation failed")

	// ErrTokenExpired is returned when the envelope verified but its expiry passed.
	ErrTokenExpired = errors.New("csrf: state token expired")
)
