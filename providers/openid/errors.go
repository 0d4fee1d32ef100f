package openid

import "errors"

var (
	// ErrNoEndpoint is returned when discovery finishes without finding an
	// authentication endpoint for the identifier.
	ErrNoEndpoint = errors.New("openid: no authentication endpoint discovered")

	// ErrTooManyRedirects is returned when discovery exceeds the redirect
	// depth bound.
	ErrTooManyRedirects = errors.New("openid: discovery exceeded redirect limit")

	// ErrMalformedXRDS is returned when the discovered XRDS document cannot
	// be parsed.
	ErrMalformedXRDS = errors.New("openid: malformed xrds document")
)
