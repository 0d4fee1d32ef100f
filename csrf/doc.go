// Package csrf issues and validates the anti-forgery state tokens that
// correlate an authentication redirect with its callback.
//
// A token has two halves. ToSend travels through the identity provider as
// the OAuth state parameter; it is 32 bytes from a cryptographically secure
// random source, base64url encoded. ToKeep stays with the caller (cookie or
// session) and never crosses the trust boundary; it is a signed envelope
// binding the sent half to an optional payload and an expiry.
//
// Envelope format: base64url(JSON{id, payload, exp}).base64url(signature)
//
// The signature is a full-length HMAC-SHA256 over the JSON bytes. Validation
// is a stateless cryptographic check: both halves must be present, the
// signature must verify, the envelope must not be expired, and the embedded
// id must equal the sent half. All comparisons are constant-time.
//
// # Usage
//
//	mgr, err := csrf.NewManager("my-very-strong-secret")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tok, err := mgr.Issue(csrf.Payload{ReturnTo: "/dashboard"})
//	// send tok.ToSend to the provider, persist tok.ToKeep client-side
//
//	payload, err := mgr.Validate(kept, sent)
//	if err != nil {
//	    // csrf.ErrValidationFailed or csrf.ErrTokenExpired
//	}
//
// The payload can carry a return-to URL to restore after login and opaque
// round-trip values a provider needs back on the second leg (e.g. the OAuth1
// request-token secret). Because the envelope is signed, the client cannot
// tamper with either.
package csrf
