// Package oauth1a implements the OAuth1 (Twitter-style) provider family on
// top of github.com/dghubble/oauth1.
//
// OAuth1 differs from the authorization-code family in two ways the flow has
// to accommodate. First, beginning authentication is itself a network call:
// a temporary request token must be obtained before the user can be
// redirected. Second, the request-token secret must survive the redirect
// round trip; the provider returns it in Redirect.RoundTrip, which the flow
// seals into the signed kept half of the CSRF token and hands back through
// Callback.RoundTrip on completion.
//
// Since OAuth1 has no state parameter, the state value is appended to the
// callback URL as a `state` query parameter and comes back with the
// provider's redirect.
package oauth1a
