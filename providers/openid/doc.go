// Package openid implements an OpenID 2.0 provider with YADIS/XRDS
// endpoint discovery.
//
// The user supplies an identifier URL (Settings.Identifier). BeginAuth
// resolves it to the real authentication endpoint by following redirects and
// the X-XRDS-Location header (depth-bounded) until an XRDS document is
// found, then redirects the user there with a checkid_setup request.
//
// OpenID issues no access token. Exchange verifies the signed callback with
// the provider via a check_authentication POST and returns the verified
// claimed identifier in the token slot. FetchIdentity needs no network call
// at all: the identity is projected from the SReg/AX fields the provider
// signed into the callback.
package openid
