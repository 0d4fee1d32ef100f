// Package oauth2ac implements the OAuth2 authorization-code provider family.
//
// One engine drives every provider in the family; presets (Google, Facebook,
// GitHub, Windows Live, Amazon, LinkedIn, Instagram) differ only in wire
// details: endpoint URLs, scope separator, identity endpoint and field
// mapping, and optional mobile display parameters. Custom providers are
// built the same way the presets are:
//
//	p := oauth2ac.New("acme", oauth2.Endpoint{
//	    AuthURL:  "https://acme.example/oauth/authorize",
//	    TokenURL: "https://acme.example/oauth/token",
//	}, "https://api.acme.example/me", mapAcmeIdentity)
//
// The authorize URL is constructed manually so scope separators and display
// variants stay provider-exact; the token exchange delegates to
// golang.org/x/oauth2, with rejection statuses surfaced through
// authkit.AuthError.
package oauth2ac
