// Package authkit is a pluggable third-party authentication library. It lets
// a host application redirect a user to an external identity provider
// (Google, Facebook, Twitter, an OpenID endpoint, ...), receive the callback,
// exchange the returned artifact for an access token, and obtain a normalized
// identity record.
//
// The package deliberately stops at the HTTP boundary: it produces redirect
// URLs and consumes callback query strings, but never touches the host's
// router, sessions, or response writing. The host performs the redirect,
// persists the kept half of the state token (typically in a cookie), and
// hands both back on callback.
//
// # Usage
//
//	registry := authkit.NewRegistry()
//	_ = registry.Register("google", oauth2ac.NewGoogle(), authkit.Settings{
//		ClientKey:    cfg.GoogleClientKey,
//		ClientSecret: cfg.GoogleClientSecret,
//		CallbackURL:  "https://app.example.com/auth/google/callback",
//	})
//
//	states, _ := csrf.NewManager(cfg.StateSecret)
//	flow, _ := authkit.NewFlow(registry, states)
//
//	// Login handler: redirect the user, keep result.State.ToKeep in a cookie.
//	result, _ := flow.BeginAuth(ctx, "google")
//
//	// Callback handler: query is r.URL.Query(), kept comes from the cookie.
//	client, err := flow.CompleteAuth(ctx, "google", query, kept)
//
// The state token is validated before any outbound call is made, so a forged
// callback costs the host nothing but the signature check. Provider families
// live in the providers subpackages; anything speaking one of the three
// protocols can be added through oauth2ac.New, oauth1a.New, or a custom
// Provider implementation.
package authkit
