package authkit

import "context"

// Capability flags declare the optional behaviors a provider supports,
// replacing runtime type assertions with an explicit, queryable set.
type Capability uint8

const (
	// CapScopes marks providers whose authorize URL accepts requested scopes.
	CapScopes Capability = 1 << iota

	// CapClientCredentials marks providers that authenticate the application
	// with a client key/secret pair.
	CapClientCredentials

	// CapMobileDisplay marks providers with a mobile display variant.
	CapMobileDisplay

	// CapDiscovery marks providers that resolve their endpoint from a
	// user-supplied identifier (OpenID YADIS/XRDS discovery).
	CapDiscovery
)

// Has reports whether all flags in want are set.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Provider is the uniform protocol contract each provider family implements.
// Implementations must be safe for concurrent use; all state for a single
// authentication attempt flows through Settings, Redirect and Callback.
type Provider interface {
	// Name returns the stable provider identifier ("google", "twitter", ...).
	Name() string

	// Capabilities returns the optional behaviors this provider supports.
	Capabilities() Capability

	// DefaultSettings returns the provider's defaulted scopes and extras.
	// Credentials and callback URL are supplied at registration time.
	DefaultSettings() Settings

	// BeginAuth builds the authorization redirect for this attempt.
	// Returns ErrInvalidSettings (wrapped) when required configuration is
	// missing. May perform network I/O (OAuth1 request token, OpenID
	// discovery); pure URL construction for plain OAuth2.
	BeginAuth(ctx context.Context, settings Settings) (*Redirect, error)

	// Exchange converts the callback artifact (authorization code, verifier,
	// signed assertion) into an AccessToken. Rejections surface as *AuthError
	// carrying the provider's HTTP status. Never retried by the flow:
	// authorization codes are single-use.
	Exchange(ctx context.Context, settings Settings, cb Callback) (*AccessToken, error)

	// FetchIdentity retrieves and normalizes the user's identity. The raw
	// provider payload is returned alongside for provider-specific
	// extensions. Missing fields stay zero; partial data never fails.
	FetchIdentity(ctx context.Context, settings Settings, token *AccessToken, cb Callback) (*UserInformation, []byte, error)
}
