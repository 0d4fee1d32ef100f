package authkit

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Settings holds the per-provider configuration for a single authentication
// attempt. A copy travels through BeginAuth and CompleteAuth; the registry
// keeps the defaults and the flow merges per-call overrides on top.
//
// Provider-specific extras live in the Extra map instead of a settings
// inheritance hierarchy, so one struct serves every provider family.
type Settings struct {
	ClientKey    string
	ClientSecret string

	// CallbackURL is where the provider redirects after consent.
	CallbackURL string

	// Scopes requested from the provider. The provider joins them with its
	// own separator (space or comma) when building the authorize URL.
	Scopes []string

	// State is the CSRF value sent to the provider. Assigned by the flow
	// right before BeginAuth; round-tripped via the callback query string.
	State string

	// IsMobile switches providers that support it to their mobile display
	// variant (e.g. facebook display=touch).
	IsMobile bool

	// Identifier is the user-supplied OpenID identifier URI. Only meaningful
	// for discovery-capable providers.
	Identifier string

	// Extra carries provider-specific settings that have no common field.
	Extra map[string]string
}

// Merge returns a copy of s with non-zero fields of override applied.
func (s Settings) Merge(override Settings) Settings {
	out := s
	if override.ClientKey != "" {
		out.ClientKey = override.ClientKey
	}
	if override.ClientSecret != "" {
		out.ClientSecret = override.ClientSecret
	}
	if override.CallbackURL != "" {
		out.CallbackURL = override.CallbackURL
	}
	if len(override.Scopes) > 0 {
		out.Scopes = override.Scopes
	}
	if override.State != "" {
		out.State = override.State
	}
	if override.IsMobile {
		out.IsMobile = true
	}
	if override.Identifier != "" {
		out.Identifier = override.Identifier
	}
	if len(override.Extra) > 0 {
		merged := make(map[string]string, len(s.Extra)+len(override.Extra))
		for k, v := range s.Extra {
			merged[k] = v
		}
		for k, v := range override.Extra {
			merged[k] = v
		}
		out.Extra = merged
	}
	return out
}

// AccessToken is the provider-issued credential obtained from a successful
// token exchange. Fields that a provider does not issue stay zero.
type AccessToken struct {
	// Token is the access token (OAuth2), the token half of the OAuth1
	// credential pair, or the verified claimed identifier for OpenID.
	Token string

	// Secret is the OAuth1 token secret. Empty for OAuth2 and OpenID.
	Secret string

	RefreshToken string

	// IDToken is the OpenID Connect id_token, when the provider returns one.
	IDToken string

	// ExpiresAt is zero when the provider does not report an expiry.
	ExpiresAt time.Time
}

// UserInformation is the normalized identity projection. Fields the provider
// does not supply stay zero; nothing is ever fabricated.
type UserInformation struct {
	ID            string
	Name          string
	UserName      string
	Email         string
	EmailVerified bool
	Gender        string
	Locale        string
	Picture       string
}

// AuthenticatedClient is the aggregate handed to the caller after a
// successful CompleteAuth. It is constructed exactly once and never mutated
// by the library afterwards.
type AuthenticatedClient struct {
	// ID correlates this authentication result in host logs and audit trails.
	ID uuid.UUID

	// Provider is the registry key that produced this client.
	Provider string

	AccessToken AccessToken
	User        UserInformation

	// RawIdentity is the provider's identity payload as received, for
	// provider-specific extensions the normalized projection drops.
	RawIdentity json.RawMessage

	// ReturnTo is the URL the user wanted before the login round trip, as
	// recovered from the state token. Empty when none was embedded.
	ReturnTo string

	CreatedAt time.Time
}

// Redirect is the outcome of BeginAuth: the URL the caller must redirect the
// user to, plus values the provider needs back on the second leg (e.g. the
// OAuth1 request-token secret). RoundTrip never leaves the caller's trust
// boundary: it is embedded into the signed kept half of the CSRF token.
type Redirect struct {
	URL       string
	RoundTrip map[string]string
}

// Callback bundles what the provider sent back (the callback query string)
// with what was recovered from the CSRF kept half.
type Callback struct {
	Query     url.Values
	RoundTrip map[string]string
}

// Get returns the named query parameter, or "" when absent.
func (c Callback) Get(key string) string {
	if c.Query == nil {
		return ""
	}
	return c.Query.Get(key)
}
