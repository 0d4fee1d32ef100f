package oauth1a

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/dmitrymomot/authkit"
)

var _ authkit.Provider = (*Provider)(nil)

// RoundTrip keys for the values that must survive the redirect.
const (
	roundTripToken  = "request_token"
	roundTripSecret = "request_secret"
)

// MapFunc projects the provider's raw identity payload into the normalized form.
type MapFunc func(raw []byte) (*authkit.UserInformation, error)

// Provider is the shared OAuth1 engine.
type Provider struct {
	name        string
	endpoint    oauth1.Endpoint
	identityURL string
	mapIdentity MapFunc
	client      *http.Client
}

// Option configures a Provider during construction.
type Option func(*Provider)

// WithHTTPClient overrides the HTTP client used for every outbound call:
// the request-token and access-token POSTs as well as the identity fetch.
// Default carries a 10 second timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
	}
}

// New creates an OAuth1 provider.
func New(name string, endpoint oauth1.Endpoint, identityURL string, mapIdentity MapFunc, opts ...Option) *Provider {
	p := &Provider{
		name:        name,
		endpoint:    endpoint,
		identityURL: identityURL,
		mapIdentity: mapIdentity,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Capabilities returns the provider's optional behaviors. OAuth1 providers
// have no scope concept.
func (p *Provider) Capabilities() authkit.Capability {
	return authkit.CapClientCredentials
}

// DefaultSettings returns empty defaults; OAuth1 has nothing to default.
func (p *Provider) DefaultSettings() authkit.Settings {
	return authkit.Settings{}
}

// BeginAuth obtains a request token and builds the authorize redirect. The
// request-token pair is returned as round-trip data for the flow to seal
// into the CSRF kept half.
func (p *Provider) BeginAuth(_ context.Context, settings authkit.Settings) (*authkit.Redirect, error) {
	if settings.ClientKey == "" || settings.ClientSecret == "" || settings.CallbackURL == "" {
		return nil, fmt.Errorf("%s: client credentials and callback url are required: %w", p.name, authkit.ErrInvalidSettings)
	}

	// OAuth1 has no state parameter, so the state value rides back on the
	// callback URL itself.
	if settings.State != "" {
		withState, err := appendState(settings.CallbackURL, settings.State)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid callback url: %w", p.name, authkit.ErrInvalidSettings)
		}
		settings.CallbackURL = withState
	}

	cfg := p.config(settings)
	requestToken, requestSecret, err := cfg.RequestToken()
	if err != nil {
		return nil, authkit.NewAuthError(p.name, 0, fmt.Errorf("obtain request token: %w", err))
	}

	authorizeURL, err := cfg.AuthorizationURL(requestToken)
	if err != nil {
		return nil, authkit.NewAuthError(p.name, 0, fmt.Errorf("build authorize url: %w", err))
	}

	return &authkit.Redirect{
		URL: authorizeURL.String(),
		RoundTrip: map[string]string{
			roundTripToken:  requestToken,
			roundTripSecret: requestSecret,
		},
	}, nil
}

// Exchange converts the callback's token/verifier pair into an access token,
// using the request secret recovered from the CSRF kept half.
func (p *Provider) Exchange(_ context.Context, settings authkit.Settings, cb authkit.Callback) (*authkit.AccessToken, error) {
	token := cb.Get("oauth_token")
	verifier := cb.Get("oauth_verifier")
	if token == "" || verifier == "" {
		return nil, fmt.Errorf("%s: callback has no oauth_token/oauth_verifier: %w", p.name, authkit.ErrMissingCallbackParameter)
	}

	requestSecret := cb.RoundTrip[roundTripSecret]
	if requestSecret == "" {
		return nil, fmt.Errorf("%s: request secret not recovered from state: %w", p.name, authkit.ErrCsrfValidationFailed)
	}
	// The token coming back must be the one this flow sent out.
	if want := cb.RoundTrip[roundTripToken]; want != "" &&
		subtle.ConstantTimeCompare([]byte(want), []byte(token)) != 1 {
		return nil, fmt.Errorf("%s: callback token does not match issued request token: %w", p.name, authkit.ErrCsrfValidationFailed)
	}

	accessToken, accessSecret, err := p.config(settings).AccessToken(token, requestSecret, verifier)
	if err != nil {
		return nil, authkit.NewAuthError(p.name, 0, fmt.Errorf("exchange request token: %w", err))
	}

	return &authkit.AccessToken{Token: accessToken, Secret: accessSecret}, nil
}

// FetchIdentity issues a signed GET to the identity endpoint.
func (p *Provider) FetchIdentity(ctx context.Context, settings authkit.Settings, token *authkit.AccessToken, _ authkit.Callback) (*authkit.UserInformation, []byte, error) {
	ctx = context.WithValue(ctx, oauth1.HTTPClient, p.client)
	client := p.config(settings).Client(ctx, oauth1.NewToken(token.Token, token.Secret))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.identityURL, nil)
	if err != nil {
		return nil, nil, authkit.NewAuthError(p.name, 0, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, authkit.NewAuthError(p.name, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, authkit.NewAuthError(p.name, 0, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, authkit.NewAuthError(p.name, resp.StatusCode,
			fmt.Errorf("identity endpoint returned status %d", resp.StatusCode))
	}

	user, err := p.mapIdentity(raw)
	if err != nil {
		return nil, nil, authkit.NewAuthError(p.name, 0, err)
	}
	return user, raw, nil
}

func (p *Provider) config(settings authkit.Settings) *oauth1.Config {
	return &oauth1.Config{
		ConsumerKey:    settings.ClientKey,
		ConsumerSecret: settings.ClientSecret,
		CallbackURL:    settings.CallbackURL,
		Endpoint:       p.endpoint,
		HTTPClient:     p.client,
	}
}

func appendState(callbackURL, state string) (string, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
