package oauth2ac

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/authkit"
)

var _ authkit.Provider = (*Provider)(nil)

// MapFunc projects a provider's raw identity payload into the normalized
// form. Implementations must tolerate partial payloads: unmapped fields stay
// zero, decoding never fails on missing keys.
type MapFunc func(raw []byte) (*authkit.UserInformation, error)

// EnrichFunc runs after the primary identity fetch with a bearer-authorized
// client, for providers that spread identity over several endpoints (GitHub
// keeps verified emails behind /user/emails).
type EnrichFunc func(ctx context.Context, client *http.Client, accessToken string, user *authkit.UserInformation) error

// Provider is the shared OAuth2 authorization-code engine.
type Provider struct {
	name            string
	endpoint        oauth2.Endpoint
	identityURL     string
	mapIdentity     MapFunc
	enrich          EnrichFunc
	defaultScopes   []string
	scopeSeparator  string
	authParams      url.Values // always appended to the authorize URL
	mobileParams    url.Values // appended only when settings.IsMobile
	idTokenFallback bool
	caps            authkit.Capability
	client          *http.Client
}

// Option configures a Provider during construction.
type Option func(*Provider)

// WithDefaultScopes sets the scopes requested when the caller supplies none.
func WithDefaultScopes(scopes ...string) Option {
	return func(p *Provider) {
		p.defaultScopes = scopes
	}
}

// WithScopeSeparator overrides the string joining scopes in the authorize
// URL. Default is a space; some providers require a comma.
func WithScopeSeparator(sep string) Option {
	return func(p *Provider) {
		p.scopeSeparator = sep
	}
}

// WithAuthParams appends fixed parameters to every authorize URL
// (e.g. access_type=offline).
func WithAuthParams(params url.Values) Option {
	return func(p *Provider) {
		p.authParams = params
	}
}

// WithMobileParams appends parameters to the authorize URL when the mobile
// display variant is requested, and declares the mobile capability.
func WithMobileParams(params url.Values) Option {
	return func(p *Provider) {
		p.mobileParams = params
		p.caps |= authkit.CapMobileDisplay
	}
}

// WithIdentityEnricher registers a secondary identity fetch.
func WithIdentityEnricher(fn EnrichFunc) Option {
	return func(p *Provider) {
		p.enrich = fn
	}
}

// WithIDTokenFallback fills normalized fields the identity endpoint left
// empty from the id_token claims, when the provider issued one.
func WithIDTokenFallback() Option {
	return func(p *Provider) {
		p.idTokenFallback = true
	}
}

// WithHTTPClient overrides the HTTP client used for identity fetches and the
// token exchange. Default carries a 10 second timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
	}
}

// New creates an authorization-code provider. Presets in this package cover
// the common networks; New is the extension point for everything else.
func New(name string, endpoint oauth2.Endpoint, identityURL string, mapIdentity MapFunc, opts ...Option) *Provider {
	p := &Provider{
		name:           name,
		endpoint:       endpoint,
		identityURL:    identityURL,
		mapIdentity:    mapIdentity,
		scopeSeparator: " ",
		caps:           authkit.CapScopes | authkit.CapClientCredentials,
		client:         &http.Client{Timeout: 10 * time.Second},
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

// Capabilities returns the provider's optional behaviors.
func (p *Provider) Capabilities() authkit.Capability {
	return p.caps
}

// DefaultSettings returns the provider's default scopes.
func (p *Provider) DefaultSettings() authkit.Settings {
	return authkit.Settings{Scopes: p.defaultScopes}
}

// BeginAuth builds the authorization redirect. The URL is assembled manually
// so the scope separator and display parameters stay byte-exact per provider.
func (p *Provider) BeginAuth(_ context.Context, settings authkit.Settings) (*authkit.Redirect, error) {
	if settings.ClientKey == "" || settings.CallbackURL == "" {
		return nil, fmt.Errorf("%s: client key and callback url are required: %w", p.name, authkit.ErrInvalidSettings)
	}

	u, err := url.Parse(p.endpoint.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse authorize endpoint: %w", p.name, err)
	}

	scopes := settings.Scopes
	if len(scopes) == 0 {
		scopes = p.defaultScopes
	}

	q := u.Query()
	q.Set("client_id", settings.ClientKey)
	q.Set("redirect_uri", settings.CallbackURL)
	q.Set("response_type", "code")
	if len(scopes) > 0 {
		q.Set("scope", strings.Join(scopes, p.scopeSeparator))
	}
	if settings.State != "" {
		q.Set("state", settings.State)
	}
	for k, vs := range p.authParams {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	if settings.IsMobile {
		for k, vs := range p.mobileParams {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
	}
	u.RawQuery = q.Encode()

	return &authkit.Redirect{URL: u.String()}, nil
}

// Exchange converts the callback's authorization code into an access token.
func (p *Provider) Exchange(ctx context.Context, settings authkit.Settings, cb authkit.Callback) (*authkit.AccessToken, error) {
	code := cb.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%s: callback has no code parameter: %w", p.name, authkit.ErrMissingCallbackParameter)
	}
	if settings.ClientKey == "" || settings.ClientSecret == "" {
		return nil, fmt.Errorf("%s: client credentials are required: %w", p.name, authkit.ErrInvalidSettings)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	tok, err := p.oauth2Config(settings).Exchange(ctx, code)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			return nil, authkit.NewAuthError(p.name, rErr.Response.StatusCode, err)
		}
		return nil, authkit.NewAuthError(p.name, 0, err)
	}

	access := &authkit.AccessToken{
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		access.ExpiresAt = tok.Expiry
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		access.IDToken = idToken
	}
	return access, nil
}

// FetchIdentity issues a bearer-authenticated GET to the identity endpoint
// and maps known fields. Partial payloads are fine; transport failures and
// non-200 statuses surface as authkit.AuthError.
func (p *Provider) FetchIdentity(ctx context.Context, _ authkit.Settings, token *authkit.AccessToken, _ authkit.Callback) (*authkit.UserInformation, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.identityURL, nil)
	if err != nil {
		return nil, nil, authkit.NewAuthError(p.name, 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
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

	if p.enrich != nil {
		if err := p.enrich(ctx, p.client, token.Token, user); err != nil {
			return nil, nil, authkit.NewAuthError(p.name, 0, err)
		}
	}
	if p.idTokenFallback && token.IDToken != "" {
		fillFromIDToken(token.IDToken, user)
	}
	return user, raw, nil
}

func (p *Provider) oauth2Config(settings authkit.Settings) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     settings.ClientKey,
		ClientSecret: settings.ClientSecret,
		RedirectURL:  settings.CallbackURL,
		Endpoint:     p.endpoint,
	}
}
