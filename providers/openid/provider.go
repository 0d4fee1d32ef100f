package openid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/authkit"
)

var _ authkit.Provider = (*Provider)(nil)

const (
	openidNS     = "http://specs.openid.net/auth/2.0"
	sregNS       = "http://openid.net/extensions/sreg/1.1"
	roundTripOP  = "op_endpoint"
	identitySel  = "http://specs.openid.net/auth/2.0/identifier_select"
	verifyOKLine = "is_valid:true"
)

// Config holds the OpenID settings loaded from the environment. There are no
// client credentials; the identifier is the whole configuration.
type Config struct {
	Identifier  string `env:"AUTHKIT_OPENID_IDENTIFIER,required"`
	CallbackURL string `env:"AUTHKIT_OPENID_CALLBACK_URL,required"`
}

// Settings converts the config into registry default settings.
func (c Config) Settings() authkit.Settings {
	return authkit.Settings{
		Identifier:  c.Identifier,
		CallbackURL: c.CallbackURL,
	}
}

// Provider implements OpenID 2.0 with YADIS discovery.
type Provider struct {
	name   string
	client *http.Client
}

// Option configures a Provider during construction.
type Option func(*Provider)

// WithHTTPClient overrides the HTTP client used for discovery and callback
// verification. The client must not follow redirects itself; discovery
// follows them with its own depth bound.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
	}
}

// New creates the OpenID provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		name: "openid",
		client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
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

// Capabilities marks OpenID as discovery-based: no client credentials, no
// scopes, the endpoint comes from the identifier.
func (p *Provider) Capabilities() authkit.Capability {
	return authkit.CapDiscovery
}

// DefaultSettings returns empty defaults.
func (p *Provider) DefaultSettings() authkit.Settings {
	return authkit.Settings{}
}

// BeginAuth discovers the authentication endpoint for the configured
// identifier and builds a checkid_setup redirect. The discovered endpoint is
// returned as round-trip data so the callback verification can be pinned to
// it.
func (p *Provider) BeginAuth(ctx context.Context, settings authkit.Settings) (*authkit.Redirect, error) {
	if settings.Identifier == "" || settings.CallbackURL == "" {
		return nil, fmt.Errorf("%s: identifier and callback url are required: %w", p.name, authkit.ErrInvalidSettings)
	}

	endpoint, err := p.Discover(ctx, settings.Identifier)
	if err != nil {
		return nil, authkit.NewAuthError(p.name, 0, fmt.Errorf("discover endpoint: %w", err))
	}

	returnTo := settings.CallbackURL
	if settings.State != "" {
		withState, err := appendState(returnTo, settings.State)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid callback url: %w", p.name, authkit.ErrInvalidSettings)
		}
		returnTo = withState
	}

	realm, err := realmOf(settings.CallbackURL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid callback url: %w", p.name, authkit.ErrInvalidSettings)
	}

	q := url.Values{}
	q.Set("openid.ns", openidNS)
	q.Set("openid.mode", "checkid_setup")
	q.Set("openid.claimed_id", identitySel)
	q.Set("openid.identity", identitySel)
	q.Set("openid.return_to", returnTo)
	q.Set("openid.realm", realm)
	q.Set("openid.ns.sreg", sregNS)
	q.Set("openid.sreg.required", "email")
	q.Set("openid.sreg.optional", "fullname,nickname,language,gender")

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}

	return &authkit.Redirect{
		URL:       endpoint + sep + q.Encode(),
		RoundTrip: map[string]string{roundTripOP: endpoint},
	}, nil
}

// Exchange verifies the positive assertion with the provider via a
// check_authentication POST. OpenID issues no access token; the verified
// claimed identifier takes the token slot.
func (p *Provider) Exchange(ctx context.Context, _ authkit.Settings, cb authkit.Callback) (*authkit.AccessToken, error) {
	switch mode := cb.Get("openid.mode"); mode {
	case "id_res":
	case "cancel":
		return nil, fmt.Errorf("%s: user cancelled at the provider: %w", p.name, authkit.ErrCallbackDenied)
	default:
		return nil, fmt.Errorf("%s: callback mode %q is not a positive assertion: %w", p.name, mode, authkit.ErrMissingCallbackParameter)
	}

	claimed := cb.Get("openid.claimed_id")
	if claimed == "" {
		return nil, fmt.Errorf("%s: callback has no openid.claimed_id: %w", p.name, authkit.ErrMissingCallbackParameter)
	}

	// Verify against the endpoint discovered at begin time, never one the
	// callback names unilaterally.
	endpoint := cb.RoundTrip[roundTripOP]
	if endpoint == "" {
		endpoint = cb.Get("openid.op_endpoint")
	} else if cbEndpoint := cb.Get("openid.op_endpoint"); cbEndpoint != "" && cbEndpoint != endpoint {
		return nil, fmt.Errorf("%s: callback endpoint does not match discovered endpoint: %w", p.name, authkit.ErrCsrfValidationFailed)
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%s: no endpoint to verify the assertion against: %w", p.name, authkit.ErrMissingCallbackParameter)
	}

	valid, err := p.checkAuthentication(ctx, endpoint, cb.Query)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, authkit.NewAuthError(p.name, http.StatusUnauthorized,
			fmt.Errorf("provider rejected the assertion for %s", claimed))
	}

	return &authkit.AccessToken{Token: claimed}, nil
}

// FetchIdentity projects the identity from the SReg/AX fields the provider
// signed into the callback. No network call is made.
func (p *Provider) FetchIdentity(_ context.Context, _ authkit.Settings, token *authkit.AccessToken, cb authkit.Callback) (*authkit.UserInformation, []byte, error) {
	fields := map[string]string{}
	for key, values := range cb.Query {
		if strings.HasPrefix(key, "openid.") && len(values) > 0 {
			fields[key] = values[0]
		}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, authkit.NewAuthError(p.name, 0, err)
	}

	return &authkit.UserInformation{
		ID:       token.Token,
		Name:     attribute(cb, "fullname"),
		UserName: attribute(cb, "nickname"),
		Email:    attribute(cb, "email"),
		Gender:   attribute(cb, "gender"),
		Locale:   attribute(cb, "language"),
	}, raw, nil
}

// checkAuthentication replays the assertion parameters to the provider with
// mode=check_authentication and reads the is_valid key-value answer.
func (p *Provider) checkAuthentication(ctx context.Context, endpoint string, query url.Values) (bool, error) {
	form := url.Values{}
	for key, values := range query {
		if strings.HasPrefix(key, "openid.") && len(values) > 0 {
			form.Set(key, values[0])
		}
	}
	form.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, authkit.NewAuthError(p.name, 0, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return false, authkit.NewAuthError(p.name, 0, fmt.Errorf("check_authentication: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, authkit.NewAuthError(p.name, 0, fmt.Errorf("check_authentication: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return false, authkit.NewAuthError(p.name, resp.StatusCode,
			fmt.Errorf("check_authentication returned status %d", resp.StatusCode))
	}

	for _, line := range strings.Split(string(body), "\n") {
		if strings.TrimSpace(line) == verifyOKLine {
			return true, nil
		}
	}
	return false, nil
}

// attribute reads an identity field from the callback, preferring SReg and
// falling back to the AX value form.
func attribute(cb authkit.Callback, name string) string {
	if v := cb.Get("openid.sreg." + name); v != "" {
		return v
	}
	return cb.Get("openid.ax.value." + name)
}

func realmOf(callbackURL string) (string, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("callback url %q has no scheme or host", callbackURL)
	}
	return u.Scheme + "://" + u.Host, nil
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
