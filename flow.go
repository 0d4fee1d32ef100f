package authkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/csrf"
	"github.com/dmitrymomot/authkit/logger"
	"github.com/dmitrymomot/authkit/statestore"
)

// replayTTL is how long a consumed state token is remembered when replay
// protection is enabled. It outlives the state token itself, so a replayed
// callback is rejected for being used rather than for being expired.
const replayTTL = 30 * time.Minute

// Flow is the authentication orchestrator. It owns the provider-independent
// parts of the dance: registry lookup, CSRF state issue and validation,
// optional replay protection, and the aggregation of the final result. All
// wire-format knowledge stays inside the providers.
//
// A Flow is safe for concurrent use; each Begin/Complete call is independent.
type Flow struct {
	registry *Registry
	states   *csrf.Manager
	log      *slog.Logger
	timeout  time.Duration
	replay   statestore.Store
}

// FlowOption configures a Flow during construction.
type FlowOption func(*Flow)

// WithLogger sets the logger. Default discards everything.
func WithLogger(log *slog.Logger) FlowOption {
	return func(f *Flow) {
		if log != nil {
			f.log = log
		}
	}
}

// WithTimeout bounds each Begin/Complete call, covering every outbound
// request the providers make within it. Default is 30 seconds.
func WithTimeout(timeout time.Duration) FlowOption {
	return func(f *Flow) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithReplayProtection records consumed state tokens in the store so a
// captured callback URL cannot complete authentication twice. Without it,
// state validation is purely cryptographic and a token is valid until it
// expires.
func WithReplayProtection(store statestore.Store) FlowOption {
	return func(f *Flow) {
		f.replay = store
	}
}

// NewFlow creates the orchestrator over a populated registry.
func NewFlow(registry *Registry, states *csrf.Manager, opts ...FlowOption) (*Flow, error) {
	if registry == nil || states == nil {
		return nil, fmt.Errorf("flow: registry and state manager are required: %w", ErrInvalidSettings)
	}
	f := &Flow{
		registry: registry,
		states:   states,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// BeginResult is the outcome of BeginAuth. The caller redirects the user to
// RedirectURL and persists State.ToKeep out-of-band (cookie or session);
// State.ToSend is already embedded in the redirect.
type BeginResult struct {
	RedirectURL string
	State       csrf.Token
}

type beginOptions struct {
	override Settings
	returnTo string
}

// BeginOption adjusts a single BeginAuth call.
type BeginOption func(*beginOptions)

// WithCallbackURL overrides the registered callback URL for this attempt.
func WithCallbackURL(callbackURL string) BeginOption {
	return func(o *beginOptions) {
		o.override.CallbackURL = callbackURL
	}
}

// WithScopes overrides the registered scopes for this attempt.
func WithScopes(scopes ...string) BeginOption {
	return func(o *beginOptions) {
		o.override.Scopes = scopes
	}
}

// WithMobile requests the provider's mobile display variant, where supported.
func WithMobile() BeginOption {
	return func(o *beginOptions) {
		o.override.IsMobile = true
	}
}

// WithIdentifier sets the user-supplied identifier for discovery-capable
// providers.
func WithIdentifier(identifier string) BeginOption {
	return func(o *beginOptions) {
		o.override.Identifier = identifier
	}
}

// WithReturnTo embeds a URL to restore after completion. It is signed into
// the kept half of the state token and surfaces on AuthenticatedClient.
func WithReturnTo(returnTo string) BeginOption {
	return func(o *beginOptions) {
		o.returnTo = returnTo
	}
}

// WithSettings merges a full settings override on top of the registered
// defaults for this attempt.
func WithSettings(settings Settings) BeginOption {
	return func(o *beginOptions) {
		o.override = o.override.Merge(settings)
	}
}

// BeginAuth resolves the provider, issues a state token, and asks the
// provider for its authorize redirect. Any round-trip values the provider
// produces are sealed into the kept half of the state token.
func (f *Flow) BeginAuth(ctx context.Context, providerKey string, opts ...BeginOption) (*BeginResult, error) {
	var o beginOptions
	for _, opt := range opts {
		opt(&o)
	}

	provider, defaults, err := f.registry.Resolve(providerKey)
	if err != nil {
		return nil, err
	}
	settings := defaults.Merge(o.override)

	sent, err := f.states.NewState()
	if err != nil {
		return nil, err
	}
	settings.State = sent

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	started := time.Now()
	redirect, err := provider.BeginAuth(ctx, settings)
	if err != nil {
		return nil, err
	}

	kept, err := f.states.Seal(sent, csrf.Payload{
		ReturnTo:  o.returnTo,
		RoundTrip: redirect.RoundTrip,
	})
	if err != nil {
		return nil, err
	}

	f.log.DebugContext(ctx, "authentication started",
		logger.Component("flow"),
		logger.Provider(provider.Name()),
		logger.Duration(time.Since(started)),
	)

	return &BeginResult{
		RedirectURL: redirect.URL,
		State:       csrf.Token{ToSend: sent, ToKeep: kept},
	}, nil
}

type completeOptions struct {
	override  Settings
	skipState bool
}

// CompleteOption adjusts a single CompleteAuth call.
type CompleteOption func(*completeOptions)

// SkipStateValidation disables the CSRF check for this completion. This
// removes the forgery protection of the whole flow and exists only for
// providers that cannot round-trip a state value; every use is logged at
// WARN.
func SkipStateValidation() CompleteOption {
	return func(o *completeOptions) {
		o.skipState = true
	}
}

// WithExchangeSettings merges a settings override for the exchange and
// identity-fetch legs. Must mirror any override passed to BeginAuth, since
// providers verify the callback URL matches the one authorized.
func WithExchangeSettings(settings Settings) CompleteOption {
	return func(o *completeOptions) {
		o.override = o.override.Merge(settings)
	}
}

// CompleteAuth finishes the dance with the provider's callback query. The
// CSRF state is validated before any outbound call; only then is the
// authorization artifact exchanged and the identity fetched.
func (f *Flow) CompleteAuth(ctx context.Context, providerKey string, query url.Values, keptToken string, opts ...CompleteOption) (*AuthenticatedClient, error) {
	var o completeOptions
	for _, opt := range opts {
		opt(&o)
	}

	provider, defaults, err := f.registry.Resolve(providerKey)
	if err != nil {
		return nil, err
	}

	// The timeout covers every outbound call this completion makes, the
	// replay-protection store included.
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cb := Callback{Query: query}
	if err := deniedByProvider(cb); err != nil {
		return nil, err
	}

	var returnTo string
	if o.skipState {
		f.log.WarnContext(ctx, "state validation skipped by caller",
			logger.Component("flow"),
			logger.Provider(provider.Name()),
		)
	} else {
		payload, err := f.states.Validate(keptToken, cb.Get("state"))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCsrfValidationFailed, err)
		}
		cb.RoundTrip = payload.RoundTrip
		returnTo = payload.ReturnTo

		if f.replay != nil {
			if err := f.markConsumed(ctx, cb.Get("state")); err != nil {
				return nil, err
			}
		}
	}

	settings := defaults.Merge(o.override)
	started := time.Now()

	token, err := provider.Exchange(ctx, settings, cb)
	if err != nil {
		return nil, err
	}
	user, raw, err := provider.FetchIdentity(ctx, settings, token, cb)
	if err != nil {
		return nil, err
	}

	client := &AuthenticatedClient{
		ID:          uuid.New(),
		Provider:    normalizeKey(providerKey),
		AccessToken: *token,
		User:        *user,
		RawIdentity: raw,
		ReturnTo:    returnTo,
		CreatedAt:   time.Now(),
	}

	f.log.InfoContext(ctx, "authentication completed",
		logger.Component("flow"),
		logger.Provider(client.Provider),
		logger.AuthID(client.ID),
		logger.Duration(time.Since(started)),
	)
	return client, nil
}

// markConsumed records the state token as used. ErrKeyExists means this
// exact callback was completed before.
func (f *Flow) markConsumed(ctx context.Context, sent string) error {
	err := f.replay.SetNX(ctx, "consumed:"+sent, "1", replayTTL)
	switch {
	case errors.Is(err, statestore.ErrKeyExists):
		return fmt.Errorf("state %q: %w", sent, ErrStateReplayed)
	case err != nil:
		return fmt.Errorf("replay check: %w", err)
	}
	return nil
}

// deniedByProvider maps the provider error parameters that signal the user
// declined consent. Anything else carried in the error parameter is a
// malformed callback rather than a denial.
func deniedByProvider(cb Callback) error {
	switch cb.Get("error") {
	case "":
	case "access_denied", "user_denied", "consent_required":
		return fmt.Errorf("provider reported %q: %w", cb.Get("error"), ErrCallbackDenied)
	default:
		return fmt.Errorf("provider reported error %q: %w", cb.Get("error"), ErrMissingCallbackParameter)
	}
	// Twitter reports denial through a bare denied=<request token> parameter.
	if cb.Get("denied") != "" {
		return fmt.Errorf("request token was denied: %w", ErrCallbackDenied)
	}
	if cb.Get("openid.mode") == "cancel" {
		return fmt.Errorf("openid assertion cancelled: %w", ErrCallbackDenied)
	}
	return nil
}
