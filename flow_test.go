package authkit

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/csrf"
	"github.com/dmitrymomot/authkit/statestore"
)

// deadlineRecordingStore notes whether SetNX was called with a bounded context.
type deadlineRecordingStore struct {
	*statestore.MemoryStore
	hadDeadline bool
}

func (s *deadlineRecordingStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) error {
	_, s.hadDeadline = ctx.Deadline()
	return s.MemoryStore.SetNX(ctx, key, value, ttl)
}

func newTestFlow(t *testing.T, provider Provider, opts ...FlowOption) (*Flow, *csrf.Manager) {
	t.Helper()

	registry := NewRegistry()
	require.NoError(t, registry.Register("mock", provider, Settings{
		ClientKey:    "key",
		ClientSecret: "secret",
		CallbackURL:  "http://foo.com/cb",
	}))

	states, err := csrf.NewManager("test-secret")
	require.NoError(t, err)

	flow, err := NewFlow(registry, states, opts...)
	require.NoError(t, err)
	return flow, states
}

func TestNewFlow(t *testing.T) {
	t.Parallel()

	t.Run("requires registry and state manager", func(t *testing.T) {
		t.Parallel()
		states, err := csrf.NewManager("s")
		require.NoError(t, err)

		_, err = NewFlow(nil, states)
		assert.ErrorIs(t, err, ErrInvalidSettings)

		_, err = NewFlow(NewRegistry(), nil)
		assert.ErrorIs(t, err, ErrInvalidSettings)
	})
}

func TestFlow_BeginAuth(t *testing.T) {
	t.Run("issues state and seals provider round-trip data", func(t *testing.T) {
		provider := new(MockProvider)
		provider.On("Name").Return("mock").Maybe()

		var seen Settings
		provider.On("BeginAuth", mock.Anything, mock.MatchedBy(func(s Settings) bool {
			seen = s
			return s.State != ""
		})).Return(&Redirect{
			URL:       "https://provider.test/auth",
			RoundTrip: map[string]string{"request_secret": "rs"},
		}, nil)

		flow, states := newTestFlow(t, provider)
		result, err := flow.BeginAuth(context.Background(), "mock", WithReturnTo("/dashboard"))
		require.NoError(t, err)

		assert.Equal(t, "https://provider.test/auth", result.RedirectURL)
		assert.Equal(t, seen.State, result.State.ToSend)
		assert.Equal(t, "key", seen.ClientKey)

		payload, err := states.Validate(result.State.ToKeep, result.State.ToSend)
		require.NoError(t, err)
		assert.Equal(t, "/dashboard", payload.ReturnTo)
		assert.Equal(t, map[string]string{"request_secret": "rs"}, payload.RoundTrip)

		provider.AssertExpectations(t)
	})

	t.Run("per-call overrides reach the provider", func(t *testing.T) {
		provider := new(MockProvider)
		provider.On("Name").Return("mock").Maybe()
		provider.On("BeginAuth", mock.Anything, mock.MatchedBy(func(s Settings) bool {
			return s.CallbackURL == "http://override.com/cb" && len(s.Scopes) == 1 && s.IsMobile
		})).Return(&Redirect{URL: "https://provider.test/auth"}, nil)

		flow, _ := newTestFlow(t, provider)
		_, err := flow.BeginAuth(context.Background(), "mock",
			WithCallbackURL("http://override.com/cb"),
			WithScopes("email"),
			WithMobile(),
		)
		require.NoError(t, err)
		provider.AssertExpectations(t)
	})

	t.Run("unknown provider", func(t *testing.T) {
		flow, _ := newTestFlow(t, new(MockProvider))
		_, err := flow.BeginAuth(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("provider failure propagates", func(t *testing.T) {
		provider := new(MockProvider)
		provider.On("BeginAuth", mock.Anything, mock.Anything).
			Return(nil, NewAuthError("mock", 502, assert.AnError))

		flow, _ := newTestFlow(t, provider)
		_, err := flow.BeginAuth(context.Background(), "mock")

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, 502, authErr.StatusCode)
	})
}

func TestFlow_CompleteAuth(t *testing.T) {
	begin := func(t *testing.T, flow *Flow) *BeginResult {
		t.Helper()
		result, err := flow.BeginAuth(context.Background(), "mock", WithReturnTo("/after"))
		require.NoError(t, err)
		return result
	}

	callbackQuery := func(state string) url.Values {
		return url.Values{"code": {"X"}, "state": {state}}
	}

	t.Run("full round trip aggregates the result", func(t *testing.T) {
		provider := new(MockProvider)
		provider.On("Name").Return("mock").Maybe()
		provider.On("BeginAuth", mock.Anything, mock.Anything).Return(&Redirect{
			URL:       "https://provider.test/auth",
			RoundTrip: map[string]string{"k": "v"},
		}, nil)
		provider.On("Exchange", mock.Anything, mock.Anything, mock.MatchedBy(func(cb Callback) bool {
			return cb.Get("code") == "X" && cb.RoundTrip["k"] == "v"
		})).Return(&AccessToken{Token: "tok", RefreshToken: "ref"}, nil)
		provider.On("FetchIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&UserInformation{ID: "u-1", Email: "u@example.com"}, []byte(`{"id":"u-1"}`), nil)

		flow, _ := newTestFlow(t, provider)
		result := begin(t, flow)

		client, err := flow.CompleteAuth(context.Background(), "Mock",
			callbackQuery(result.State.ToSend), result.State.ToKeep)
		require.NoError(t, err)

		assert.Equal(t, "mock", client.Provider)
		assert.Equal(t, "tok", client.AccessToken.Token)
		assert.Equal(t, "u-1", client.User.ID)
		assert.Equal(t, `{"id":"u-1"}`, string(client.RawIdentity))
		assert.Equal(t, "/after", client.ReturnTo)
		assert.NotZero(t, client.ID)
		assert.WithinDuration(t, time.Now(), client.CreatedAt, time.Minute)

		provider.AssertExpectations(t)
	})

	t.Run("state mismatch fails before any provider call", func(t *testing.T) {
		provider := new(MockProvider)
		provider.On("Name").Return("mock").Maybe()
		provider.On("BeginAuth", mock.Anything, mock.Anything).
			Return(&Redirect{URL: "https://provider.test/auth"}, nil)

		flow, _ := newTestFlow(t, provider)
		result := begin(t, flow)

		_, err := flow.CompleteAuth(context.Background(), "mock",
			callbackQuery("not-the-issued-state"), result.State.ToKeep)
		assert.ErrorIs(t, err, ErrCsrfValidationFailed)

		provider.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything, mock.Anything)
		provider.AssertNotCalled(t, "FetchIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing kept token is a validation failure, not a skip", func(t *testing.T) {
		provider := new(MockProvider)
		provider.On("Name").Return("mock").Maybe()
		provider.On("BeginAuth", mock.Anything, mock.Anything).
			Return(&Redirect{URL: "https://provider.test/auth"}, nil)

		flow, _ := newTestFlow(t, provider)
		result := begin(t, flow)

		_, err := flow.CompleteAuth(context.Background(), "mock",
			callbackQuery(result.State.ToSend), "")
		assert.ErrorIs(t, err, ErrCsrfValidationFailed)
		provider.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("denied callbacks short-circuit", func(t *testing.T) {
		for name, query := range map[string]url.Values{
			"oauth2 access_denied": {"error": {"access_denied"}},
			"twitter denied":       {"denied": {"req-tok"}},
			"openid cancel":        {"openid.mode": {"cancel"}},
		} {
			t.Run(name, func(t *testing.T) {
				provider := new(MockProvider)
				provider.On("Name").Return("mock").Maybe()

				flow, _ := newTestFlow(t, provider)
				_, err := flow.CompleteAuth(context.Background(), "mock", query, "irrelevant")
				assert.ErrorIs(t, err, ErrCallbackDenied)
				provider.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("unrecognized provider error is a malformed callback", func(t *testing.T) {
		flow, _ := newTestFlow(t, new(MockProvider))
		_, err := flow.CompleteAuth(context.Background(), "mock",
			url.Values{"error": {"temporarily_unavailable"}}, "irrelevant")
		assert.ErrorIs(t, err, ErrMissingCallbackParameter)
	})

	t.Run("skip option bypasses validation and warns", func(t *testing.T) {
		provider := new(MockProvider)
		provider.On("Name").Return("mock").Maybe()
		provider.On("Exchange", mock.Anything, mock.Anything, mock.Anything).
			Return(&AccessToken{Token: "tok"}, nil)
		provider.On("FetchIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&UserInformation{ID: "u-1"}, []byte(`{}`), nil)

		var buf bytes.Buffer
		flow, _ := newTestFlow(t, provider, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

		client, err := flow.CompleteAuth(context.Background(), "mock",
			url.Values{"code": {"X"}}, "", SkipStateValidation())
		require.NoError(t, err)

		assert.Equal(t, "u-1", client.User.ID)
		assert.Contains(t, buf.String(), "state validation skipped")
		assert.Contains(t, buf.String(), "level=WARN")
	})

	t.Run("replay protection rejects a second completion", func(t *testing.T) {
		provider := new(MockProvider)
		provider.On("Name").Return("mock").Maybe()
		provider.On("BeginAuth", mock.Anything, mock.Anything).
			Return(&Redirect{URL: "https://provider.test/auth"}, nil)
		provider.On("Exchange", mock.Anything, mock.Anything, mock.Anything).
			Return(&AccessToken{Token: "tok"}, nil)
		provider.On("FetchIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&UserInformation{ID: "u-1"}, []byte(`{}`), nil)

		flow, _ := newTestFlow(t, provider, WithReplayProtection(statestore.NewMemoryStore()))
		result := begin(t, flow)

		_, err := flow.CompleteAuth(context.Background(), "mock",
			callbackQuery(result.State.ToSend), result.State.ToKeep)
		require.NoError(t, err)

		_, err = flow.CompleteAuth(context.Background(), "mock",
			callbackQuery(result.State.ToSend), result.State.ToKeep)
		assert.ErrorIs(t, err, ErrStateReplayed)
	})

	t.Run("replay check runs under the call timeout", func(t *testing.T) {
		provider := new(MockProvider)
		provider.On("Name").Return("mock").Maybe()
		provider.On("BeginAuth", mock.Anything, mock.Anything).
			Return(&Redirect{URL: "https://provider.test/auth"}, nil)
		provider.On("Exchange", mock.Anything, mock.Anything, mock.Anything).
			Return(&AccessToken{Token: "tok"}, nil)
		provider.On("FetchIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&UserInformation{ID: "u-1"}, []byte(`{}`), nil)

		store := &deadlineRecordingStore{MemoryStore: statestore.NewMemoryStore()}
		flow, _ := newTestFlow(t, provider, WithReplayProtection(store))
		result := begin(t, flow)

		_, err := flow.CompleteAuth(context.Background(), "mock",
			callbackQuery(result.State.ToSend), result.State.ToKeep)
		require.NoError(t, err)
		assert.True(t, store.hadDeadline, "SetNX must run under the flow's timeout context")
	})

	t.Run("exchange failure is not retried", func(t *testing.T) {
		provider := new(MockProvider)
		provider.On("Name").Return("mock").Maybe()
		provider.On("BeginAuth", mock.Anything, mock.Anything).
			Return(&Redirect{URL: "https://provider.test/auth"}, nil)
		provider.On("Exchange", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, NewAuthError("mock", 400, assert.AnError)).Once()

		flow, _ := newTestFlow(t, provider)
		result := begin(t, flow)

		_, err := flow.CompleteAuth(context.Background(), "mock",
			callbackQuery(result.State.ToSend), result.State.ToKeep)

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		provider.AssertNumberOfCalls(t, "Exchange", 1)
		provider.AssertNotCalled(t, "FetchIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
