package oauth1a_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit"
	"github.com/dmitrymomot/authkit/providers/oauth1a"
)

func mapTestIdentity(raw []byte) (*authkit.UserInformation, error) {
	return &authkit.UserInformation{ID: "u-1", Name: string(raw)}, nil
}

// fakeOAuth1Server serves the three legs of the OAuth1 dance.
func fakeOAuth1Server(t *testing.T) (*httptest.Server, oauth1.Endpoint) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/request_token", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), "OAuth")
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		_, _ = w.Write([]byte("oauth_token=req-tok&oauth_token_secret=req-sec&oauth_callback_confirmed=true"))
	})
	mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_verifier="verif-1"`)
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		_, _ = w.Write([]byte("oauth_token=acc-tok&oauth_token_secret=acc-sec"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, oauth1.Endpoint{
		RequestTokenURL: srv.URL + "/request_token",
		AuthorizeURL:    srv.URL + "/authorize",
		AccessTokenURL:  srv.URL + "/access_token",
	}
}

func TestProvider_BeginAuth(t *testing.T) {
	settings := authkit.Settings{
		ClientKey:    "consumer-key",
		ClientSecret: "consumer-secret",
		CallbackURL:  "http://foo.com/cb",
		State:        "state-1",
	}

	t.Run("obtains request token and builds authorize url", func(t *testing.T) {
		_, endpoint := fakeOAuth1Server(t)
		p := oauth1a.New("test", endpoint, "", mapTestIdentity)

		redirect, err := p.BeginAuth(context.Background(), settings)
		require.NoError(t, err)

		u, err := url.Parse(redirect.URL)
		require.NoError(t, err)
		assert.Equal(t, "/authorize", u.Path)
		assert.Equal(t, "req-tok", u.Query().Get("oauth_token"))

		assert.Equal(t, "req-tok", redirect.RoundTrip["request_token"])
		assert.Equal(t, "req-sec", redirect.RoundTrip["request_secret"])
	})

	t.Run("missing credentials fail fast", func(t *testing.T) {
		_, endpoint := fakeOAuth1Server(t)
		p := oauth1a.New("test", endpoint, "", mapTestIdentity)

		_, err := p.BeginAuth(context.Background(), authkit.Settings{CallbackURL: "http://foo.com/cb"})
		assert.ErrorIs(t, err, authkit.ErrInvalidSettings)
	})

	t.Run("request token call is bounded by the client timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(2 * time.Second)
			w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
			_, _ = w.Write([]byte("oauth_token=req-tok&oauth_token_secret=req-sec&oauth_callback_confirmed=true"))
		}))
		t.Cleanup(srv.Close)

		p := oauth1a.New("test", oauth1.Endpoint{
			RequestTokenURL: srv.URL + "/request_token",
			AuthorizeURL:    srv.URL + "/authorize",
			AccessTokenURL:  srv.URL + "/access_token",
		}, "", mapTestIdentity,
			oauth1a.WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))

		start := time.Now()
		_, err := p.BeginAuth(context.Background(), settings)

		var authErr *authkit.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Less(t, time.Since(start), time.Second, "slow endpoint must not stall past the client timeout")
	})

	t.Run("request token rejection surfaces as auth error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		t.Cleanup(srv.Close)

		p := oauth1a.New("test", oauth1.Endpoint{
			RequestTokenURL: srv.URL + "/request_token",
			AuthorizeURL:    srv.URL + "/authorize",
			AccessTokenURL:  srv.URL + "/access_token",
		}, "", mapTestIdentity)

		_, err := p.BeginAuth(context.Background(), settings)
		var authErr *authkit.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "test", authErr.Provider)
	})
}

func TestProvider_Exchange(t *testing.T) {
	settings := authkit.Settings{
		ClientKey:    "consumer-key",
		ClientSecret: "consumer-secret",
		CallbackURL:  "http://foo.com/cb",
	}

	t.Run("exchanges verifier for access token", func(t *testing.T) {
		_, endpoint := fakeOAuth1Server(t)
		p := oauth1a.New("test", endpoint, "", mapTestIdentity)

		tok, err := p.Exchange(context.Background(), settings, authkit.Callback{
			Query: url.Values{
				"oauth_token":    {"req-tok"},
				"oauth_verifier": {"verif-1"},
			},
			RoundTrip: map[string]string{
				"request_token":  "req-tok",
				"request_secret": "req-sec",
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "acc-tok", tok.Token)
		assert.Equal(t, "acc-sec", tok.Secret)
	})

	t.Run("access token call is bounded by the client timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(2 * time.Second)
			w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
			_, _ = w.Write([]byte("oauth_token=acc-tok&oauth_token_secret=acc-sec"))
		}))
		t.Cleanup(srv.Close)

		p := oauth1a.New("test", oauth1.Endpoint{
			RequestTokenURL: srv.URL + "/request_token",
			AuthorizeURL:    srv.URL + "/authorize",
			AccessTokenURL:  srv.URL + "/access_token",
		}, "", mapTestIdentity,
			oauth1a.WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))

		start := time.Now()
		_, err := p.Exchange(context.Background(), settings, authkit.Callback{
			Query: url.Values{
				"oauth_token":    {"req-tok"},
				"oauth_verifier": {"verif-1"},
			},
			RoundTrip: map[string]string{
				"request_token":  "req-tok",
				"request_secret": "req-sec",
			},
		})

		var authErr *authkit.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Less(t, time.Since(start), time.Second, "slow endpoint must not stall past the client timeout")
	})

	t.Run("missing verifier is a callback parameter failure", func(t *testing.T) {
		_, endpoint := fakeOAuth1Server(t)
		p := oauth1a.New("test", endpoint, "", mapTestIdentity)

		_, err := p.Exchange(context.Background(), settings, authkit.Callback{
			Query:     url.Values{"oauth_token": {"req-tok"}},
			RoundTrip: map[string]string{"request_secret": "req-sec"},
		})
		assert.ErrorIs(t, err, authkit.ErrMissingCallbackParameter)
	})

	t.Run("lost request secret is a state failure", func(t *testing.T) {
		_, endpoint := fakeOAuth1Server(t)
		p := oauth1a.New("test", endpoint, "", mapTestIdentity)

		_, err := p.Exchange(context.Background(), settings, authkit.Callback{
			Query: url.Values{
				"oauth_token":    {"req-tok"},
				"oauth_verifier": {"verif-1"},
			},
		})
		assert.ErrorIs(t, err, authkit.ErrCsrfValidationFailed)
	})

	t.Run("token mismatch is a state failure", func(t *testing.T) {
		_, endpoint := fakeOAuth1Server(t)
		p := oauth1a.New("test", endpoint, "", mapTestIdentity)

		_, err := p.Exchange(context.Background(), settings, authkit.Callback{
			Query: url.Values{
				"oauth_token":    {"someone-elses-token"},
				"oauth_verifier": {"verif-1"},
			},
			RoundTrip: map[string]string{
				"request_token":  "req-tok",
				"request_secret": "req-sec",
			},
		})
		assert.ErrorIs(t, err, authkit.ErrCsrfValidationFailed)
	})
}

func TestProvider_FetchIdentity(t *testing.T) {
	t.Run("signed identity fetch maps payload", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.Header.Get("Authorization"), "OAuth")
			_, _ = w.Write([]byte("payload"))
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		p := oauth1a.New("test", oauth1.Endpoint{}, srv.URL+"/me", mapTestIdentity)
		user, raw, err := p.FetchIdentity(context.Background(),
			authkit.Settings{ClientKey: "k", ClientSecret: "s"},
			&authkit.AccessToken{Token: "acc-tok", Secret: "acc-sec"},
			authkit.Callback{})
		require.NoError(t, err)

		assert.Equal(t, "u-1", user.ID)
		assert.Equal(t, "payload", user.Name)
		assert.Equal(t, "payload", string(raw))
	})

	t.Run("rejected token carries the provider status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		t.Cleanup(srv.Close)

		p := oauth1a.New("test", oauth1.Endpoint{}, srv.URL, mapTestIdentity)
		_, _, err := p.FetchIdentity(context.Background(),
			authkit.Settings{ClientKey: "k", ClientSecret: "s"},
			&authkit.AccessToken{Token: "t", Secret: "s"},
			authkit.Callback{})

		var authErr *authkit.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	})
}

func TestNewTwitter(t *testing.T) {
	t.Parallel()

	p := oauth1a.NewTwitter()
	assert.Equal(t, "twitter", p.Name())
	assert.True(t, p.Capabilities().Has(authkit.CapClientCredentials))
	assert.False(t, p.Capabilities().Has(authkit.CapScopes))
}
