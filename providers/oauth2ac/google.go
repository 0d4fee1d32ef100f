package oauth2ac

import (
	"encoding/json"
	"net/url"

	"golang.org/x/oauth2/endpoints"

	"github.com/dmitrymomot/authkit"
)

// GoogleConfig holds the Google OAuth credentials loaded from the environment.
type GoogleConfig struct {
	ClientKey    string   `env:"AUTHKIT_GOOGLE_CLIENT_KEY,required"`
	ClientSecret string   `env:"AUTHKIT_GOOGLE_CLIENT_SECRET,required"`
	CallbackURL  string   `env:"AUTHKIT_GOOGLE_CALLBACK_URL,required"`
	Scopes       []string `env:"AUTHKIT_GOOGLE_SCOPES" envSeparator:"," envDefault:"profile,email"`
}

// Settings converts the config into registry default settings.
func (c GoogleConfig) Settings() authkit.Settings {
	return authkit.Settings{
		ClientKey:    c.ClientKey,
		ClientSecret: c.ClientSecret,
		CallbackURL:  c.CallbackURL,
		Scopes:       c.Scopes,
	}
}

// NewGoogle creates the Google provider. Requests offline access so Google
// issues a refresh token, and falls back to id_token claims for fields the
// userinfo endpoint omits.
func NewGoogle() *Provider {
	return New("google", endpoints.Google,
		"https://www.googleapis.com/oauth2/v2/userinfo", mapGoogleIdentity,
		WithDefaultScopes("profile", "email"),
		WithAuthParams(url.Values{"access_type": {"offline"}}),
		WithIDTokenFallback(),
	)
}

type googleIdentity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Gender        string `json:"gender"`
	Locale        string `json:"locale"`
	Picture       string `json:"picture"`
}

func mapGoogleIdentity(raw []byte) (*authkit.UserInformation, error) {
	var id googleIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	return &authkit.UserInformation{
		ID:            id.ID,
		Name:          id.Name,
		Email:         id.Email,
		EmailVerified: id.VerifiedEmail,
		Gender:        id.Gender,
		Locale:        id.Locale,
		Picture:       id.Picture,
	}, nil
}
