package oauth2ac

import (
	"encoding/json"

	"golang.org/x/oauth2/endpoints"

	"github.com/dmitrymomot/authkit"
)

// LinkedInConfig holds the LinkedIn OAuth credentials loaded from the environment.
type LinkedInConfig struct {
	ClientKey    string   `env:"AUTHKIT_LINKEDIN_CLIENT_KEY,required"`
	ClientSecret string   `env:"AUTHKIT_LINKEDIN_CLIENT_SECRET,required"`
	CallbackURL  string   `env:"AUTHKIT_LINKEDIN_CALLBACK_URL,required"`
	Scopes       []string `env:"AUTHKIT_LINKEDIN_SCOPES" envSeparator:"," envDefault:"openid,profile,email"`
}

// Settings converts the config into registry default settings.
func (c LinkedInConfig) Settings() authkit.Settings {
	return authkit.Settings{
		ClientKey:    c.ClientKey,
		ClientSecret: c.ClientSecret,
		CallbackURL:  c.CallbackURL,
		Scopes:       c.Scopes,
	}
}

// NewLinkedIn creates the LinkedIn provider against its OIDC userinfo endpoint.
func NewLinkedIn() *Provider {
	return New("linkedin", endpoints.LinkedIn,
		"https://api.linkedin.com/v2/userinfo", mapLinkedInIdentity,
		WithDefaultScopes("openid", "profile", "email"),
		WithIDTokenFallback(),
	)
}

type linkedInIdentity struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Locale        string `json:"locale"`
	Picture       string `json:"picture"`
}

func mapLinkedInIdentity(raw []byte) (*authkit.UserInformation, error) {
	var id linkedInIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	return &authkit.UserInformation{
		ID:            id.Sub,
		Name:          id.Name,
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		Locale:        id.Locale,
		Picture:       id.Picture,
	}, nil
}
