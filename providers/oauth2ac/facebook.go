package oauth2ac

import (
	"encoding/json"
	"net/url"

	"golang.org/x/oauth2/endpoints"

	"github.com/dmitrymomot/authkit"
)

// FacebookConfig holds the Facebook OAuth credentials loaded from the environment.
type FacebookConfig struct {
	ClientKey    string   `env:"AUTHKIT_FACEBOOK_CLIENT_KEY,required"`
	ClientSecret string   `env:"AUTHKIT_FACEBOOK_CLIENT_SECRET,required"`
	CallbackURL  string   `env:"AUTHKIT_FACEBOOK_CALLBACK_URL,required"`
	Scopes       []string `env:"AUTHKIT_FACEBOOK_SCOPES" envSeparator:"," envDefault:"email"`
}

// Settings converts the config into registry default settings.
func (c FacebookConfig) Settings() authkit.Settings {
	return authkit.Settings{
		ClientKey:    c.ClientKey,
		ClientSecret: c.ClientSecret,
		CallbackURL:  c.CallbackURL,
		Scopes:       c.Scopes,
	}
}

// NewFacebook creates the Facebook provider. Facebook joins scopes with a
// comma and supports a touch display variant for mobile clients.
func NewFacebook() *Provider {
	return New("facebook", endpoints.Facebook,
		"https://graph.facebook.com/me?fields=id,name,email,gender,locale,picture",
		mapFacebookIdentity,
		WithDefaultScopes("email"),
		WithScopeSeparator(","),
		WithMobileParams(url.Values{"display": {"touch"}}),
	)
}

type facebookIdentity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Gender  string `json:"gender"`
	Locale  string `json:"locale"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func mapFacebookIdentity(raw []byte) (*authkit.UserInformation, error) {
	var id facebookIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	return &authkit.UserInformation{
		ID:      id.ID,
		Name:    id.Name,
		Email:   id.Email,
		Gender:  id.Gender,
		Locale:  id.Locale,
		Picture: id.Picture.Data.URL,
	}, nil
}
