package oauth2ac

import (
	"encoding/json"

	"golang.org/x/oauth2/endpoints"

	"github.com/dmitrymomot/authkit"
)

// AmazonConfig holds the Login with Amazon credentials loaded from the environment.
type AmazonConfig struct {
	ClientKey    string   `env:"AUTHKIT_AMAZON_CLIENT_KEY,required"`
	ClientSecret string   `env:"AUTHKIT_AMAZON_CLIENT_SECRET,required"`
	CallbackURL  string   `env:"AUTHKIT_AMAZON_CALLBACK_URL,required"`
	Scopes       []string `env:"AUTHKIT_AMAZON_SCOPES" envSeparator:"," envDefault:"profile"`
}

// Settings converts the config into registry default settings.
func (c AmazonConfig) Settings() authkit.Settings {
	return authkit.Settings{
		ClientKey:    c.ClientKey,
		ClientSecret: c.ClientSecret,
		CallbackURL:  c.CallbackURL,
		Scopes:       c.Scopes,
	}
}

// NewAmazon creates the Login with Amazon provider.
func NewAmazon() *Provider {
	return New("amazon", endpoints.Amazon,
		"https://api.amazon.com/user/profile", mapAmazonIdentity,
		WithDefaultScopes("profile"),
	)
}

type amazonIdentity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

func mapAmazonIdentity(raw []byte) (*authkit.UserInformation, error) {
	var id amazonIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	return &authkit.UserInformation{
		ID:    id.UserID,
		Name:  id.Name,
		Email: id.Email,
	}, nil
}
