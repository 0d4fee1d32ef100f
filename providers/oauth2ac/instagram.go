package oauth2ac

import (
	"encoding/json"

	"golang.org/x/oauth2/endpoints"

	"github.com/dmitrymomot/authkit"
)

// InstagramConfig holds the Instagram OAuth credentials loaded from the environment.
type InstagramConfig struct {
	ClientKey    string   `env:"AUTHKIT_INSTAGRAM_CLIENT_KEY,required"`
	ClientSecret string   `env:"AUTHKIT_INSTAGRAM_CLIENT_SECRET,required"`
	CallbackURL  string   `env:"AUTHKIT_INSTAGRAM_CALLBACK_URL,required"`
	Scopes       []string `env:"AUTHKIT_INSTAGRAM_SCOPES" envSeparator:"," envDefault:"user_profile"`
}

// Settings converts the config into registry default settings.
func (c InstagramConfig) Settings() authkit.Settings {
	return authkit.Settings{
		ClientKey:    c.ClientKey,
		ClientSecret: c.ClientSecret,
		CallbackURL:  c.CallbackURL,
		Scopes:       c.Scopes,
	}
}

// NewInstagram creates the Instagram Basic Display provider. The API exposes
// only id and username; other normalized fields stay empty.
func NewInstagram() *Provider {
	return New("instagram", endpoints.Instagram,
		"https://graph.instagram.com/me?fields=id,username", mapInstagramIdentity,
		WithDefaultScopes("user_profile"),
	)
}

type instagramIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func mapInstagramIdentity(raw []byte) (*authkit.UserInformation, error) {
	var id instagramIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	return &authkit.UserInformation{
		ID:       id.ID,
		UserName: id.Username,
	}, nil
}
