package oauth2ac

import (
	"encoding/json"
	"net/url"

	"golang.org/x/oauth2/endpoints"

	"github.com/dmitrymomot/authkit"
)

// WindowsLiveConfig holds the Microsoft account OAuth credentials loaded
// from the environment.
type WindowsLiveConfig struct {
	ClientKey    string   `env:"AUTHKIT_WINDOWSLIVE_CLIENT_KEY,required"`
	ClientSecret string   `env:"AUTHKIT_WINDOWSLIVE_CLIENT_SECRET,required"`
	CallbackURL  string   `env:"AUTHKIT_WINDOWSLIVE_CALLBACK_URL,required"`
	Scopes       []string `env:"AUTHKIT_WINDOWSLIVE_SCOPES" envSeparator:"," envDefault:"User.Read"`
}

// Settings converts the config into registry default settings.
func (c WindowsLiveConfig) Settings() authkit.Settings {
	return authkit.Settings{
		ClientKey:    c.ClientKey,
		ClientSecret: c.ClientSecret,
		CallbackURL:  c.CallbackURL,
		Scopes:       c.Scopes,
	}
}

// NewWindowsLive creates the Microsoft account provider (the Windows Live
// successor) against the v2.0 common endpoint and Microsoft Graph.
func NewWindowsLive() *Provider {
	return New("windowslive", endpoints.Microsoft,
		"https://graph.microsoft.com/v1.0/me", mapWindowsLiveIdentity,
		WithDefaultScopes("User.Read"),
		WithMobileParams(url.Values{"display": {"mobile"}}),
	)
}

type windowsLiveIdentity struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
	Mail              string `json:"mail"`
	PreferredLanguage string `json:"preferredLanguage"`
}

func mapWindowsLiveIdentity(raw []byte) (*authkit.UserInformation, error) {
	var id windowsLiveIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	email := id.Mail
	if email == "" {
		email = id.UserPrincipalName
	}
	return &authkit.UserInformation{
		ID:       id.ID,
		Name:     id.DisplayName,
		UserName: id.UserPrincipalName,
		Email:    email,
		Locale:   id.PreferredLanguage,
	}, nil
}
