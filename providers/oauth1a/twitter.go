package oauth1a

import (
	"encoding/json"

	"github.com/dghubble/oauth1"
	"github.com/dghubble/oauth1/twitter"

	"github.com/dmitrymomot/authkit"
)

// TwitterConfig holds the Twitter consumer credentials loaded from the environment.
type TwitterConfig struct {
	ClientKey    string `env:"AUTHKIT_TWITTER_CLIENT_KEY,required"`
	ClientSecret string `env:"AUTHKIT_TWITTER_CLIENT_SECRET,required"`
	CallbackURL  string `env:"AUTHKIT_TWITTER_CALLBACK_URL,required"`
}

// Settings converts the config into registry default settings.
func (c TwitterConfig) Settings() authkit.Settings {
	return authkit.Settings{
		ClientKey:    c.ClientKey,
		ClientSecret: c.ClientSecret,
		CallbackURL:  c.CallbackURL,
	}
}

// NewTwitter creates the Twitter provider. Uses the authorize endpoint, which
// prompts for consent on each sign-in; email requires the elevated
// include_email permission on the Twitter app.
func NewTwitter() *Provider {
	return New("twitter", twitter.AuthorizeEndpoint,
		"https://api.twitter.com/1.1/account/verify_credentials.json?include_email=true",
		mapTwitterIdentity,
	)
}

// NewTwitterAuthenticate is NewTwitter against the authenticate endpoint,
// which skips the consent screen for users who already approved the app.
func NewTwitterAuthenticate() *Provider {
	return New("twitter", twitter.AuthenticateEndpoint,
		"https://api.twitter.com/1.1/account/verify_credentials.json?include_email=true",
		mapTwitterIdentity,
	)
}

// Endpoints re-exported so hosts can build custom Twitter-compatible
// providers without importing dghubble/oauth1 directly.
var (
	TwitterAuthorizeEndpoint    oauth1.Endpoint = twitter.AuthorizeEndpoint
	TwitterAuthenticateEndpoint oauth1.Endpoint = twitter.AuthenticateEndpoint
)

type twitterIdentity struct {
	IDStr           string `json:"id_str"`
	Name            string `json:"name"`
	ScreenName      string `json:"screen_name"`
	Email           string `json:"email"`
	Lang            string `json:"lang"`
	ProfileImageURL string `json:"profile_image_url_https"`
}

func mapTwitterIdentity(raw []byte) (*authkit.UserInformation, error) {
	var id twitterIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	return &authkit.UserInformation{
		ID:       id.IDStr,
		Name:     id.Name,
		UserName: id.ScreenName,
		Email:    id.Email,
		Locale:   id.Lang,
		Picture:  id.ProfileImageURL,
	}, nil
}
