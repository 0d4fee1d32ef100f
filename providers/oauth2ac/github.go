package oauth2ac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2/endpoints"

	"github.com/dmitrymomot/authkit"
)

// GitHubConfig holds the GitHub OAuth credentials loaded from the environment.
type GitHubConfig struct {
	ClientKey    string   `env:"AUTHKIT_GITHUB_CLIENT_KEY,required"`
	ClientSecret string   `env:"AUTHKIT_GITHUB_CLIENT_SECRET,required"`
	CallbackURL  string   `env:"AUTHKIT_GITHUB_CALLBACK_URL,required"`
	Scopes       []string `env:"AUTHKIT_GITHUB_SCOPES" envSeparator:"," envDefault:"user:email"`
}

// Settings converts the config into registry default settings.
func (c GitHubConfig) Settings() authkit.Settings {
	return authkit.Settings{
		ClientKey:    c.ClientKey,
		ClientSecret: c.ClientSecret,
		CallbackURL:  c.CallbackURL,
		Scopes:       c.Scopes,
	}
}

// NewGitHub creates the GitHub provider. GitHub keeps email visibility
// separate from the profile, so the primary verified address is resolved
// through /user/emails after the profile fetch.
func NewGitHub() *Provider {
	return New("github", endpoints.GitHub,
		"https://api.github.com/user", mapGitHubIdentity,
		WithDefaultScopes("user:email"),
		WithScopeSeparator(","),
		WithIdentityEnricher(fetchGitHubEmail),
	)
}

type githubIdentity struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func mapGitHubIdentity(raw []byte) (*authkit.UserInformation, error) {
	var id githubIdentity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	return &authkit.UserInformation{
		ID:       strconv.FormatInt(id.ID, 10),
		Name:     id.Name,
		UserName: id.Login,
		Email:    id.Email,
		Picture:  id.AvatarURL,
	}, nil
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// fetchGitHubEmail resolves the primary verified email, falling back to any
// verified address. Leaves the user untouched when none is visible.
func fetchGitHubEmail(ctx context.Context, client *http.Client, accessToken string, user *authkit.UserInformation) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user/emails", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github emails endpoint returned status %d", resp.StatusCode)
	}

	var emails []githubEmail
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			user.Email = e.Email
			user.EmailVerified = true
			return nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			user.Email = e.Email
			user.EmailVerified = true
			return nil
		}
	}
	return nil
}
