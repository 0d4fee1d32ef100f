package oauth2ac

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/authkit"
)

// fillFromIDToken copies claims from an OpenID Connect id_token into fields
// the identity endpoint left empty. The token arrived directly from the
// provider's token endpoint over TLS within this flow, so the signature is
// not re-verified here; claims are used as a fallback only, never to
// overwrite fetched values.
func fillFromIDToken(idToken string, user *authkit.UserInformation) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return
	}

	if user.ID == "" {
		user.ID = strClaim(claims, "sub")
	}
	if user.Email == "" {
		user.Email = strClaim(claims, "email")
		user.EmailVerified = boolClaim(claims, "email_verified")
	}
	if user.Name == "" {
		user.Name = strClaim(claims, "name")
	}
	if user.Locale == "" {
		user.Locale = strClaim(claims, "locale")
	}
	if user.Picture == "" {
		user.Picture = strClaim(claims, "picture")
	}
}

func strClaim(m jwt.MapClaims, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolClaim(m jwt.MapClaims, key string) bool {
	b, _ := m[key].(bool)
	return b
}
