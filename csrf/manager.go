package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// sentLength is the number of random bytes behind the sent half. 32 bytes is
// 256 bits of entropy, double the 128-bit minimum for an unguessable state.
const sentLength = 32

// Payload is the optional data embedded into the kept half. It is signed,
// not encrypted: values are tamper-proof but readable by whoever holds the
// kept token, so never embed secrets the client must not see beyond the
// current flow.
type Payload struct {
	// ReturnTo is a URL to restore after the login round trip completes.
	ReturnTo string `json:"ret,omitempty"`

	// RoundTrip carries provider values that must survive the redirect,
	// such as the OAuth1 request-token secret.
	RoundTrip map[string]string `json:"rt,omitempty"`
}

type envelope struct {
	ID  string  `json:"id"`
	P   Payload `json:"p,omitzero"`
	Exp int64   `json:"exp"`
}

// Manager issues and validates state token pairs.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// Option configures a Manager during construction.
type Option func(*Manager)

// WithTTL overrides the envelope lifetime. Default is 15 minutes, enough for
// a user to complete the provider's consent screen.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// NewManager creates a state token manager signing with the given secret.
func NewManager(secret string, opts ...Option) (*Manager, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	m := &Manager{
		secret: []byte(secret),
		ttl:    15 * time.Minute,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// NewState generates an unguessable sent half. Use together with Seal when
// the payload is not known until after the state has been handed out, such as
// an OAuth1 request token obtained mid-flight.
func (m *Manager) NewState() (string, error) {
	b := make([]byte, sentLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf: generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Seal binds the payload to an already-generated sent half and signs the
// resulting kept half.
func (m *Manager) Seal(sent string, payload Payload) (string, error) {
	data, err := json.Marshal(envelope{
		ID:  sent,
		P:   payload,
		Exp: time.Now().Add(m.ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("csrf: encode envelope: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data) + "." + base64.RawURLEncoding.EncodeToString(m.sign(data)), nil
}

// Issue generates a fresh token pair with the payload embedded into the kept half.
func (m *Manager) Issue(payload Payload) (Token, error) {
	sent, err := m.NewState()
	if err != nil {
		return Token{}, err
	}
	kept, err := m.Seal(sent, payload)
	if err != nil {
		return Token{}, err
	}
	return Token{ToSend: sent, ToKeep: kept}, nil
}

// Validate checks that kept and sent originate from the same Issue call and
// returns the embedded payload. Both values are required; an absent kept
// half is a validation failure, never an implicit skip.
func (m *Manager) Validate(kept, sent string) (Payload, error) {
	if kept == "" || sent == "" {
		return Payload{}, ErrValidationFailed
	}

	encData, encSig, ok := strings.Cut(kept, ".")
	if !ok {
		return Payload{}, ErrValidationFailed
	}
	data, err := base64.RawURLEncoding.DecodeString(encData)
	if err != nil {
		return Payload{}, ErrValidationFailed
	}
	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil {
		return Payload{}, ErrValidationFailed
	}
	if subtle.ConstantTimeCompare(sig, m.sign(data)) != 1 {
		return Payload{}, ErrValidationFailed
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Payload{}, ErrValidationFailed
	}
	if subtle.ConstantTimeCompare([]byte(env.ID), []byte(sent)) != 1 {
		return Payload{}, ErrValidationFailed
	}
	if time.Now().Unix() > env.Exp {
		return Payload{}, ErrTokenExpired
	}
	return env.P, nil
}

func (m *Manager) sign(data []byte) []byte {
	h := hmac.New(sha256.New, m.secret)
	h.Write(data)
	return h.Sum(nil)
}

// Token is a state token pair. ToSend goes to the provider and comes back in
// the callback query string; ToKeep is persisted by the caller out-of-band.
type Token struct {
	ToSend string
	ToKeep string
}
