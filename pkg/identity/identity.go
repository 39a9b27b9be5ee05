package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/foodshop/pkg/config"
)

var (
	ErrInvalidToken = errors.New("invalid identity token")
	ErrTokenExpired = errors.New("identity token expired")
	ErrTokenRevoked = errors.New("identity token revoked")
	ErrNoPhone      = errors.New("identity token carries no phone number")
)

// Identity is a phone-verified caller as reported by the identity provider.
type Identity struct {
	UID   string `json:"uid"`
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

// Verifier checks a provider-issued ID token and returns the identity behind it.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// NewVerifier builds the verifier selected by identity.provider.
func NewVerifier(ctx context.Context, cfg *config.IdentityConfig) (Verifier, error) {
	switch cfg.Provider {
	case "firebase":
		return NewFirebaseVerifier(ctx, cfg)
	case "static":
		return NewStaticVerifier(cfg.StaticTokens), nil
	}
	return nil, fmt.Errorf("unknown identity provider %q", cfg.Provider)
}

// UserMessage turns identity and session errors into the text shown to shoppers.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrTokenRevoked):
		return "Your session was revoked. Please sign in again."
	case errors.Is(err, ErrNoPhone):
		return "Please sign in with a verified phone number."
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrInvalidSession):
		return "Invalid Code"
	}
	return "Authentication failed"
}
