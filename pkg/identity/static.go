package identity

import (
	"context"

	"github.com/example/foodshop/pkg/config"
)

// StaticVerifier accepts a fixed set of tokens. Used for local development and tests.
type StaticVerifier struct {
	tokens map[string]Identity
}

func NewStaticVerifier(entries []config.StaticIdentity) *StaticVerifier {
	tokens := make(map[string]Identity, len(entries))
	for _, e := range entries {
		tokens[e.Token] = Identity{UID: e.UID, Phone: e.Phone}
	}
	return &StaticVerifier{tokens: tokens}
}

func (v *StaticVerifier) Verify(_ context.Context, idToken string) (*Identity, error) {
	id, ok := v.tokens[idToken]
	if !ok {
		return nil, ErrInvalidToken
	}
	if id.Phone == "" {
		return nil, ErrNoPhone
	}
	return &id, nil
}
