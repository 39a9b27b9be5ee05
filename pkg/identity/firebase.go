package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/example/foodshop/pkg/config"
	"google.golang.org/api/option"
)

type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier verifies Firebase phone-auth ID tokens.
type FirebaseVerifier struct {
	client       tokenVerifier
	checkRevoked bool
}

func NewFirebaseVerifier(ctx context.Context, cfg *config.IdentityConfig) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firebase auth client: %w", err)
	}

	return &FirebaseVerifier{client: client, checkRevoked: cfg.CheckRevoked}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if idToken == "" {
		return nil, ErrInvalidToken
	}

	var (
		token *auth.Token
		err   error
	)
	if v.checkRevoked {
		token, err = v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	} else {
		token, err = v.client.VerifyIDToken(ctx, idToken)
	}
	if err != nil {
		return nil, classify(err)
	}

	phone, _ := token.Claims["phone_number"].(string)
	if phone == "" {
		return nil, ErrNoPhone
	}
	name, _ := token.Claims["name"].(string)

	return &Identity{UID: token.UID, Phone: phone, Name: name}, nil
}

func classify(err error) error {
	switch {
	case auth.IsIDTokenExpired(err):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case auth.IsIDTokenRevoked(err):
		return fmt.Errorf("%w: %v", ErrTokenRevoked, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidToken, err)
}
