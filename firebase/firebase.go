package firebase

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go"
	"firebase.google.com/go/auth"
)

var ErrInvalidToken = errors.New("invalid id token")

// Verifier resolves a bearer ID token to the account it was issued for.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (string, error)
}

func VerifyIDToken(ctx context.Context, app *firebase.App, idToken string) (*auth.Token, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("VerifyIDToken: error getting Auth client: %w", err)
	}

	token, err := client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("VerifyIDToken: error verifying ID token: %v: %w", err, ErrInvalidToken)
	}

	return token, nil
}

// AdminVerifier checks tokens through the Firebase Admin SDK.
type AdminVerifier struct {
	app *firebase.App
}

func NewAdminVerifier(app *firebase.App) *AdminVerifier {
	return &AdminVerifier{app: app}
}

func (v *AdminVerifier) Verify(ctx context.Context, idToken string) (string, error) {
	token, err := VerifyIDToken(ctx, v.app, idToken)
	if err != nil {
		return "", err
	}
	return token.UID, nil
}
