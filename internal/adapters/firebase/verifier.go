package firebase

import (
	"context"
	"errors"

	"firebase.google.com/go/v4/auth"
)

// IDTokenVerifier is the subset of *auth.Client the verifier needs.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Verifier checks Firebase ID tokens and returns the caller's uid.
type Verifier struct {
	tokens IDTokenVerifier
}

func NewVerifier(tokens IDTokenVerifier) *Verifier {
	return &Verifier{tokens: tokens}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (string, error) {
	if v.tokens == nil {
		return "", errors.New("firebase auth client is nil")
	}
	tok, err := v.tokens.VerifyIDToken(ctx, raw)
	if err != nil {
		return "", err
	}
	if tok.UID == "" {
		return "", errors.New("firebase token has empty uid")
	}
	return tok.UID, nil
}
