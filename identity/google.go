// Package identity obtains and verifies the Google credential fed into the
// backend's /auth/google identification step. The backend remains the authority;
// verification here only rejects obviously bad tokens before a network round trip.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const googleIssuer = "https://accounts.google.com"

// Claims are the fields extracted from a verified Google ID token.
type Claims struct {
	Subject string
	Email   string
	Name    string
}

// Google wraps the OAuth2 code exchange and OIDC ID-token verification for the
// Google identity provider.
type Google struct {
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewGoogle discovers the Google OIDC provider and prepares the exchange
// configuration.
func NewGoogle(ctx context.Context, clientID, clientSecret, redirectURL string) (*Google, error) {
	if clientID == "" {
		return nil, errors.New("identity: google client ID is required")
	}
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("identity: discover google provider: %w", err)
	}
	return &Google{
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// AuthURL returns the consent page URL for the given CSRF state and nonce.
func (g *Google) AuthURL(state, nonce string) string {
	return g.oauth.AuthCodeURL(state, oidc.Nonce(nonce))
}

// ExchangeIDToken trades an authorization code for the raw ID token to post to
// the backend.
func (g *Google) ExchangeIDToken(ctx context.Context, code string) (string, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("identity: code exchange: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", errors.New("identity: token response carried no id_token")
	}
	return rawIDToken, nil
}

// Verify checks the ID token signature and audience and extracts the identity
// claims.
func (g *Google) Verify(ctx context.Context, rawIDToken string) (Claims, error) {
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Claims{}, fmt.Errorf("identity: id token verification: %w", err)
	}
	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Claims{}, fmt.Errorf("identity: extract claims: %w", err)
	}
	return Claims{Subject: idToken.Subject, Email: claims.Email, Name: claims.Name}, nil
}
