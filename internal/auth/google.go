package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

var ErrInvalidGoogleProfile = errors.New("invalid google profile")

// GoogleProfile is untrusted until Validate passes.
type GoogleProfile struct {
	Subject string `validate:"required,max=255"`
	Email   string `validate:"required,email,max=255"`
	Name    string `validate:"max=255"`
	Picture string `validate:"omitempty,url,max=500"`
}

var profileValidator = validator.New()

func (p *GoogleProfile) Validate() error {
	if err := profileValidator.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGoogleProfile, err)
	}
	return nil
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// GoogleVerifier covers the browser redirect flow and the mobile ID token flow.
type GoogleVerifier struct {
	oauth    *oauth2.Config
	clientID string
}

func NewGoogleVerifier(cfg GoogleConfig) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: cfg.ClientID,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

func (g *GoogleVerifier) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the signed-in user's profile.
func (g *GoogleVerifier) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: token response has no id_token", ErrInvalidGoogleProfile)
	}

	return g.VerifyIDToken(ctx, rawIDToken)
}

// VerifyIDToken checks signature, expiry and audience of a Google ID token.
func (g *GoogleVerifier) VerifyIDToken(ctx context.Context, rawIDToken string) (*GoogleProfile, error) {
	payload, err := idtoken.Validate(ctx, rawIDToken, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	profile := &GoogleProfile{
		Subject: payload.Subject,
		Email:   claimString(payload.Claims, "email"),
		Name:    claimString(payload.Claims, "name"),
		Picture: claimString(payload.Claims, "picture"),
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	return profile, nil
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
