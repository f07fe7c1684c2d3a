package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"heartloom/internal/errs"
)

// OAuthProvider defines an external sign-in provider. The provider owns
// authentication; this layer only completes the code exchange and hands
// the resulting identity assertion tuple to the auth service.
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
	AuthParams  map[string]string
}

// SignInPayload is what a completed external sign-in yields: the signed
// identity assertion plus optional profile fields.
type SignInPayload struct {
	Assertion   string
	DisplayName string
	Email       string
}

// Configured reports whether the provider has credentials.
func (p OAuthProvider) Configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

// AuthCodeURL builds the provider's authorization URL for a flow bound to
// state and redirectURL.
func (p OAuthProvider) AuthCodeURL(state, redirectURL string) string {
	config := *p.Config
	config.RedirectURL = redirectURL

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	for key, value := range p.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}
	return config.AuthCodeURL(state, options...)
}

// Exchange trades the authorization code for the identity assertion tuple.
func (p OAuthProvider) Exchange(ctx context.Context, code, redirectURL string) (SignInPayload, error) {
	config := *p.Config
	config.RedirectURL = redirectURL

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return SignInPayload{}, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	assertion, _ := token.Extra("id_token").(string)
	if assertion == "" {
		return SignInPayload{}, fmt.Errorf("provider returned no id_token: %w", errs.ErrInvalid)
	}

	payload := SignInPayload{Assertion: assertion}
	if p.UserInfoURL != "" {
		if name, email, err := fetchUserInfo(ctx, &config, token, p.UserInfoURL); err == nil {
			payload.DisplayName = name
			payload.Email = email
		}
	} else {
		// Providers without a userinfo endpoint (Apple) put the email in
		// the assertion itself.
		payload.Email = emailClaim(assertion)
	}
	return payload, nil
}

func fetchUserInfo(ctx context.Context, config *oauth2.Config, token *oauth2.Token, url string) (name, email string, err error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(url)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to fetch user info: status %d", resp.StatusCode)
	}

	var payload struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("failed to parse user info: %w", err)
	}
	return payload.Name, payload.Email, nil
}

func emailClaim(assertion string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(assertion, claims); err != nil {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}
