package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"heartloom/internal/service"
	"heartloom/internal/utils"
)

// oauthProviders builds the configured sign-in providers, mirroring the
// providers the mobile clients use.
func (a *app) oauthProviders() map[string]service.OAuthProvider {
	return map[string]service.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     a.cfg.GoogleClientID,
				ClientSecret: a.cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"apple": {
			Name:  "apple",
			Label: "Apple",
			Config: &oauth2.Config{
				ClientID:     a.cfg.AppleClientID,
				ClientSecret: a.cfg.AppleClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://appleid.apple.com/auth/authorize",
					TokenURL: "https://appleid.apple.com/auth/token",
				},
				Scopes: []string{"name", "email"},
			},
			AuthParams: map[string]string{
				"response_mode": "query",
			},
		},
	}
}

// browserSignIn runs the loopback authorization-code flow: it prints the
// provider's URL, waits for the redirect on a local listener, and
// exchanges the code for the identity assertion tuple.
func (a *app) browserSignIn(ctx context.Context, providerKey string) (service.SignInPayload, error) {
	provider, ok := a.oauthProviders()[providerKey]
	if !ok || !provider.Configured() {
		return service.SignInPayload{}, fmt.Errorf("provider %q is not configured", providerKey)
	}

	state := utils.GenerateID()
	redirectURL := fmt.Sprintf("http://%s/callback", a.cfg.OAuthListenAddr)

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- result{err: errors.New("oauth state mismatch")}
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			results <- result{err: errors.New("missing authorization code")}
			return
		}
		fmt.Fprintln(w, "Signed in. You can close this window and return to the terminal.")
		results <- result{code: code}
	})

	server := &http.Server{Addr: a.cfg.OAuthListenAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			results <- result{err: err}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL in your browser to sign in with %s:\n\n  %s\n\n",
		provider.Label, provider.AuthCodeURL(state, redirectURL))

	var res result
	select {
	case res = <-results:
	case <-time.After(5 * time.Minute):
		return service.SignInPayload{}, errors.New("sign-in timed out")
	case <-ctx.Done():
		return service.SignInPayload{}, ctx.Err()
	}
	if res.err != nil {
		return service.SignInPayload{}, res.err
	}

	return provider.Exchange(ctx, res.code, redirectURL)
}
