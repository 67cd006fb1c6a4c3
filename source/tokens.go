package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// TokenProvider hands out bearer tokens. Refresh forces a new token and is
// called at most once per failed request.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StaticToken is a fixed token that cannot be refreshed.
type StaticToken string

func (t StaticToken) AccessToken(context.Context) (string, error) {
	if t == "" {
		return "", ErrAuthRequired
	}
	return string(t), nil
}

func (t StaticToken) Refresh(context.Context) (string, error) {
	return "", fmt.Errorf("%w: static token cannot be refreshed", ErrAuthRequired)
}

// OAuthConfig describes a refresh-token grant.
type OAuthConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	TokenURL     string `koanf:"token_url"`
	RefreshToken string `koanf:"refresh_token"`
	AccessToken  string `koanf:"access_token"`
}

// OAuthTokens refreshes access tokens with a refresh token. Rotated refresh
// tokens returned by the server are kept.
type OAuthTokens struct {
	cfg    oauth2.Config
	client *http.Client

	mu  sync.Mutex
	tok *oauth2.Token
}

func NewOAuthTokens(c OAuthConfig, client *http.Client) *OAuthTokens {
	if client == nil {
		client = http.DefaultClient
	}
	return &OAuthTokens{
		cfg: oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  c.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: client,
		tok:    &oauth2.Token{AccessToken: c.AccessToken, RefreshToken: c.RefreshToken},
	}
}

// AccessToken returns the cached token while it is valid.
func (o *OAuthTokens) AccessToken(ctx context.Context) (string, error) {
	o.mu.Lock()
	tok := o.tok
	o.mu.Unlock()
	if tok.AccessToken != "" && (tok.Expiry.IsZero() || tok.Valid()) {
		return tok.AccessToken, nil
	}
	return o.Refresh(ctx)
}

// Refresh exchanges the refresh token for a new access token.
func (o *OAuthTokens) Refresh(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.tok.RefreshToken == "" {
		return "", fmt.Errorf("%w: no refresh token", ErrAuthRequired)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	// Expire the cached token so the source always asks the server.
	stale := &oauth2.Token{RefreshToken: o.tok.RefreshToken}
	tok, err := o.cfg.TokenSource(ctx, stale).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return "", fmt.Errorf("%w: refresh rejected: %v", ErrAuthRequired, err)
		}
		return "", fmt.Errorf("refresh token: %w", err)
	}
	o.tok = tok
	return tok.AccessToken, nil
}

// Token returns the current token, for persisting rotated credentials.
func (o *OAuthTokens) Token() oauth2.Token {
	o.mu.Lock()
	defer o.mu.Unlock()
	return *o.tok
}
