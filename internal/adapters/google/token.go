package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"gmb_sync/internal/adapters/observability"
)

const DefaultTokenURL = "https://oauth2.googleapis.com/token"

var ErrNoRefreshToken = errors.New("google: empty refresh token")

// CredentialsFunc returns the OAuth client id and secret to use for a refresh.
type CredentialsFunc func(ctx context.Context) (clientID, clientSecret string, err error)

// TokenSource exchanges stored refresh tokens for access tokens.
type TokenSource struct {
	cfg   *oauth2.Config
	hc    *http.Client
	creds CredentialsFunc
}

func NewTokenSource(clientID, clientSecret, tokenURL string) *TokenSource {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &TokenSource{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			// grants were issued to the web client's popup flow
			RedirectURL: "postmessage",
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		hc: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithCredentials makes every refresh ask fn for the client credentials, so
// a rotated secret is picked up without a restart.
func (t *TokenSource) WithCredentials(fn CredentialsFunc) *TokenSource {
	t.creds = fn
	return t
}

func (t *TokenSource) AccessToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}
	cfg := t.cfg
	if t.creds != nil {
		id, secret, err := t.creds(ctx)
		if err != nil {
			return "", fmt.Errorf("oauth client credentials: %w", err)
		}
		c := *t.cfg
		c.ClientID, c.ClientSecret = id, secret
		cfg = &c
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, t.hc)

	start := time.Now()
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	status := http.StatusOK
	if err != nil {
		status = 0
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			status = re.Response.StatusCode
		}
	}
	observability.ObserveExternal("google", "token", status, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	return tok.AccessToken, nil
}
