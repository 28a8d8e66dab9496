package gcpauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Static errors for token exchange operations.
var (
	// ErrPrivateKeyMalformed is returned when the PEM private key cannot be parsed.
	ErrPrivateKeyMalformed = errors.New("gcpauth: malformed private key")
	// ErrAssertionSigning is returned when signing the assertion fails.
	ErrAssertionSigning = errors.New("gcpauth: assertion signing failed")
	// ErrTokenExchange is returned when the token endpoint rejects the exchange.
	ErrTokenExchange = errors.New("gcpauth: token exchange failed")
	// ErrNoAccessToken is returned when the token endpoint reply carries no token.
	ErrNoAccessToken = errors.New("gcpauth: token endpoint returned no access token")
)

// cloudPlatformScope is the single platform-wide OAuth scope requested for
// every exchanged token.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// assertionLifetime is the validity window claimed in each signed assertion.
const assertionLifetime = time.Hour

// TokenSource mints a bearer access token for a service-account key.
type TokenSource interface {
	// Exchange builds a signed assertion from the key and trades it for an
	// access token at the OAuth token endpoint.
	Exchange(ctx context.Context, key *ServiceAccountKey) (string, error)
}

// Exchanger is the HTTP implementation of TokenSource. Each call performs a
// full signed-assertion exchange; tokens are never cached, so every poll pays
// one round trip to the token endpoint. That keeps the bridge stateless at
// the cost of latency.
type Exchanger struct {
	tokenURL   string
	httpClient *http.Client
	now        func() time.Time
}

// ExchangerOption configures an Exchanger.
type ExchangerOption func(*Exchanger)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ExchangerOption {
	return func(e *Exchanger) {
		e.httpClient = c
	}
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) ExchangerOption {
	return func(e *Exchanger) {
		e.tokenURL = u
	}
}

// WithClock overrides the time source used for assertion claims.
func WithClock(now func() time.Time) ExchangerOption {
	return func(e *Exchanger) {
		e.now = now
	}
}

// NewExchanger creates a token exchanger against Google's OAuth endpoint.
func NewExchanger(opts ...ExchangerOption) *Exchanger {
	e := &Exchanger{
		tokenURL:   DefaultTokenURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Exchange implements TokenSource.
func (e *Exchanger) Exchange(ctx context.Context, key *ServiceAccountKey) (string, error) {
	assertion, err := e.signAssertion(key)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("gcpauth: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrTokenExchange, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Keep the upstream body: it names the exact OAuth failure.
		return "", fmt.Errorf("%w with status %d: %s", ErrTokenExchange, resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", ErrTokenExchange, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: %s", ErrNoAccessToken, string(body))
	}

	return tokenResp.AccessToken, nil
}

// signAssertion builds and signs the RS256 JWT-bearer assertion.
func (e *Exchanger) signAssertion(key *ServiceAccountKey) (string, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPrivateKeyMalformed, err)
	}

	audience := key.TokenURI
	if audience == "" {
		audience = e.tokenURL
	}

	now := e.now()
	claims := jwt.MapClaims{
		"iss":   key.ClientEmail,
		"scope": cloudPlatformScope,
		"aud":   audience,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssertionSigning, err)
	}
	return signed, nil
}
