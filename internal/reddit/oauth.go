package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTokenURL = "https://www.reddit.com/api/v1/access_token"

// OAuthTokenResponse represents the JSON returned by Reddit when exchanging
// a code or refreshing a token.
type OAuthTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"` // May be empty on refresh grants
}

func postTokenForm(ctx context.Context, httpClient *http.Client, tokenURL string, form url.Values, clientID, clientSecret, userAgent string) (*OAuthTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(clientID, clientSecret)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: token endpoint returned %d", ErrAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token error: status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResponse OAuthTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &tokenResponse, nil
}

// refreshAccessToken uses a refresh token to get a new access token.
func refreshAccessToken(ctx context.Context, httpClient *http.Client, tokenURL, refreshToken, clientID, clientSecret, userAgent string) (*OAuthTokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	return postTokenForm(ctx, httpClient, tokenURL, data, clientID, clientSecret, userAgent)
}

// ExchangeCodeForToken swaps an authorization code for access/refresh
// tokens. Used by cmd/token to bootstrap the bot account's refresh token.
func ExchangeCodeForToken(ctx context.Context, code, redirectURI, clientID, clientSecret, userAgent string) (*OAuthTokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	return postTokenForm(ctx, httpClient, defaultTokenURL, data, clientID, clientSecret, userAgent)
}

// AuthorizeURL builds the consent URL the operator opens in a browser when
// generating a refresh token.
func AuthorizeURL(clientID, redirectURI, state string, scopes []string) string {
	return fmt.Sprintf(
		"https://www.reddit.com/api/v1/authorize?client_id=%s&response_type=code&state=%s&redirect_uri=%s&duration=permanent&scope=%s",
		url.QueryEscape(clientID),
		url.QueryEscape(state),
		url.QueryEscape(redirectURI),
		url.QueryEscape(strings.Join(scopes, " ")),
	)
}
