package auth

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"chargedash/internal/browser"
	"chargedash/internal/log"
	"chargedash/pkg/api"
)

const (
	oauthClientID    = "ownerapi"
	oauthScope       = "openid email offline_access"
	oauthRedirectURI = "https://auth.tesla.com/void/callback"
)

// Flow drives the interactive browser login against the Tesla SSO service.
// The flow blocks until the user completes the login or it fails; there is
// no callback structure and no retry.
type Flow struct {
	Host  string // SSO hostname, e.g. auth.tesla.com
	Email string

	// OpenBrowser and Prompt are replaceable for tests. The defaults open
	// the system browser and read a line from stdin.
	OpenBrowser func(url string) error
	Prompt      func(prompt string) (string, error)

	client http.Client
}

// NewFlow returns a Flow for the given SSO host and account email.
func NewFlow(host, email string) *Flow {
	return &Flow{
		Host:        host,
		Email:       email,
		OpenBrowser: browser.Open,
		Prompt:      promptStdin,
		client:      http.Client{Timeout: 30 * time.Second},
	}
}

func promptStdin(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func randomURLSafe(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func pkceChallenge(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}

// authorizeURL builds the SSO authorization URL for a PKCE login.
func (f *Flow) authorizeURL(challenge, state string) string {
	params := url.Values{
		"client_id":             []string{oauthClientID},
		"code_challenge":        []string{challenge},
		"code_challenge_method": []string{"S256"},
		"redirect_uri":          []string{oauthRedirectURI},
		"response_type":         []string{"code"},
		"scope":                 []string{oauthScope},
		"state":                 []string{state},
	}
	if f.Email != "" {
		params.Set("login_hint", f.Email)
	}
	return fmt.Sprintf("https://%s/oauth2/v3/authorize?%s", f.Host, params.Encode())
}

// extractCode pulls the authorization code out of the redirect URL the user
// pasted back, verifying the state parameter matches.
func extractCode(redirect, state string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(redirect))
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	query := u.Query()
	if query.Get("state") != state {
		return "", fmt.Errorf("redirect URL state mismatch")
	}
	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect URL contains no authorization code")
	}
	return code, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

func (f *Flow) exchange(ctx context.Context, form url.Values) (*Token, error) {
	endpoint := fmt.Sprintf("https://%s/oauth2/v3/token", f.Host)
	request, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	response, err := f.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("error reaching SSO service: %w", err)
	}
	defer response.Body.Close()
	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if response.StatusCode != http.StatusOK {
		return nil, &api.AuthError{Message: fmt.Sprintf("token request returned %s", response.Status)}
	}
	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("malformed token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return nil, &api.AuthError{Message: "token response contains no access token"}
	}
	token := &Token{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
	}
	if parsed.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second).Round(time.Second)
	}
	return token, nil
}

// Login performs the interactive browser login and blocks until the user
// pastes the redirect URL back. It returns the new session token or a typed
// failure; authentication failures are fatal to the caller.
func (f *Flow) Login(ctx context.Context) (*Token, error) {
	verifier, err := randomURLSafe(32)
	if err != nil {
		return nil, err
	}
	state, err := randomURLSafe(16)
	if err != nil {
		return nil, err
	}
	authorize := f.authorizeURL(pkceChallenge(verifier), state)

	fmt.Fprintln(os.Stderr, "Opening Tesla login in your browser...")
	if err := f.OpenBrowser(authorize); err != nil {
		log.Warning("Could not open browser: %s", err)
	}
	fmt.Fprintf(os.Stderr, "\nIf it didn't open, go to:\n%s\n\n", authorize)

	redirect, err := f.Prompt("After login, paste the redirect URL here")
	if err != nil {
		return nil, err
	}
	code, err := extractCode(redirect, state)
	if err != nil {
		return nil, &api.AuthError{Message: err.Error()}
	}

	return f.exchange(ctx, url.Values{
		"grant_type":    []string{"authorization_code"},
		"client_id":     []string{oauthClientID},
		"code":          []string{code},
		"code_verifier": []string{verifier},
		"redirect_uri":  []string{oauthRedirectURI},
	})
}

// Refresh renews a session with its refresh token.
func (f *Flow) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, &api.AuthError{Message: "no refresh token available"}
	}
	token, err := f.exchange(ctx, url.Values{
		"grant_type":    []string{"refresh_token"},
		"client_id":     []string{oauthClientID},
		"refresh_token": []string{refreshToken},
		"scope":         []string{oauthScope},
	})
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}
