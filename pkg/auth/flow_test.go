package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"chargedash/pkg/api"
)

// RFC 7636 appendix B test vector.
func TestPKCEChallenge(t *testing.T) {
	const verifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	const want = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	if got := pkceChallenge(verifier); got != want {
		t.Errorf("pkceChallenge = %q, want %q", got, want)
	}
}

func TestExtractCode(t *testing.T) {
	redirect := "https://auth.tesla.com/void/callback?code=abc123&state=xyz&issuer=tesla"
	code, err := extractCode(redirect, "xyz")
	if err != nil || code != "abc123" {
		t.Errorf("extractCode = %q, %v", code, err)
	}

	if _, err := extractCode(redirect, "other-state"); err == nil {
		t.Error("expected error on state mismatch")
	}
	if _, err := extractCode("https://auth.tesla.com/void/callback?state=xyz", "xyz"); err == nil {
		t.Error("expected error when code is absent")
	}
}

func TestAuthorizeURL(t *testing.T) {
	flow := NewFlow("auth.tesla.com", "owner@example.com")
	raw := flow.authorizeURL("challenge123", "state456")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("authorize URL does not parse: %s", err)
	}
	if u.Host != "auth.tesla.com" || u.Path != "/oauth2/v3/authorize" {
		t.Errorf("endpoint = %s%s", u.Host, u.Path)
	}
	query := u.Query()
	for key, want := range map[string]string{
		"client_id":             "ownerapi",
		"code_challenge":        "challenge123",
		"code_challenge_method": "S256",
		"response_type":         "code",
		"state":                 "state456",
		"login_hint":            "owner@example.com",
	} {
		if got := query.Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestLogin(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://auth.tesla.com/oauth2/v3/token",
		func(req *http.Request) (*http.Response, error) {
			if err := req.ParseForm(); err != nil {
				t.Fatal(err)
			}
			if grant := req.PostForm.Get("grant_type"); grant != "authorization_code" {
				t.Errorf("grant_type = %q", grant)
			}
			if code := req.PostForm.Get("code"); code != "the-code" {
				t.Errorf("code = %q", code)
			}
			if req.PostForm.Get("code_verifier") == "" {
				t.Error("code_verifier missing from token request")
			}
			body := `{"access_token": "access", "refresh_token": "refresh", "expires_in": 3600, "token_type": "Bearer"}`
			return httpmock.NewStringResponse(200, body), nil
		})

	var opened string
	flow := NewFlow("auth.tesla.com", "owner@example.com")
	flow.OpenBrowser = func(url string) error {
		opened = url
		return nil
	}
	flow.Prompt = func(string) (string, error) {
		// Echo back the state the flow generated, as a real login would.
		u, err := url.Parse(opened)
		if err != nil {
			t.Fatal(err)
		}
		return "https://auth.tesla.com/void/callback?code=the-code&state=" + u.Query().Get("state"), nil
	}

	token, err := flow.Login(context.Background())
	if err != nil {
		t.Fatalf("Login: %s", err)
	}
	if token.AccessToken != "access" || token.RefreshToken != "refresh" {
		t.Errorf("token = %+v", token)
	}
	if token.Expiry.IsZero() || token.Expired() {
		t.Errorf("token should carry a future expiry, got %s", token.Expiry)
	}
	if !strings.Contains(opened, "code_challenge=") {
		t.Errorf("authorize URL lacks a PKCE challenge: %s", opened)
	}
}

func TestLoginBadState(t *testing.T) {
	flow := NewFlow("auth.tesla.com", "")
	flow.OpenBrowser = func(string) error { return nil }
	flow.Prompt = func(string) (string, error) {
		return "https://auth.tesla.com/void/callback?code=x&state=forged", nil
	}

	_, err := flow.Login(context.Background())
	var authErr *api.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthError", err)
	}
}

func TestRefresh(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://auth.tesla.com/oauth2/v3/token",
		func(req *http.Request) (*http.Response, error) {
			if err := req.ParseForm(); err != nil {
				t.Fatal(err)
			}
			if grant := req.PostForm.Get("grant_type"); grant != "refresh_token" {
				t.Errorf("grant_type = %q", grant)
			}
			// The SSO service omits refresh_token from refresh responses.
			return httpmock.NewStringResponse(200, `{"access_token": "fresh", "expires_in": 3600}`), nil
		})

	token, err := NewFlow("auth.tesla.com", "").Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("Refresh: %s", err)
	}
	if token.AccessToken != "fresh" {
		t.Errorf("access token = %q", token.AccessToken)
	}
	if token.RefreshToken != "old-refresh" {
		t.Errorf("refresh token not carried over: %q", token.RefreshToken)
	}
}

func TestRefreshWithoutToken(t *testing.T) {
	_, err := NewFlow("auth.tesla.com", "").Refresh(context.Background(), "")
	var authErr *api.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("error = %v, want AuthError", err)
	}
}

func TestRefreshRejected(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://auth.tesla.com/oauth2/v3/token",
		httpmock.NewStringResponder(401, `{"error": "login_required"}`))

	_, err := NewFlow("auth.tesla.com", "").Refresh(context.Background(), "stale")
	var authErr *api.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("error = %v, want AuthError", err)
	}
}
