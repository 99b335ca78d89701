// Package auth obtains and refreshes OAuth sessions for the Tesla APIs.
//
// A [Token] is an explicit value threaded through the program; there is no
// process-wide credential state. New tokens come from the interactive
// browser login implemented by [Flow.Login], expiring ones are renewed with
// [Flow.Refresh].
package auth

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is an OAuth session: the bearer token presented to the APIs plus
// the refresh token used to renew it.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// expirySkew renews tokens slightly before their stated expiry so a token
// does not expire mid-run between the two fetches.
const expirySkew = 60 * time.Second

// Expired reports whether the access token is expired or will expire within
// the skew window. Tokens without any expiry information are presumed live;
// the API rejecting them surfaces as an AuthError instead.
func (t *Token) Expired() bool {
	if t == nil || t.AccessToken == "" {
		return true
	}
	expiry := t.Expiry
	if expiry.IsZero() {
		expiry = jwtExpiry(t.AccessToken)
	}
	if expiry.IsZero() {
		return false
	}
	return !time.Now().Before(expiry.Add(-expirySkew))
}

// jwtExpiry extracts the exp claim from a JWT without verifying its
// signature. We are the token's consumer, not its verifier; the API servers
// check the signature.
func jwtExpiry(raw string) time.Time {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	expiry, err := token.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}
	}
	return expiry.Time
}

// ParseStored interprets a token as stored in the keyring or handed to
// chargedash-token: either a JSON Token object or a bare access token
// string.
func ParseStored(data string) *Token {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "{") {
		var token Token
		if err := json.Unmarshal([]byte(data), &token); err == nil && token.AccessToken != "" {
			return &token
		}
	}
	return &Token{AccessToken: data}
}
