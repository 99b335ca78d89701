// Package api fetches charging history from the Tesla owner and ownership
// APIs and validates the raw payloads into typed records.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"time"

	"chargedash/internal/log"
)

// MaxResponseLength caps the number of bytes read from an API response.
const MaxResponseLength = 5 * 1024 * 1024

const libraryName = "chargedash"

func buildUserAgent() string {
	build, ok := debug.ReadBuildInfo()
	if !ok || build.Main.Version == "" || build.Main.Version == "(devel)" {
		return libraryName
	}
	return fmt.Sprintf("%s/%s", libraryName, build.Main.Version)
}

// Client issues read-only requests against the Tesla APIs on behalf of a
// single authenticated account.
type Client struct {
	// The default UserAgent can be overridden before the first request.
	UserAgent     string
	OwnerHost     string
	OwnershipHost string
	PageSize      int

	authHeader string
	client     http.Client
}

// NewClient returns a Client that authenticates with accessToken. The hosts
// carry no scheme; requests always use https.
func NewClient(ownerHost, ownershipHost string, pageSize int, accessToken string) *Client {
	return &Client{
		UserAgent:     buildUserAgent(),
		OwnerHost:     ownerHost,
		OwnershipHost: ownershipHost,
		PageSize:      pageSize,
		authHeader:    "Bearer " + accessToken,
		client:        http.Client{Timeout: 30 * time.Second},
	}
}

// get sends an HTTP GET to url and returns the response body. Authentication
// failures map to AuthError, other non-200 statuses to HTTPError.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("error constructing request to %s: %w", url, err)
	}
	log.Debug("Requesting %s...", url)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("User-Agent", c.UserAgent)
	request.Header.Set("Authorization", c.authHeader)
	response, err := c.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", url, err)
	}
	defer response.Body.Close()

	reader := io.LimitedReader{R: response.Body, N: MaxResponseLength}
	body, err := io.ReadAll(&reader)
	if err != nil {
		return nil, fmt.Errorf("error reading response from %s: %w", url, err)
	}
	log.Debug("Server returned %d: %s", response.StatusCode, http.StatusText(response.StatusCode))
	switch response.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &AuthError{Message: string(body)}
	}
	return nil, &HTTPError{Code: response.StatusCode, Message: string(body)}
}

// unwrapResponse strips the owner API's {"response": ...} envelope. Bodies
// without the envelope are returned unchanged.
func unwrapResponse(body []byte) json.RawMessage {
	var envelope struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Response) > 0 && string(envelope.Response) != "null" {
		return envelope.Response
	}
	return body
}

// Vehicle is a single entry from the account's vehicle list.
type Vehicle struct {
	ID          int64  `json:"id"`
	VIN         string `json:"vin"`
	DisplayName string `json:"display_name"`
}

// Vehicles returns the account's vehicle list.
func (c *Client) Vehicles(ctx context.Context) ([]Vehicle, error) {
	body, err := c.get(ctx, fmt.Sprintf("https://%s/api/1/vehicles", c.OwnerHost))
	if err != nil {
		return nil, err
	}
	var vehicles []Vehicle
	if err := json.Unmarshal(unwrapResponse(body), &vehicles); err != nil {
		return nil, fmt.Errorf("malformed vehicle list: %w", err)
	}
	return vehicles, nil
}

// ChargeHistory fetches the daily-aggregated charging history for vin and
// returns the raw payload with the owner API envelope removed.
func (c *Client) ChargeHistory(ctx context.Context, vin string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("https://%s/api/1/vehicles/%s/charge_history", c.OwnerHost, url.PathEscape(vin))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return unwrapResponse(body), nil
}

type sessionPage struct {
	Data []json.RawMessage `json:"data"`
}

// ChargingSessions fetches the per-session Supercharger history for vin from
// the ownership API. The endpoint pages by offset; fetching stops at the
// first short page. The session objects are returned unmodified, collected
// into a single JSON array.
func (c *Client) ChargingSessions(ctx context.Context, vin string) (json.RawMessage, error) {
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	var sessions []json.RawMessage
	for offset := 0; ; offset += pageSize {
		params := url.Values{
			"vin":            []string{vin},
			"deviceLanguage": []string{"en"},
			"deviceCountry":  []string{"US"},
			"operationName":  []string{"getChargingHistoryV2"},
			"offset":         []string{strconv.Itoa(offset)},
			"pageSize":       []string{strconv.Itoa(pageSize)},
		}
		endpoint := fmt.Sprintf("https://%s/mobile-app/charging/history?%s", c.OwnershipHost, params.Encode())
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		var page sessionPage
		if err := json.Unmarshal(unwrapResponse(body), &page); err != nil {
			return nil, fmt.Errorf("malformed session history page at offset %d: %w", offset, err)
		}
		if len(page.Data) == 0 {
			break
		}
		log.Debug("Session history page offset=%d: %d sessions", offset, len(page.Data))
		sessions = append(sessions, page.Data...)
		if len(page.Data) < pageSize {
			break
		}
	}
	if sessions == nil {
		sessions = []json.RawMessage{}
	}
	return json.Marshal(sessions)
}
