// Package broker implements a Tradovate REST client. Authentication state is
// held in an explicit session on the client rather than process-wide, and is
// refreshed when the access token expires.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DemoURL is the Tradovate demo environment.
	DemoURL = "https://demo.tradovateapi.com/v1"
	// LiveURL is the Tradovate live environment.
	LiveURL = "https://live.tradovateapi.com/v1"
)

// Tokens are valid for 80 minutes; renew a little early.
const sessionLifetime = 75 * time.Minute

// Credentials are the Tradovate access-token request parameters.
type Credentials struct {
	Name       string
	Password   string
	AppID      string
	AppVersion string
	CID        string
	Secret     string
}

type session struct {
	accessToken string
	expiresAt   time.Time
}

// Client is a Tradovate API client. Safe for concurrent use.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	deviceID   string

	mu      sync.Mutex
	session *session
}

// NewClient creates a Tradovate client for the given environment.
func NewClient(creds Credentials, demo bool) *Client {
	baseURL := LiveURL
	if demo {
		baseURL = DemoURL
	}

	return &Client{
		baseURL:  baseURL,
		creds:    creds,
		deviceID: uuid.New().String(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Authenticate requests a fresh access token and stores it on the client.
func (c *Client) Authenticate(ctx context.Context) error {
	body, err := json.Marshal(accessTokenRequest{
		Name:       c.creds.Name,
		Password:   c.creds.Password,
		AppID:      c.creds.AppID,
		AppVersion: c.creds.AppVersion,
		DeviceID:   c.deviceID,
		CID:        c.creds.CID,
		Sec:        c.creds.Secret,
	})
	if err != nil {
		return fmt.Errorf("failed to encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/accesstokenrequest", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("auth request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var tokenResp accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		if tokenResp.ErrorText != "" {
			return fmt.Errorf("authentication rejected: %s", tokenResp.ErrorText)
		}
		return fmt.Errorf("authentication response contained no access token")
	}

	c.mu.Lock()
	c.session = &session{
		accessToken: tokenResp.AccessToken,
		expiresAt:   time.Now().Add(sessionLifetime),
	}
	c.mu.Unlock()

	log.Debug().Str("component", "broker").Msg("authenticated with Tradovate")
	return nil
}

// token returns a valid access token, re-authenticating if the current
// session is missing or expired.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s != nil && time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if err := c.Authenticate(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.accessToken, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// ListFills fetches all fills for the authenticated account.
func (c *Client) ListFills(ctx context.Context) ([]Fill, error) {
	var fills []Fill
	if err := c.get(ctx, "/fill/list", nil, &fills); err != nil {
		return nil, fmt.Errorf("failed to fetch fills: %w", err)
	}
	return fills, nil
}

// ListOrders fetches the order list, optionally filtered by order status
// (e.g. "Filled"). The result carries parentId/ocoId linkage for bracket
// and OCO grouping.
func (c *Client) ListOrders(ctx context.Context, status string) ([]Order, error) {
	query := url.Values{}
	if status != "" {
		query.Set("ordStatus", status)
	}

	var orders []Order
	if err := c.get(ctx, "/order/list", query, &orders); err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

// ContractSymbol looks up the symbol for a contract id. The response exposes
// the symbol under varying field names; the first non-empty candidate wins,
// and values like "MNQ Mar 2026" reduce to their leading token.
func (c *Client) ContractSymbol(ctx context.Context, contractID int64) (string, error) {
	var item contractItem
	if err := c.get(ctx, "/contract/item/"+strconv.FormatInt(contractID, 10), nil, &item); err != nil {
		return "", fmt.Errorf("contract lookup failed for %d: %w", contractID, err)
	}

	symbol := item.Name
	if symbol == "" {
		symbol = item.Symbol
	}
	if symbol == "" {
		symbol = item.ContractName
	}
	if symbol == "" {
		symbol = item.RootSymbol
	}
	if symbol == "" {
		return "", fmt.Errorf("contract %d has no symbol", contractID)
	}

	if strings.Contains(symbol, " ") {
		symbol = strings.Fields(symbol)[0]
	}
	return symbol, nil
}
