// Package api is the typed client for the Tambola platform API. Every
// endpoint returns an explicit response type; the {success, message} envelope
// and non-2xx statuses are normalized to *Error so callers never inspect raw
// payloads.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tambolaadmin/internal/logger"
	"tambolaadmin/internal/session"
)

// Error is a rejection by the platform: a parseable response carrying
// success=false, with the server's message when it sent one.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// TokenSource supplies the bearer token for authenticated calls. It is read
// immediately before every request so a logout is honored on the next call.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the Tambola platform API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	tokens     TokenSource
}

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTPClient = h }
}

// New creates a client for the given origin. The token source is consulted
// per request; authenticated endpoints fail fast without one.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// envelope is the common wrapper on every platform response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// do performs one request. When auth is true the bearer token is resolved
// first and the request is never sent if it is missing or expired. The
// decoded envelope is returned so callers can surface server messages.
func (c *Client) do(ctx context.Context, method, path string, auth bool, body, out any) (envelope, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return envelope{}, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	if auth {
		token, err := c.tokens.Token()
		if err != nil {
			logger.Debug(0, "api_auth_missing", "method="+method+" path="+path)
			return envelope{}, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.Error(0, "api_transport_error", fmt.Sprintf("request_id=%s method=%s path=%s error=%v", reqID, method, path, err))
		return envelope{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, fmt.Errorf("%s %s: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error(0, "api_malformed_response", fmt.Sprintf("request_id=%s status=%d", reqID, resp.StatusCode))
		return envelope{}, fmt.Errorf("%s %s: malformed response: %w", method, path, err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		logger.Debug(0, "api_rejected", fmt.Sprintf("request_id=%s status=%d message=%s", reqID, resp.StatusCode, msg))
		return env, &Error{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return env, fmt.Errorf("%s %s: malformed response: %w", method, path, err)
		}
	}
	logger.Debug(0, "api_request", fmt.Sprintf("request_id=%s method=%s path=%s status=%d", reqID, method, path, resp.StatusCode))
	return env, nil
}

// Login calls POST /api/admin/login. Unauthenticated.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out LoginResult
	if _, err := c.do(ctx, http.MethodPost, "/api/admin/login", false, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// listQuery builds the page/limit/search query string. An empty search term
// is omitted entirely; a blank search means unfiltered, not an empty filter.
func listQuery(page, limit int, search string) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if search != "" {
		q.Set("search", search)
	}
	return q.Encode()
}

// ListUsers calls GET /api/admin/users.
func (c *Client) ListUsers(ctx context.Context, page, limit int, search string) (*UserPage, error) {
	var out UserPage
	path := "/api/admin/users?" + listQuery(page, limit, search)
	if _, err := c.do(ctx, http.MethodGet, path, true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders calls GET /api/admin/orders.
func (c *Client) ListOrders(ctx context.Context, page, limit int, search string) (*OrderPage, error) {
	var out OrderPage
	path := "/api/admin/orders?" + listQuery(page, limit, search)
	if _, err := c.do(ctx, http.MethodGet, path, true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCommissions calls GET /api/commissions. Not paginated.
func (c *Client) ListCommissions(ctx context.Context) ([]Commission, error) {
	var out struct {
		Commissions []Commission `json:"commissions"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/commissions", true, nil, &out); err != nil {
		return nil, err
	}
	return out.Commissions, nil
}

// SaveCommission creates (POST) or updates (PUT) a commission rule. The
// create/update decision is made by the caller once, when the edit begins.
func (c *Client) SaveCommission(ctx context.Context, body CommissionUpsert, update bool) (string, error) {
	method := http.MethodPost
	if update {
		method = http.MethodPut
	}
	env, err := c.do(ctx, method, "/api/commissions", true, body, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// DeleteCommission calls DELETE /api/commissions/{providerCode}.
func (c *Client) DeleteCommission(ctx context.Context, providerCode string) (string, error) {
	env, err := c.do(ctx, http.MethodDelete, "/api/commissions/"+url.PathEscape(providerCode), true, nil, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// walletTxn is the request body for credit and debit.
type walletTxn struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// WalletCredit calls POST /api/wallet/{userID}/credit.
func (c *Client) WalletCredit(ctx context.Context, userID int64, amount float64, description string) (string, error) {
	return c.walletOp(ctx, userID, "credit", amount, description)
}

// WalletDebit calls POST /api/wallet/{userID}/debit.
func (c *Client) WalletDebit(ctx context.Context, userID int64, amount float64, description string) (string, error) {
	return c.walletOp(ctx, userID, "debit", amount, description)
}

func (c *Client) walletOp(ctx context.Context, userID int64, op string, amount float64, description string) (string, error) {
	path := fmt.Sprintf("/api/wallet/%d/%s", userID, op)
	env, err := c.do(ctx, http.MethodPost, path, true, walletTxn{Amount: amount, Description: description}, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// BlockUser calls PUT /api/admin/users/{id}/block.
func (c *Client) BlockUser(ctx context.Context, userID int64) (string, error) {
	return c.blockOp(ctx, userID, "block")
}

// UnblockUser calls PUT /api/admin/users/{id}/unblock.
func (c *Client) UnblockUser(ctx context.Context, userID int64) (string, error) {
	return c.blockOp(ctx, userID, "unblock")
}

func (c *Client) blockOp(ctx context.Context, userID int64, op string) (string, error) {
	path := fmt.Sprintf("/api/admin/users/%d/%s", userID, op)
	env, err := c.do(ctx, http.MethodPut, path, true, nil, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// ListGames calls GET /api/game/games.
func (c *Client) ListGames(ctx context.Context) ([]Game, error) {
	var out struct {
		Data []Game `json:"data"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/game/games", true, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListWinners calls GET /api/game/winners/{gameID}.
func (c *Client) ListWinners(ctx context.Context, gameID string) ([]Winner, error) {
	var out struct {
		Winners []Winner `json:"winners"`
	}
	path := "/api/game/winners/" + url.PathEscape(gameID)
	if _, err := c.do(ctx, http.MethodGet, path, true, nil, &out); err != nil {
		return nil, err
	}
	return out.Winners, nil
}

// DistributePrizes calls POST /api/game/winners/{gameID}/distribute with the
// whole batch in one request.
func (c *Client) DistributePrizes(ctx context.Context, gameID string, prizes []PrizeAward) (string, error) {
	body := struct {
		Prizes []PrizeAward `json:"prizes"`
	}{Prizes: prizes}
	path := "/api/game/winners/" + url.PathEscape(gameID) + "/distribute"
	env, err := c.do(ctx, http.MethodPost, path, true, body, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// ProviderAnalytics calls GET /api/analytics/providers. An empty provider
// code is omitted from the query.
func (c *Client) ProviderAnalytics(ctx context.Context, year, month int, providerCode string) ([]ProviderAnalytics, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(month))
	if providerCode != "" {
		q.Set("providerCode", providerCode)
	}
	var out struct {
		Analytics []ProviderAnalytics `json:"analytics"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/analytics/providers?"+q.Encode(), true, nil, &out); err != nil {
		return nil, err
	}
	return out.Analytics, nil
}

// Dashboard calls GET /api/admin/dashboard.
func (c *Client) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	var out struct {
		Data DashboardSummary `json:"data"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/api/admin/dashboard", true, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ReportURL calls GET /api/admin/report and returns the absolute URL of the
// generated CSV file.
func (c *Client) ReportURL(ctx context.Context, reportType string) (string, error) {
	var out struct {
		FileURL string `json:"fileUrl"`
	}
	path := "/api/admin/report?type=" + url.QueryEscape(reportType)
	if _, err := c.do(ctx, http.MethodGet, path, true, nil, &out); err != nil {
		return "", err
	}
	return c.BaseURL + out.FileURL, nil
}

// Message extracts the user-facing message for a failed call: the server's
// message for a rejection, the login hint for a local auth failure, and the
// fallback for transport-level errors.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, session.ErrNoToken) || errors.Is(err, session.ErrExpired) {
		return err.Error()
	}
	if err != nil && fallback == "" {
		return err.Error()
	}
	return fallback
}
