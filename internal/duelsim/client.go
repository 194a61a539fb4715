package duelsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/duel/internal/domain/types"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Status     string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client speaks the match API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks that the metrics endpoint answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Create opens a session for name.
func (c *Client) Create(ctx context.Context, name string) (types.Created, error) {
	var out types.Created
	err := c.do(ctx, http.MethodPost, "/api/match/create", map[string]string{"player1": name}, &out)
	return out, err
}

// Join seats name in sessionID.
func (c *Client) Join(ctx context.Context, sessionID, name string) (types.Joined, error) {
	var out types.Joined
	err := c.do(ctx, http.MethodPost, "/api/match/join",
		map[string]string{"sessionId": sessionID, "playerName": name}, &out)
	return out, err
}

// Run submits code and waits for the verdict.
func (c *Client) Run(ctx context.Context, sessionID, playerID, code string) (types.RunResult, error) {
	var out types.RunResult
	err := c.do(ctx, http.MethodPost, "/api/match/run",
		types.RunRequest{SessionID: sessionID, PlayerID: playerID, Code: code}, &out)
	return out, err
}

// NextRound advances an ended round.
func (c *Client) NextRound(ctx context.Context, sessionID, playerID string) (types.Advanced, error) {
	var out types.Advanced
	err := c.do(ctx, http.MethodPost, "/api/match/next-round",
		map[string]string{"sessionId": sessionID, "playerId": playerID}, &out)
	return out, err
}

// Snapshot polls the session.
func (c *Client) Snapshot(ctx context.Context, sessionID string) (types.Snapshot, error) {
	var out types.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/match/"+sessionID, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
