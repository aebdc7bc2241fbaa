package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/meibo/internal/config"
)

// Client is an HTTP implementation of DirectoryService.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the remote directory service at
// cfg.BaseURL. logger may be nil.
func NewClient(cfg *config.RemoteConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type comprehensiveSearchRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type cancelRequest struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason,omitempty"`
}

// ComprehensiveSearch runs the rich remote query, tagged with the session id.
func (c *Client) ComprehensiveSearch(ctx context.Context, query, sessionID string) (*ComprehensiveResult, error) {
	var result ComprehensiveResult
	err := c.postJSON(ctx, "/api/v1/directory/search",
		&comprehensiveSearchRequest{Query: query, SessionID: sessionID}, &result)
	if err != nil {
		return nil, fmt.Errorf("comprehensive search failed: %w", err)
	}
	return &result, nil
}

// GetChannelMembers looks up channels by term with their member lists.
func (c *Client) GetChannelMembers(ctx context.Context, term string) (*MembershipResult, error) {
	endpoint := c.baseURL + "/api/v1/directory/members?term=" + url.QueryEscape(term)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var result MembershipResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("channel members lookup failed: %w", err)
	}
	return &result, nil
}

// CancelRequestGroup asks the service to drop requests tagged with sessionID.
func (c *Client) CancelRequestGroup(ctx context.Context, sessionID, reason string) error {
	err := c.postJSON(ctx, "/api/v1/directory/cancel",
		&cancelRequest{SessionID: sessionID, Reason: reason}, nil)
	if err != nil {
		return fmt.Errorf("cancel request group failed: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote directory returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode remote response: %w", err)
	}
	return nil
}
