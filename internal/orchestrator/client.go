package orchestrator

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

	"github.com/frameview/frameview/internal/auth"
	"github.com/frameview/frameview/pkg/types"
)

// Client talks to the sandbox orchestration service. It is a thin wire
// client: state tracking, polling, and retries live in internal/preview.
type Client struct {
	baseURL    string
	tokens     auth.TokenSource
	httpClient *http.Client
}

func New(baseURL string, tokens auth.TokenSource) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StartSession asks the orchestrator to provision a sandbox for the project.
// The service answers as soon as provisioning is underway; the returned info
// usually carries status "creating" and no surface URL yet.
func (c *Client) StartSession(ctx context.Context, req types.StartSessionRequest) (types.SessionInfo, error) {
	var out types.SessionInfo
	if err := c.doJSON(ctx, http.MethodPost, "/sessions/start", nil, req, &out); err != nil {
		return out, err
	}
	return out, nil
}

// SessionStatus fetches the current remote view of one session.
func (c *Client) SessionStatus(ctx context.Context, id string) (types.SessionInfo, error) {
	var out types.SessionInfo
	path := "/sessions/" + url.PathEscape(id) + "/status"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

// ListSessions returns every session the orchestrator knows about for the
// caller's credentials.
func (c *Client) ListSessions(ctx context.Context) ([]types.SessionInfo, error) {
	var out struct {
		Sessions []types.SessionInfo `json:"sessions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/sessions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// StopSession tears down a session. The orchestrator acks immediately and
// finishes teardown in the background.
func (c *Client) StopSession(ctx context.Context, id string) (types.StopSessionResponse, error) {
	var out types.StopSessionResponse
	req := types.StopSessionRequest{SessionID: id}
	if err := c.doJSON(ctx, http.MethodPost, "/sessions/stop", nil, req, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, q url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return err
	}
	if err := c.addAuth(req); err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &HTTPError{
			Method:     method,
			Path:       path,
			Status:     resp.Status,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addAuth(req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("resolve credential: %w", err)
	}
	if tok == "" {
		// Anonymous is fine; the orchestrator rejects us if it disagrees.
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}
