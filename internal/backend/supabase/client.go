// Package supabase implements the backend contracts against a hosted
// Supabase project: GoTrue for authentication and user administration,
// PostgREST for table writes.
//
// The same Client type serves the back-office server (created with the
// public anon key) and the seeding tool (created with the service key).
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/apotek/internal/backend"
)

const defaultTimeout = 10 * time.Second

// Client talks to one Supabase project. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
}

// New builds a Client for the project at rawURL authenticating with apiKey.
// A zero timeout falls back to 10s; every request is bounded by it.
func New(rawURL, apiKey string, timeout time.Duration) (*Client, error) {
	if rawURL == "" {
		return nil, errors.New("supabase url is empty")
	}
	if apiKey == "" {
		return nil, errors.New("supabase api key is empty")
	}
	u, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid supabase url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid supabase url %q", rawURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: u,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type request struct {
	method  string
	path    []string
	query   url.Values
	bearer  string
	body    any
	headers map[string]string
}

// do sends r and decodes a successful JSON response into out (when non-nil).
// Non-2xx responses are returned as *backend.APIError.
func (c *Client) do(ctx context.Context, r request, out any) error {
	u := c.baseURL.JoinPath(r.path...)
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return err
	}

	bearer := r.bearer
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, u.Path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, payload)
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseAPIError understands both GoTrue ({"error_code","msg"} and the older
// {"error","error_description"}) and PostgREST ({"code","message"}) bodies.
func parseAPIError(status int, body []byte) *backend.APIError {
	e := &backend.APIError{Status: status}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Code = firstString(payload, "error_code", "code", "error")
		e.Message = firstString(payload, "msg", "message", "error_description")
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func statusOf(err error) int {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
