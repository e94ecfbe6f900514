// Package client talks to the template REST API on behalf of the period
// reconciler and the operator CLI.
package client

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
)

// ErrNoToken is returned before any request is made when no bearer token is available.
var ErrNoToken = errors.New("client: no auth token available")

const defaultTimeout = 15 * time.Second

// TokenSource supplies the bearer token attached to every request.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource backed by a fixed string.
type StaticToken string

func (s StaticToken) Token() (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// HTTPError describes a non-2xx response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client is a small typed client for the /api/v1 template resources.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

// New creates a Client. baseURL includes the API prefix, e.g. http://localhost:8080/api/v1.
func New(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetTemplate fetches a template together with its ranges.
func (c *Client) GetTemplate(ctx context.Context, templateID string) (*Template, error) {
	var t Template
	if err := c.do(ctx, http.MethodGet, templatePath(templateID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTemplates returns the templates owned by the authenticated trainer.
func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	var list []Template
	if err := c.do(ctx, http.MethodGet, "/templates", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateRange adds a new range to a template.
func (c *Client) CreateRange(ctx context.Context, templateID string, body RangeUpdate) (*Range, error) {
	var r Range
	if err := c.do(ctx, http.MethodPost, templatePath(templateID)+"/ranges", body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRange replaces the name and bounds of a range. The response body is discarded.
func (c *Client) UpdateRange(ctx context.Context, templateID, rangeID string, body RangeUpdate) error {
	return c.do(ctx, http.MethodPut, rangePath(templateID, rangeID), body, nil)
}

// DeleteRange removes a range from a template.
func (c *Client) DeleteRange(ctx context.Context, templateID, rangeID string) error {
	return c.do(ctx, http.MethodDelete, rangePath(templateID, rangeID), nil, nil)
}

// ExportTemplate asks the server to render the template's ranges as a
// calendar file ("ics" or "xlsx") with plan day 1 on start.
func (c *Client) ExportTemplate(ctx context.Context, templateID, format string, start time.Time) (*Export, error) {
	q := url.Values{}
	q.Set("format", format)
	if !start.IsZero() {
		q.Set("start", start.Format("2006-01-02"))
	}
	var e Export
	if err := c.do(ctx, http.MethodPost, templatePath(templateID)+"/exports?"+q.Encode(), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func templatePath(templateID string) string {
	return "/templates/" + url.PathEscape(templateID)
}

func rangePath(templateID, rangeID string) string {
	return templatePath(templateID) + "/ranges/" + url.PathEscape(rangeID)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.tokens == nil {
		return ErrNoToken
	}
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	if token == "" {
		return ErrNoToken
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
