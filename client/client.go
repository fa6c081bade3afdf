// Package client talks to a rules editor server over HTTP
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/liamcoop/ruleseditor/decisiontable"
)

const defaultTimeout = 30 * time.Second

// APIError is returned for responses the client cannot interpret as a result
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("server returned %d: %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// errorBody mirrors the server's error response
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Client calls the /rules endpoints of one table
type Client struct {
	baseURL    string
	table      string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTable targets a named table instead of the server's default
func WithTable(name string) Option {
	return func(c *Client) {
		c.table = name
	}
}

// New creates a client for the server at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRules fetches the current table
func (c *Client) GetRules(ctx context.Context) (*decisiontable.DecisionTable, error) {
	var table decisiontable.DecisionTable
	if err := c.do(ctx, http.MethodGet, "", nil, &table, http.StatusOK); err != nil {
		return nil, err
	}
	return &table, nil
}

// ValidateRules asks the server to validate table without saving it
func (c *Client) ValidateRules(ctx context.Context, table *decisiontable.DecisionTable) (decisiontable.ValidationResult, error) {
	var result decisiontable.ValidationResult
	if err := c.do(ctx, http.MethodPost, "/validate", table, &result, http.StatusOK); err != nil {
		return decisiontable.ValidationResult{}, err
	}
	return result, nil
}

// SaveRules validates and saves table. A table rejected by validation is
// not an error: the returned result has OK false.
func (c *Client) SaveRules(ctx context.Context, table *decisiontable.DecisionTable) (decisiontable.ValidationResult, error) {
	var result decisiontable.ValidationResult
	if err := c.do(ctx, http.MethodPost, "/save", table, &result, http.StatusOK, http.StatusBadRequest); err != nil {
		return decisiontable.ValidationResult{}, err
	}
	return result, nil
}

func (c *Client) endpoint(suffix string) string {
	if c.table == "" {
		return c.baseURL + "/rules" + suffix
	}
	return c.baseURL + "/tables/" + url.PathEscape(c.table) + "/rules" + suffix
}

// do sends body as JSON and decodes the response into out when the status
// is one of accept
func (c *Client) do(ctx context.Context, method, suffix string, body, out any, accept ...int) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(suffix), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if !slices.Contains(accept, resp.StatusCode) {
		return newAPIError(resp.StatusCode, respBody)
	}
	// an accepted error status may still carry an error body instead of a result
	if resp.StatusCode >= 400 && hasErrorBody(respBody) {
		return newAPIError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func hasErrorBody(body []byte) bool {
	var eb errorBody
	return json.Unmarshal(body, &eb) == nil && eb.Error != ""
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		apiErr.Message = eb.Error
		apiErr.Details = eb.Details
	}
	return apiErr
}
