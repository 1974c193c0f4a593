// Package supabase is a thin HTTP client for the hosted backend-as-a-service
// the application delegates to: GoTrue auth, PostgREST tables and object
// storage. Every operation returns its data together with an explicit error
// value; callers are expected to inspect the error, nothing here panics.
package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Client is a client for the backend-as-a-service. The same client is shared
// by every consumer; per-request authorization is passed explicitly so the
// client itself stays stateless apart from the auth-change listeners.
type Client struct {
	BaseURL    string
	AnonKey    string
	HTTPClient *http.Client

	Auth    *AuthClient
	Storage *StorageClient

	cache *tableCache
}

// NewClient creates a new client for the service at baseURL.
func NewClient(baseURL, anonKey string) *Client {
	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		AnonKey: anonKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: newTableCache(cacheTTL),
	}
	c.Auth = &AuthClient{client: c}
	c.Storage = &StorageClient{client: c}
	return c
}

// WithIsolatedAuth returns a client sharing this client's transport and read
// cache but carrying its own auth-change listeners. Give one to each browser
// session, so one visitor's sign-in never notifies another's.
func (c *Client) WithIsolatedAuth() *Client {
	clone := *c
	clone.Auth = &AuthClient{client: &clone}
	clone.Storage = &StorageClient{client: &clone}
	return &clone
}

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// doRequest performs an HTTP request carrying the service API key.
// token, when non-empty, is sent as the bearer authorization; the anonymous
// key is used otherwise.
func (c *Client) doRequest(
	ctx context.Context,
	method, path, token string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}

	req.Header.Set("apikey", c.AnonKey)
	if token == "" {
		token = c.AnonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "sending request")
	}
	return resp, nil
}

// readBody drains a response body, turning non-2xx statuses into a typed
// *Error. The response body is closed by the caller.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseErrorResponse(resp, body)
	}
	return body, nil
}

// decodeJSON decodes a response into target, translating non-2xx statuses
// into a typed *Error. A nil target discards the body.
func decodeJSON(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseErrorResponse(resp, body)
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	if err = json.Unmarshal(body, target); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}
