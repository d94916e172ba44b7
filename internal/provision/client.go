package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrMissingURL is returned when the client has no upstream endpoint.
var ErrMissingURL = errors.New("provisioning url not configured")

// Result is a completed upstream exchange. Body holds the raw JSON bytes
// exactly as the provisioning API sent them.
type Result struct {
	StatusCode int
	Body       json.RawMessage
}

// OK reports whether the upstream accepted the request.
func (r Result) OK() bool {
	return r.StatusCode == http.StatusOK
}

// ErrorField returns the upstream "error" member, if the body is an object
// that carries one.
func (r Result) ErrorField() (json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(r.Body, &obj); err != nil {
		return nil, false
	}
	v, ok := obj["error"]
	return v, ok
}

// Client starts bot sessions against the provisioning API. It makes a
// single attempt per call; there is no client timeout and no retry.
type Client struct {
	url    string
	apiKey string
	client *http.Client
}

func NewClient(url, apiKey string) *Client {
	return NewClientWithHTTP(url, apiKey, &http.Client{})
}

func NewClientWithHTTP(url, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		url:    strings.TrimSpace(url),
		apiKey: apiKey,
		client: httpClient,
	}
}

// Configured reports whether an upstream URL is set.
func (c *Client) Configured() bool {
	return c != nil && c.url != ""
}

// Start posts payload to the provisioning API and returns its status and
// body. Any non-nil error means the exchange did not complete: transport
// failure, unreadable body, or a body that is not JSON.
func (c *Client) Start(ctx context.Context, payload Payload) (Result, error) {
	if !c.Configured() {
		return Result{}, ErrMissingURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if !json.Valid(raw) {
		return Result{}, fmt.Errorf("provisioning api status %d: response is not json", res.StatusCode)
	}

	return Result{StatusCode: res.StatusCode, Body: raw}, nil
}
