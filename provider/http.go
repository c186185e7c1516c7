package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// HTTPClient calls a generation provider over plain HTTP. The request is a
// JSON document, the successful response body is the raw generated bytes.
type HTTPClient struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPDoer replaces the underlying *http.Client, e.g. to install a
// transport with session handling.
func WithHTTPDoer(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.hc = hc }
}

// WithAPIKey sets the bearer token attached to every request.
func WithAPIKey(key string) HTTPOption {
	return func(c *HTTPClient) { c.apiKey = key }
}

// NewHTTPClient creates a provider client for the given endpoint. The
// endpoint must accept POST <baseURL>/v1/generations.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		hc:      http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type generationPayload struct {
	Descriptor string `json:"descriptor"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Quality    string `json:"quality,omitempty"`
	Priority   int    `json:"priority,omitempty"`
}

// Generate performs a single provider call. Failures are returned as
// classified [*Error] values.
func (c *HTTPClient) Generate(ctx context.Context, req Request) ([]byte, error) {
	body, err := json.Marshal(generationPayload{
		Descriptor: req.Descriptor,
		Width:      req.Width,
		Height:     req.Height,
		Quality:    req.Quality,
		Priority:   req.Priority,
	})
	if err != nil {
		return nil, &Error{Kind: KindPermanent, Msg: "encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generations", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindPermanent, Msg: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, classifyStatus(resp.StatusCode, string(detail))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransientNetwork, Msg: "read response", Err: err}
	}
	return data, nil
}

// classifyTransportError maps a round-trip failure onto the taxonomy.
// Context expiry during the call counts as a timeout; everything else on
// the wire is a transient network failure.
func classifyTransportError(err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTransientTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindPermanent, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTransientTimeout, Err: err}
	}
	return &Error{Kind: KindTransientNetwork, Err: err}
}

// classifyStatus maps a non-200 HTTP status onto the taxonomy. Overload and
// server-side failures are transient, every other client error is an
// explicit rejection.
func classifyStatus(status int, detail string) *Error {
	kind := KindPermanent
	switch {
	case status == http.StatusRequestTimeout:
		kind = KindTransientTimeout
	case status == http.StatusTooManyRequests || status >= 500:
		kind = KindTransientNetwork
	}
	return &Error{
		Kind:   kind,
		Status: status,
		Msg:    fmt.Sprintf("%s: %s", http.StatusText(status), detail),
	}
}
