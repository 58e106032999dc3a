// Package transport sends a parsed [spec.Request] over HTTP.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.followtheprocess.codes/httprun/internal/spec"
	"go.followtheprocess.codes/log"
)

// Response is the result of sending a request.
type Response struct {
	Headers    http.Header   // Response headers
	Proto      string        // Protocol e.g. "HTTP/1.1"
	Status     string        // Status text e.g. "200 OK"
	Body       []byte        // Full response body
	StatusCode int           // Status code e.g. 200
	Elapsed    time.Duration // Time from sending the request to reading the whole body
}

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithHTTPClient sets the underlying [http.Client], the default is a fresh client
// with no timeout of its own.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// Client sends requests.
type Client struct {
	http   *http.Client // Underlying HTTP client
	logger *log.Logger  // Debug logging of requests and responses
}

// New returns a new [Client].
func New(logger *log.Logger, options ...Option) Client {
	client := Client{
		http:   &http.Client{},
		logger: logger.Prefixed("http"),
	}

	for _, option := range options {
		option(&client)
	}

	return client
}

// Do sends request, returning the full response.
//
// Headers are applied in order and the payload is only sent if it is not blank. The request
// is bound to ctx, if ctx is cancelled the error returned wraps its cause.
func (c Client) Do(ctx context.Context, request spec.Request) (Response, error) {
	method, err := ParseMethod(request.Method)
	if err != nil {
		return Response{}, err
	}

	var body io.Reader
	if strings.TrimSpace(request.Payload) != "" {
		body = strings.NewReader(request.Payload)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method.String(), request.URL, body)
	if err != nil {
		return Response{}, fmt.Errorf("could not build request: %w", err)
	}

	for _, header := range request.Headers {
		if strings.EqualFold(header.Name, "Host") {
			httpRequest.Host = header.Value
			continue
		}
		httpRequest.Header.Add(header.Name, header.Value)
	}

	c.logger.Debug("Sending request", "method", method.String(), "url", request.URL, "headers", len(request.Headers))

	start := time.Now()

	response, err := c.http.Do(httpRequest)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return Response{}, fmt.Errorf("HTTP: %w", cause)
		}
		return Response{}, fmt.Errorf("HTTP: %w", err)
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return Response{}, fmt.Errorf("could not read response body: %w", cause)
		}
		return Response{}, fmt.Errorf("could not read response body: %w", err)
	}

	elapsed := time.Since(start)

	c.logger.Debug("Got response", "status", response.Status, "bytes", len(contents), "elapsed", elapsed.String())

	return Response{
		Proto:      response.Proto,
		StatusCode: response.StatusCode,
		Status:     response.Status,
		Headers:    response.Header,
		Body:       contents,
		Elapsed:    elapsed,
	}, nil
}
