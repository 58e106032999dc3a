// Package spec provides the [Request] data structure, a single http request as parsed
// from a request block.
//
// A Request is "resolved", meaning that variable interpolation e.g. `{{...}}` and shell
// expansion e.g. `$(...)` have been performed on its URL and headers, it is ready to be
// handed to a transport.
package spec

import (
	"encoding/json"
	"fmt"
	"strings"
)

// A Request represents a single HTTP request described in a request block.
type Request struct {
	// The HTTP method, always lowercase e.g. "get"
	Method string `json:"method,omitempty"`

	// The complete URL with any variable interpolation evaluated
	URL string `json:"url,omitempty"`

	// Request headers in the order they were first declared
	Headers Headers `json:"headers,omitempty"`

	// Request body, verbatim, may be empty
	Payload string `json:"payload,omitempty"`
}

// String implements [fmt.Stringer] for a [Request].
//
// The output is itself a valid request block.
func (r Request) String() string {
	builder := &strings.Builder{}

	fmt.Fprintf(builder, "%s %s\n", strings.ToUpper(r.Method), r.URL)

	for _, header := range r.Headers {
		fmt.Fprintf(builder, "%s: %s\n", header.Name, header.Value)
	}

	// Separate the body section
	if r.Payload != "" {
		fmt.Fprintf(builder, "\n%s\n", r.Payload)
	}

	return builder.String()
}

// Header is a single request header.
type Header struct {
	Name  string // The header name, exactly as written
	Value string // The header value
}

// Headers is an ordered set of request headers.
//
// Names are case sensitive, each name appears at most once.
type Headers []Header

// Set sets the value of the header called name, if it already exists its value
// is replaced in place, otherwise it's appended.
func (h *Headers) Set(name, value string) {
	for i, header := range *h {
		if header.Name == name {
			(*h)[i].Value = value
			return
		}
	}

	*h = append(*h, Header{Name: name, Value: value})
}

// Get returns the value of the header called name and whether it was present.
func (h Headers) Get(name string) (string, bool) {
	for _, header := range h {
		if header.Name == name {
			return header.Value, true
		}
	}

	return "", false
}

// Map returns the headers as a map.
func (h Headers) Map() map[string]string {
	m := make(map[string]string, len(h))
	for _, header := range h {
		m[header.Name] = header.Value
	}

	return m
}

// MarshalJSON implements [json.Marshaler] for [Headers], encoding them as
// an object with keys in declaration order.
func (h Headers) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, header := range h {
		if i > 0 {
			buf = append(buf, ',')
		}

		name, err := json.Marshal(header.Name)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(header.Value)
		if err != nil {
			return nil, err
		}

		buf = append(buf, name...)
		buf = append(buf, ':')
		buf = append(buf, value...)
	}

	buf = append(buf, '}')

	return buf, nil
}
