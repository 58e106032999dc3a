// Package render formats HTTP responses for display.
//
// The output is itself http syntax: a status line, the response headers, a blank line
// and then the body, pretty printed if it is JSON.
package render

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"go.followtheprocess.codes/httprun/internal/transport"
	"go.followtheprocess.codes/hue"
)

// Options control how a response is rendered.
type Options struct {
	Color bool // Colourise the status line and JSON bodies for a terminal
}

// Response writes response to w.
func Response(w io.Writer, response transport.Response, options Options) error {
	buf := &bytes.Buffer{}

	status := StatusLine(response)
	if options.Color {
		statusStyle(response.StatusCode).Fprintf(buf, "%s\n", status)
	} else {
		fmt.Fprintf(buf, "%s\n", status)
	}

	writeHeaders(buf, response.Headers)

	if body := Body(response.Body, options.Color); len(body) != 0 {
		buf.WriteByte('\n')
		buf.Write(body)
	}

	_, err := buf.WriteTo(w)
	return err
}

// StatusLine returns the status line of response e.g. "HTTP/1.1 200 OK".
func StatusLine(response transport.Response) string {
	proto := response.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}

	text := strings.TrimSpace(strings.TrimPrefix(response.Status, fmt.Sprint(response.StatusCode)))
	if text == "" {
		text = http.StatusText(response.StatusCode)
	}

	return fmt.Sprintf("%s %d %s", proto, response.StatusCode, text)
}

// Body returns the body ready for display, always ending in a newline unless it is empty.
//
// A valid JSON body is pretty printed, anything else is returned as is.
func Body(body []byte, color bool) []byte {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if gjson.ValidBytes(body) {
		formatted := pretty.Pretty(body)
		if color {
			formatted = pretty.Color(formatted, nil)
		}
		return formatted
	}

	if !bytes.HasSuffix(body, []byte("\n")) {
		return append(slices.Clip(body), '\n')
	}

	return body
}

// writeHeaders writes headers sorted by name, one line per value.
func writeHeaders(w io.Writer, headers http.Header) {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		for _, value := range headers[name] {
			fmt.Fprintf(w, "%s: %s\n", name, value)
		}
	}
}

// statusStyle returns the colour for a status code.
func statusStyle(code int) hue.Style {
	switch {
	case code >= http.StatusBadRequest:
		return hue.Red
	case code >= http.StatusMultipleChoices:
		return hue.Yellow
	default:
		return hue.Green
	}
}
