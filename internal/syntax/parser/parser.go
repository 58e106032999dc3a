// Package parser implements the parser for a single request block.
//
// A block is a head line ("METHOD URL"), an optional run of "Name: Value" headers and,
// after the first blank line, a verbatim payload. The parser resolves variables in the
// URL and headers as it goes, the payload is never resolved.
package parser

import (
	"context"
	"fmt"
	"strings"

	"go.followtheprocess.codes/httprun/internal/resolve"
	"go.followtheprocess.codes/httprun/internal/spec"
	"go.followtheprocess.codes/httprun/internal/syntax"
)

const (
	msgBadHead   = "unable to parse the request line"
	msgBadHeader = "invalid header line"
)

// Resolver resolves variables (and possibly shell expansions) in a piece of request text.
//
// [resolve.Resolver] is the canonical implementation.
type Resolver interface {
	Resolve(ctx context.Context, text string, vars map[string]string) (string, error)
}

// stateFn represents the state of the parser as a function that returns the next state.
type stateFn func(*Parser) stateFn

// Option is a functional option for configuring a [Parser].
type Option func(*Parser)

// StartLine sets the (1 indexed) line of the document the text begins on, so that
// error positions point into the document rather than the block.
//
// The default is 1.
func StartLine(line int) Option {
	return func(p *Parser) {
		if line > 0 {
			p.startLine = line
		}
	}
}

// line is a single line of request text along with where it came from.
type line struct {
	text   string
	number int // Line number in the document (1 indexed)
}

// Parser is the request block parser.
type Parser struct {
	ctx       context.Context     // Context for the current parse, passed to the resolver
	err       error               // The error that stopped the state machine, if any
	resolver  Resolver            // Resolves variables in the URL and headers
	handler   syntax.ErrorHandler // The error handler, may be nil
	vars      map[string]string   // Variables in scope for the current parse
	name      string              // Name of the file the block came from
	request   spec.Request        // The request being built
	lines     []line              // Lines of the block, comments removed
	payload   []string            // Payload lines collected so far
	pos       int                 // Index of the next line to consume
	startLine int                 // Line number of the first line of text
}

// New returns a new [Parser] for the request block text.
//
// The name is used in error positions e.g. the filename or "stdin". If resolver is nil, a
// [resolve.Resolver] without shell expansion is used.
func New(name, text string, resolver Resolver, handler syntax.ErrorHandler, options ...Option) *Parser {
	if resolver == nil {
		resolver = resolve.New()
	}

	p := &Parser{
		resolver:  resolver,
		handler:   handler,
		name:      name,
		startLine: 1,
	}

	for _, option := range options {
		option(p)
	}

	p.lines = split(text, p.startLine)

	return p
}

// Parse parses the block to completion, returning the resolved [spec.Request].
//
// A malformed head or header line is returned as a [*syntax.MalformedRequestError] after
// reporting it to the installed [syntax.ErrorHandler]. No partial request is ever returned,
// on error the request is always the zero value.
func (p *Parser) Parse(ctx context.Context, vars map[string]string) (spec.Request, error) {
	p.ctx = ctx
	p.vars = vars
	p.err = nil
	p.pos = 0
	p.payload = nil
	p.request = spec.Request{}

	for state := parseHead; state != nil; {
		state = state(p)
	}

	if p.err != nil {
		return spec.Request{}, p.err
	}

	p.request.Payload = strings.Join(p.payload, "\n")

	return p.request, nil
}

// next returns, and consumes, the next line of the block.
func (p *Parser) next() (line, bool) {
	if p.pos >= len(p.lines) {
		return line{}, false
	}

	current := p.lines[p.pos]
	p.pos++

	return current, true
}

// resolve resolves variables in text, what describes text for the error message.
func (p *Parser) resolve(what, text string) (string, bool) {
	resolved, err := p.resolver.Resolve(p.ctx, text, p.vars)
	if err != nil {
		p.err = fmt.Errorf("could not resolve %s %q: %w", what, text, err)
		return "", false
	}

	return resolved, true
}

// malformed records a syntax error on l and calls the installed error handler.
func (p *Parser) malformed(l line, msg string) {
	trimmed := strings.TrimSpace(l.text)
	startCol := 1 + strings.Index(l.text, trimmed)
	endCol := max(startCol+len(trimmed)-1, startCol)

	if trimmed == "" {
		startCol, endCol = 1, 1
	}

	pos := syntax.Position{
		Name:     p.name,
		Line:     l.number,
		StartCol: startCol,
		EndCol:   endCol,
	}

	p.err = &syntax.MalformedRequestError{Pos: pos, Msg: msg, Line: l.text}

	if p.handler != nil {
		p.handler(pos, msg)
	}
}

// parseHead parses the request line, it must be the first line of the block.
func parseHead(p *Parser) stateFn {
	current, ok := p.next()
	if !ok {
		p.malformed(line{number: p.startLine}, msgBadHead)
		return nil
	}

	method, rawURL, ok := syntax.Head(current.text)
	if !ok {
		p.malformed(current, msgBadHead)
		return nil
	}

	url, ok := p.resolve("URL", rawURL)
	if !ok {
		return nil
	}

	p.request.Method = strings.ToLower(method)
	p.request.URL = url

	return parseHeaders
}

// parseHeaders parses "Name: Value" lines up to the first blank line.
func parseHeaders(p *Parser) stateFn {
	for {
		current, ok := p.next()
		if !ok {
			return nil
		}

		if strings.TrimSpace(current.text) == "" {
			// The blank line itself is not part of the payload
			return parsePayload
		}

		rawName, rawValue, ok := syntax.Header(current.text)
		if !ok {
			p.malformed(current, msgBadHeader)
			return nil
		}

		name, ok := p.resolve("header name", rawName)
		if !ok {
			return nil
		}

		value, ok := p.resolve("header value", rawValue)
		if !ok {
			return nil
		}

		p.request.Headers.Set(name, value)
	}
}

// parsePayload collects every remaining line verbatim.
func parsePayload(p *Parser) stateFn {
	for {
		current, ok := p.next()
		if !ok {
			return nil
		}

		p.payload = append(p.payload, current.text)
	}
}

// split splits text into numbered lines, dropping full line comments and any
// blank lines at the very start or end of the text.
func split(text string, startLine int) []line {
	raw := strings.Split(text, "\n")

	first, last := 0, len(raw)-1
	for first <= last && isBlank(raw[first]) {
		first++
	}
	for last >= first && isBlank(raw[last]) {
		last--
	}

	lines := make([]line, 0, last-first+1)
	for i := first; i <= last; i++ {
		text := strings.TrimSuffix(raw[i], "\r")
		if syntax.IsComment(text) {
			continue
		}
		lines = append(lines, line{text: text, number: startLine + i})
	}

	return lines
}

// isBlank reports whether s is empty or only whitespace.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
