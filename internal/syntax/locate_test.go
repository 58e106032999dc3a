package syntax_test

import (
	"errors"
	"testing"

	"github.com/MakeNowJust/heredoc"
	"go.followtheprocess.codes/httprun/internal/syntax"
	"go.followtheprocess.codes/test"
)

// twoRequests is a document with two requests separated by a ### line, line
// numbers (0 indexed) are in the comments on the right.
var twoRequests = heredoc.Doc(`
	GET https://example.com/users
	Accept: application/json

	###
	POST https://example.com/users
	Content-Type: application/json

	{"name": "Alice"}
`)

// 0: GET https://example.com/users
// 1: Accept: application/json
// 2:
// 3: ###
// 4: POST https://example.com/users
// 5: Content-Type: application/json
// 6:
// 7: {"name": "Alice"}

func TestLocate(t *testing.T) {
	doc := syntax.NewDocument(twoRequests)
	test.Equal(t, doc.Len(), 8)

	first := syntax.Block{Head: "GET https://example.com/users", Start: 0, End: 2}
	second := syntax.Block{Head: "POST https://example.com/users", Start: 4, End: 7}

	tests := []struct {
		name   string       // Name of the test case
		want   syntax.Block // Expected block
		cursor int          // Cursor line (0 indexed)
	}{
		{name: "on first head", cursor: 0, want: first},
		{name: "first headers", cursor: 1, want: first},
		{name: "blank before separator", cursor: 2, want: first},
		{name: "on second head", cursor: 4, want: second},
		{name: "second headers", cursor: 5, want: second},
		{name: "second blank", cursor: 6, want: second},
		{name: "second payload", cursor: 7, want: second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := syntax.Locate(doc, tt.cursor)
			test.Ok(t, err)
			test.Equal(t, got, tt.want)
		})
	}

	t.Run("second block text", func(t *testing.T) {
		block, err := syntax.Locate(doc, 5)
		test.Ok(t, err)

		want := "POST https://example.com/users\nContent-Type: application/json\n\n{\"name\": \"Alice\"}"
		test.Diff(t, doc.Text(block), want)
	})
}

func TestLocateOnSeparator(t *testing.T) {
	// The cursor on the separator itself belongs to the request above it, and the
	// forward scan immediately finds the separator so the block is clamped
	doc := syntax.NewDocument(twoRequests)

	got, err := syntax.Locate(doc, 3)
	test.Ok(t, err)
	test.Equal(t, got.Start, 0)
	test.Equal(t, got.End, 2)
}

func TestLocateClampedEnd(t *testing.T) {
	doc := syntax.NewDocument("GET /one\n###\nGET /two")

	got, err := syntax.Locate(doc, 0)
	test.Ok(t, err)
	test.Equal(t, got, syntax.Block{Head: "GET /one", Start: 0, End: 0})

	got, err = syntax.Locate(doc, 2)
	test.Ok(t, err)
	test.Equal(t, got, syntax.Block{Head: "GET /two", Start: 2, End: 2})
}

func TestLocateNotFound(t *testing.T) {
	src := heredoc.Doc(`
		# Users API
		# ---------

		GET https://example.com/users
	`)
	doc := syntax.NewDocument(src)

	for _, cursor := range []int{0, 1, 2} {
		_, err := syntax.Locate(doc, cursor)
		test.Err(t, err)

		var notFound *syntax.BoundaryNotFoundError
		test.True(t, errors.As(err, &notFound), test.Context("error was not a *syntax.BoundaryNotFoundError: %v", err))
		test.Equal(t, notFound.Cursor, cursor)
	}

	_, err := syntax.Locate(doc, 0)
	test.Equal(t, err.Error(), "could not find the beginning of the request enclosing line 1")
}

func TestLocateOutOfRange(t *testing.T) {
	doc := syntax.NewDocument("GET /")

	for _, cursor := range []int{-1, 1, 100} {
		_, err := syntax.Locate(doc, cursor)
		test.Err(t, err, test.Context("cursor %d should be out of range", cursor))
	}
}

func TestLocateCursor(t *testing.T) {
	doc := syntax.NewDocument(twoRequests)

	got, err := syntax.LocateCursor(doc.WithCursor(6))
	test.Ok(t, err)
	test.Equal(t, got.Start, 4)
	test.Equal(t, got.End, 7)
}

func TestLocateEveryLine(t *testing.T) {
	src := heredoc.Doc(`
		GET /one
		###
		# Second
		POST /two
		Content-Type: text/plain

		hello
		###

		PUT /three
	`)
	doc := syntax.NewDocument(src)

	// Property: for every line, Start <= End, Start is at or above the cursor
	// and Start is a head line
	for cursor := range doc.Len() {
		block, err := syntax.Locate(doc, cursor)
		if err != nil {
			t.Fatalf("Locate(%d) returned an unexpected error: %v", cursor, err)
		}

		test.True(t, block.Start <= block.End, test.Context("cursor %d: start %d > end %d", cursor, block.Start, block.End))
		test.True(t, block.Start <= cursor, test.Context("cursor %d: start %d after cursor", cursor, block.Start))

		_, _, ok := syntax.Head(doc.Lines()[block.Start])
		test.True(t, ok, test.Context("cursor %d: line %d is not a head line", cursor, block.Start))
	}
}

func TestBlocks(t *testing.T) {
	src := heredoc.Doc(`
		# A leading comment

		GET /one
		###
		POST /two
		Content-Type: text/plain

		hello
		###
		###
		  PUT /three HTTP/1.1
	`)
	doc := syntax.NewDocument(src)

	got := syntax.Blocks(doc)

	want := []syntax.Block{
		{Head: "GET /one", Start: 2, End: 2},
		{Head: "POST /two", Start: 4, End: 7},
		{Head: "PUT /three HTTP/1.1", Start: 10, End: 10},
	}

	test.Equal(t, len(got), len(want))
	for i := range want {
		test.Equal(t, got[i], want[i])

		located, err := syntax.Locate(doc, got[i].Start)
		test.Ok(t, err)
		test.Equal(t, located, got[i], test.Context("Blocks and Locate disagree on block %d", i))
	}

	test.Equal(t, got[1].Description(), "lines 5-8")
	test.Equal(t, got[2].Description(), "line 11")
	test.Equal(t, got[2].Title(), "PUT /three HTTP/1.1")
	test.Equal(t, got[2].FilterValue(), "PUT /three HTTP/1.1")
}

func TestBlocksEmpty(t *testing.T) {
	test.Equal(t, len(syntax.Blocks(syntax.NewDocument(""))), 0)
	test.Equal(t, len(syntax.Blocks(syntax.NewDocument("# nothing\n\n"))), 0)
}

func TestHead(t *testing.T) {
	tests := []struct {
		name   string // Name of the test case
		line   string // Line of text
		method string // Expected method
		url    string // Expected URL
		ok     bool   // Expected ok
	}{
		{name: "simple", line: "GET /users", method: "GET", url: "/users", ok: true},
		{name: "lowercase", line: "post https://example.com", method: "post", url: "https://example.com", ok: true},
		{name: "padding", line: "   PUT    /thing   ", method: "PUT", url: "/thing", ok: true},
		{name: "version", line: "GET /users HTTP/1.1", method: "GET", url: "/users", ok: true},
		{name: "version major only", line: "GET /users HTTP/2", method: "GET", url: "/users", ok: true},
		{name: "version padded", line: "GET /users   HTTP/1.1   ", method: "GET", url: "/users", ok: true},
		{name: "template", line: "GET https://{{HOST}}/ping", method: "GET", url: "https://{{HOST}}/ping", ok: true},
		{name: "query with spaces", line: "GET /search?q=a b", method: "GET", url: "/search?q=a b", ok: true},
		{name: "method only", line: "GET", ok: false},
		{name: "method and whitespace", line: "GET   ", ok: false},
		{name: "method and tab", line: "POST\t", ok: false},
		{name: "no method", line: "/users", ok: false},
		{name: "header", line: "Accept: application/json", ok: false},
		{name: "separator", line: "###", ok: false},
		{name: "blank", line: "", ok: false},
		{name: "digit method", line: "G3T /users", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, url, ok := syntax.Head(tt.line)
			test.Equal(t, ok, tt.ok)
			test.Equal(t, method, tt.method)
			test.Equal(t, url, tt.url)
		})
	}
}

func TestHeader(t *testing.T) {
	tests := []struct {
		name  string // Name of the test case
		line  string // Line of text
		key   string // Expected header name
		value string // Expected header value
		ok    bool   // Expected ok
	}{
		{name: "simple", line: "Accept: */*", key: "Accept", value: "*/*", ok: true},
		{name: "padding", line: "  X-Id  :  42  ", key: "X-Id", value: "42", ok: true},
		{name: "no space", line: "A:B", key: "A", value: "B", ok: true},
		{name: "empty value", line: "X-Empty:", key: "X-Empty", value: "", ok: true},
		{name: "colon in value", line: "Host: localhost:8080", key: "Host", value: "localhost:8080", ok: true},
		{name: "underscore", line: "x_api_key: 1", key: "x_api_key", value: "1", ok: true},
		{name: "template value", line: "Authorization: Bearer {{TOKEN}}", key: "Authorization", value: "Bearer {{TOKEN}}", ok: true},
		{name: "no colon", line: "BadHeaderNoColon", ok: false},
		{name: "space in name", line: "Content Type: json", ok: false},
		{name: "empty name", line: ": value", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, value, ok := syntax.Header(tt.line)
			test.Equal(t, ok, tt.ok)
			test.Equal(t, key, tt.key)
			test.Equal(t, value, tt.value)
		})
	}
}

func TestSeparatorAndComment(t *testing.T) {
	test.True(t, syntax.IsSeparator("###"))
	test.True(t, syntax.IsSeparator("  ### Get users"))
	test.True(t, !syntax.IsSeparator("## not quite"))
	test.True(t, !syntax.IsSeparator("GET /###"))

	test.True(t, syntax.IsComment("# comment"))
	test.True(t, syntax.IsComment("   #comment"))
	test.True(t, syntax.IsComment("###"))
	test.True(t, !syntax.IsComment("GET /#fragment"))
}
