package syntax

import (
	"fmt"
	"io"
	"strings"
)

// Document is the full text of an editable buffer, as an ordered sequence of lines.
//
// The core never modifies a Document.
type Document struct {
	lines []string
}

// NewDocument splits text into a [Document].
//
// Lines are split on '\n' and a trailing '\r' is dropped from each line, a single
// trailing newline at the end of text does not produce an extra empty line.
func NewDocument(text string) Document {
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	return Document{lines: lines}
}

// ReadDocument reads the whole of r into a [Document].
func ReadDocument(r io.Reader) (Document, error) {
	// Request files are small, it's fine to read the whole thing
	src, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read from input: %w", err)
	}

	return NewDocument(string(src)), nil
}

// Lines returns the lines of the document, callers must not modify the returned slice.
func (d Document) Lines() []string {
	return d.lines
}

// Len returns the number of lines in the document.
func (d Document) Len() int {
	return len(d.lines)
}

// Text returns the lines described by block, joined by newlines.
//
// The block is clamped to the bounds of the document.
func (d Document) Text(block Block) string {
	start := max(block.Start, 0)
	end := min(block.End, len(d.lines)-1)
	if start > end {
		return ""
	}

	return strings.Join(d.lines[start:end+1], "\n")
}

// WithCursor returns a [Buffer] over the document with the cursor on the
// given (0 indexed) line.
func (d Document) WithCursor(line int) Buffer {
	return cursorBuffer{doc: d, cursor: line}
}

// Buffer is the editor buffer as seen by the locator, it only ever needs
// reading.
type Buffer interface {
	// Lines returns the contents of the buffer.
	Lines() []string

	// Cursor returns the 0 indexed line the cursor is on.
	Cursor() int
}

// cursorBuffer is a [Buffer] backed by a [Document].
type cursorBuffer struct {
	doc    Document
	cursor int
}

func (c cursorBuffer) Lines() []string {
	return c.doc.Lines()
}

func (c cursorBuffer) Cursor() int {
	return c.cursor
}

// Block is a contiguous, inclusive range of lines in a [Document] holding
// exactly one request.
type Block struct {
	Head  string // The trimmed head line e.g. "GET https://example.com"
	Start int    // Line of the head line (0 indexed)
	End   int    // Last line of the request (0 indexed, inclusive), Start <= End
}

// FilterValue helps implement list.Item.
//
// See https://github.com/charmbracelet/bubbles/tree/master/list#adding-custom-items.
func (b Block) FilterValue() string {
	return b.Head
}

// Title returns the block's head line.
func (b Block) Title() string {
	return b.Head
}

// Description returns a description of the block, in this case where it is.
func (b Block) Description() string {
	if b.Start == b.End {
		return fmt.Sprintf("line %d", b.Start+1)
	}

	return fmt.Sprintf("lines %d-%d", b.Start+1, b.End+1)
}
