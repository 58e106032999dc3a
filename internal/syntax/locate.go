package syntax

import (
	"regexp"
	"strings"
)

var (
	// METHOD URL [HTTP/x.y], the version marker is not part of the URL which
	// must have at least one non space character.
	headPattern = regexp.MustCompile(`^\s*([A-Za-z]+)\s+(\S.*?)(?:\s+HTTP/\d+(?:\.\d+)?)?\s*$`)

	// Name: Value, applied to a line that has already been trimmed.
	headerPattern = regexp.MustCompile(`^([A-Za-z0-9_-]+)\s*:\s*(.*?)\s*$`)

	separatorPattern = regexp.MustCompile(`^\s*###`)
	commentPattern   = regexp.MustCompile(`^\s*#`)
)

// Head reports whether line is a request head line, returning its method
// (as written) and URL if it is.
func Head(line string) (method, url string, ok bool) {
	match := headPattern.FindStringSubmatch(line)
	if match == nil {
		return "", "", false
	}

	return match[1], match[2], true
}

// Header reports whether line is a "Name: Value" header line, returning the
// name and value if it is.
func Header(line string) (name, value string, ok bool) {
	match := headerPattern.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return "", "", false
	}

	return match[1], match[2], true
}

// IsSeparator reports whether line is a "###" request separator.
func IsSeparator(line string) bool {
	return separatorPattern.MatchString(line)
}

// IsComment reports whether line is a full line '#' comment, note that
// separators are also comments.
func IsComment(line string) bool {
	return commentPattern.MatchString(line)
}

// Locate finds the request enclosing the (0 indexed) cursor line in doc.
//
// The start of the request is the first head line found scanning upwards from
// the cursor (inclusive), the end is the line before the first separator found
// scanning downwards from the cursor or the end of the document if there is none.
//
// If there is no head line at or above the cursor, a [*BoundaryNotFoundError] is
// returned.
func Locate(doc Document, cursor int) (Block, error) {
	lines := doc.Lines()
	if cursor < 0 || cursor >= len(lines) {
		return Block{}, &BoundaryNotFoundError{Cursor: cursor}
	}

	start := -1
	for i := cursor; i >= 0; i-- {
		if _, _, ok := Head(lines[i]); ok {
			start = i
			break
		}
	}

	if start == -1 {
		return Block{}, &BoundaryNotFoundError{Cursor: cursor}
	}

	return Block{
		Head:  strings.TrimSpace(lines[start]),
		Start: start,
		End:   blockEnd(lines, cursor, start),
	}, nil
}

// LocateCursor is [Locate] driven by an editor [Buffer].
func LocateCursor(buf Buffer) (Block, error) {
	return Locate(Document{lines: buf.Lines()}, buf.Cursor())
}

// Blocks returns every request block in doc, in order.
//
// Each block is what [Locate] would return with the cursor on its head line.
func Blocks(doc Document) []Block {
	lines := doc.Lines()

	var blocks []Block
	for i := 0; i < len(lines); {
		if _, _, ok := Head(lines[i]); !ok {
			i++
			continue
		}

		end := blockEnd(lines, i, i)
		blocks = append(blocks, Block{
			Head:  strings.TrimSpace(lines[i]),
			Start: i,
			End:   end,
		})

		// end+1 is the separator (or past the end of the document)
		i = end + 2
	}

	return blocks
}

// blockEnd scans forward from 'from' for a separator, returning the line before it,
// never less than start. If there is no separator the last line is returned.
func blockEnd(lines []string, from, start int) int {
	for i := from; i < len(lines); i++ {
		if IsSeparator(lines[i]) {
			return max(i-1, start)
		}
	}

	return len(lines) - 1
}
