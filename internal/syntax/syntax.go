// Package syntax handles the raw text of documents containing http requests, it knows
// the line grammar (head lines, headers, separators and comments), how to locate the
// request enclosing a cursor and how to report syntax errors to a user.
//
// The parsing of a single request block lives in the parser sub package.
package syntax

import (
	"fmt"
	"io"
	"strings"

	"go.followtheprocess.codes/hue"
)

// An ErrorHandler may be provided to parts of the parsing pipeline. If a syntax error is encountered and
// a non-nil handler was provided, it is called with the position info and error message.
type ErrorHandler func(pos Position, msg string)

// Position is an arbitrary source file position including file, line
// and column information. It can also express a range of source via StartCol
// and EndCol, this is useful for error reporting.
//
// Position's without filenames are considered invalid, in the case of stdin
// the string "stdin" may be used.
type Position struct {
	Name     string // Filename
	Line     int    // Line number (1 indexed)
	StartCol int    // Start column (1 indexed)
	EndCol   int    // End column (1 indexed), EndCol == StartCol when pointing to a single character
}

// IsValid reports whether the [Position] describes a valid source position.
//
// The rules are:
//
//   - At least Name, Line and StartCol must be set (and non zero)
//   - EndCol cannot be 0, it's only allowed values are StartCol or any number greater than StartCol
func (p Position) IsValid() bool {
	if p.Name == "" || p.Line < 1 || p.StartCol < 1 || p.EndCol < 1 || p.EndCol < p.StartCol {
		return false
	}
	return true
}

// String returns a string representation of a [Position].
//
// It is formatted such that most text editors/terminals will be able to support clicking on it
// and navigating to the position.
//
// Depending on which fields are set, the string returned will be different:
//
//   - "file:line:start-end": valid position pointing to a range of text on the line
//   - "file:line:start": valid position pointing to a single character on the line (EndCol == StartCol)
//
// At least Name, Line and StartCol must be present for a valid position, and Line and StarCol must be > 0. If not, an error
// string will be returned.
func (p Position) String() string {
	if !p.IsValid() {
		return fmt.Sprintf(
			"BadPosition: {Name: %q, Line: %d, StartCol: %d, EndCol: %d}",
			p.Name,
			p.Line,
			p.StartCol,
			p.EndCol,
		)
	}

	if p.StartCol == p.EndCol {
		// No range, just a single position
		return fmt.Sprintf("%s:%d:%d", p.Name, p.Line, p.StartCol)
	}

	return fmt.Sprintf("%s:%d:%d-%d", p.Name, p.Line, p.StartCol, p.EndCol)
}

// MalformedRequestError is returned when the head line or a header line of a request
// does not match the expected grammar.
type MalformedRequestError struct {
	Line string   // The offending line of text
	Msg  string   // What was wrong with it
	Pos  Position // Where it is
}

// Error implements the error interface for [MalformedRequestError].
func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Msg, e.Line)
}

// BoundaryNotFoundError is returned when there is no request head line at or
// above the cursor.
type BoundaryNotFoundError struct {
	Cursor int // The 0 indexed line the search started from
}

// Error implements the error interface for [BoundaryNotFoundError].
func (e *BoundaryNotFoundError) Error() string {
	return fmt.Sprintf("could not find the beginning of the request enclosing line %d", e.Cursor+1)
}

// PrettyConsoleHandler returns a [ErrorHandler] that formats the syntax error for
// display on the terminal to a user, showing the surrounding lines of doc.
func PrettyConsoleHandler(w io.Writer, doc Document) ErrorHandler {
	return func(pos Position, msg string) {
		fmt.Fprintf(w, "%s: %s\n\n", pos, msg)

		lines := doc.Lines()
		if pos.Line < 1 || pos.Line > len(lines) {
			fmt.Fprintf(w, "unable to show src context: line %d out of range\n", pos.Line)
			return
		}

		const contextLines = 3

		startLine := max(pos.Line-contextLines, 1)
		endLine := min(pos.Line+contextLines, len(lines))

		for i := startLine; i <= endLine; i++ {
			margin := fmt.Sprintf("%d | ", i)
			fmt.Fprintf(w, "%s%s\n", margin, lines[i-1]) // Lines are 1 indexed
			if i == pos.Line {
				hue.Red.Fprintf(
					w,
					"%s%s\n",
					strings.Repeat(" ", len(margin)+pos.StartCol-1),
					strings.Repeat("─", max(pos.EndCol-pos.StartCol, 1)),
				)
			}
		}
	}
}
