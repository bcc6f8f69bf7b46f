package mini

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError reports source that does not match the grammar.
type ParseError struct {
	Pos  int // byte offset into the normalised source
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// CompileError reports syntactically valid source that cannot be turned into a
// pattern: an unknown chord type, an unbound spread name, a bad modifier.
type CompileError struct {
	Pos   int
	Line  int
	Col   int
	Token string
	Msg   string
}

func (e *CompileError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("compile error at %d:%d: %s", e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("compile error at %d:%d: %s in %q", e.Line, e.Col, e.Msg, e.Token)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsCompileError reports whether err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

func newParseError(src string, pos int, format string, args ...any) *ParseError {
	line, col := lineCol(src, pos)
	return &ParseError{Pos: pos, Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func newCompileError(src string, pos int, token, format string, args ...any) *CompileError {
	line, col := lineCol(src, pos)
	return &CompileError{Pos: pos, Line: line, Col: col, Token: token, Msg: fmt.Sprintf(format, args...)}
}

// lineCol converts a byte offset to 1-based line and rune column.
func lineCol(src string, pos int) (int, int) {
	if pos > len(src) {
		pos = len(src)
	}
	line, col := 1, 1
	for _, r := range src[:pos] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// FormatError renders err with the offending source line and a caret under the
// error column. Errors without a position are returned as plain text.
func FormatError(err error, src string) string {
	var line, col int
	var pe *ParseError
	var ce *CompileError
	switch {
	case errors.As(err, &pe):
		line, col = pe.Line, pe.Col
	case errors.As(err, &ce):
		line, col = ce.Line, ce.Col
	default:
		return err.Error()
	}

	lines := strings.Split(Normalize(src), "\n")
	if line < 1 || line > len(lines) {
		return err.Error()
	}
	gutter := fmt.Sprintf("%d", line)
	pad := strings.Repeat(" ", len(gutter))

	var b strings.Builder
	b.WriteString(err.Error())
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%s | %s\n", gutter, lines[line-1])
	fmt.Fprintf(&b, "%s | %s^", pad, strings.Repeat(" ", col-1))
	return b.String()
}
