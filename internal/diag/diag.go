// Package diag defines the compiler error taxonomy and formats errors
// with source context and caret indicators.
package diag

import (
	"fmt"
	"strings"

	"github.com/ttlang/go-tt/pkg/token"
)

// SyntaxError is produced by the lexer or the parser.
type SyntaxError struct {
	Message string
	Range   token.Range
}

// NewSyntaxError creates a syntax error covering the given range.
func NewSyntaxError(message string, rng token.Range) *SyntaxError {
	return &SyntaxError{Message: message, Range: rng}
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Range.Start, e.Message)
}

// TypeError is produced by the type checker. Expected and Observed carry
// the conflicting types when they are known.
type TypeError struct {
	Message  string
	Expected string
	Observed string
	Range    token.Range
}

// NewTypeError creates a type error covering the given range.
func NewTypeError(message string, rng token.Range) *TypeError {
	return &TypeError{Message: message, Range: rng}
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	msg := e.Message
	if e.Expected != "" || e.Observed != "" {
		msg = fmt.Sprintf("%s (expected %s, got %s)", msg, e.Expected, e.Observed)
	}
	return fmt.Sprintf("type error at %s: %s", e.Range.Start, msg)
}

// NotImplementedError guards prospective constructs.
type NotImplementedError struct {
	Construct string
}

// Error implements the error interface.
func (e *NotImplementedError) Error() string {
	return "not implemented: " + e.Construct
}

// UnserializableError is raised when an AST construct cannot be
// represented in the requested surface syntax.
type UnserializableError struct {
	Construct string
}

// Error implements the error interface.
func (e *UnserializableError) Error() string {
	return "cannot serialize " + e.Construct
}

// Format renders err with source context when the error carries a range.
// source may be empty, in which case only the message is printed.
func Format(err error, source, file string, color bool) string {
	switch e := err.(type) {
	case *SyntaxError:
		return formatRanged(e.Error(), e.Range, source, file, color)
	case *TypeError:
		return formatRanged(e.Error(), e.Range, source, file, color)
	}
	return err.Error()
}

// formatRanged prints the source line the error points at, with a caret
// under the offending column, in the same layout for every error kind.
func formatRanged(message string, rng token.Range, source, file string, color bool) string {
	var sb strings.Builder

	if file != "" {
		fmt.Fprintf(&sb, "Error in %s:%d:%d\n", file, rng.Start.Line, rng.Start.Column)
	} else {
		fmt.Fprintf(&sb, "Error at line %d:%d\n", rng.Start.Line, rng.Start.Column)
	}

	sourceLine := extractLine(source, rng.Start.Line)
	if sourceLine != "" {
		lineNumStr := fmt.Sprintf("%4d | ", rng.Start.Line)
		sb.WriteString(lineNumStr)
		sb.WriteString(sourceLine)
		sb.WriteString("\n")

		col := rng.Start.Column
		if col < 1 {
			col = 1
		}
		sb.WriteString(strings.Repeat(" ", len(lineNumStr)+col-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(message)
	if color {
		sb.WriteString("\033[0m")
	}

	return sb.String()
}

// extractLine returns the 1-indexed line from source, or "".
func extractLine(source string, lineNum int) string {
	if source == "" {
		return ""
	}
	lines := strings.Split(source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}
