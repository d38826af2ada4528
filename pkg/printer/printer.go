// Package printer renders the token stream produced by ToSource back into
// TT surface syntax.
//
// The printer walks the stream maintaining a buffer, the current indent,
// and a stack of column-aligned tab stops. Literal tokens are emitted
// verbatim; structured constant tokens are rendered back to surface
// syntax; the formatting pseudo-tokens control layout.
package printer

import (
	"strings"

	"github.com/ttlang/go-tt/internal/ast"
)

// Option configures a Printer.
type Option func(*Printer)

// WithIndent sets the number of spaces per indentation step.
func WithIndent(step int) Option {
	return func(p *Printer) {
		p.indentStep = step
	}
}

// Printer renders token streams.
type Printer struct {
	indentStep int
}

// New creates a Printer with the default two-space indent.
func New(opts ...Option) *Printer {
	p := &Printer{indentStep: 2}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Print renders a node's source emission to text.
func Print(n interface{ ToSource() []ast.SourceToken }) string {
	return New().Render(n.ToSource())
}

// Render renders a token stream to text.
func (p *Printer) Render(tokens []ast.SourceToken) string {
	var sb strings.Builder
	indent := 0
	var tabStops []int
	column := 0

	write := func(s string) {
		sb.WriteString(s)
		if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
			column = len(s) - idx - 1
		} else {
			column += len(s)
		}
	}

	currentIndent := func() int {
		if len(tabStops) > 0 {
			return tabStops[len(tabStops)-1]
		}
		return indent * p.indentStep
	}

	newline := func() {
		// Trim the trailing space so no line ends in whitespace.
		trimTrailingSpace(&sb)
		write("\n")
		write(strings.Repeat(" ", currentIndent()))
	}

	cancelNewline := func() {
		out := sb.String()
		trimmed := strings.TrimRight(out, " ")
		trimmed = strings.TrimSuffix(trimmed, "\n")
		sb.Reset()
		sb.WriteString(trimmed)
		column = len(trimmed) - strings.LastIndexByte(trimmed, '\n') - 1
	}

	for _, tok := range tokens {
		if tok.Const != nil {
			write(renderConstant(tok.Const))
			continue
		}
		switch tok.Text {
		case ast.TokSpace:
			write(" ")
		case ast.TokNewline:
			newline()
		case ast.TokCancelNewline:
			cancelNewline()
		case ast.TokIndent:
			indent++
		case ast.TokDedent:
			if indent > 0 {
				indent--
			}
		case ast.TokTabPush:
			tabStops = append(tabStops, column)
		case ast.TokTabPop:
			if len(tabStops) > 0 {
				tabStops = tabStops[:len(tabStops)-1]
			}
		default:
			write(tok.Text)
		}
	}

	trimTrailingSpace(&sb)
	return sb.String()
}

// trimTrailingSpace removes spaces at the end of the buffer.
func trimTrailingSpace(sb *strings.Builder) {
	out := sb.String()
	trimmed := strings.TrimRight(out, " ")
	if len(trimmed) != len(out) {
		sb.Reset()
		sb.WriteString(trimmed)
	}
}

// renderConstant renders a structured constant token back to surface
// syntax: strings escaped, numbers in decimal, dates as new Date("ISO"),
// and so on. Every constant value's debug representation is already its
// surface spelling except strings, which need escaping.
func renderConstant(v ast.Value) string {
	if s, ok := v.(*ast.StringValue); ok {
		return QuoteString(s.Value)
	}
	return v.String()
}

// QuoteString renders a string literal in TT surface syntax with escapes.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		case '\r':
			sb.WriteString("\\r")
		case '\v':
			sb.WriteString("\\v")
		case '\f':
			sb.WriteString("\\f")
		case '\b':
			sb.WriteString("\\b")
		case 0:
			sb.WriteString("\\0")
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
