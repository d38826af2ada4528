// Package ast defines the Abstract Syntax Tree node types for TT.
package ast

import (
	"github.com/ttlang/go-tt/pkg/token"
)

// Node is the base interface for all AST nodes.
// Every node reports its source span and a debug string representation.
type Node interface {
	// Pos returns the start position of the node for error reporting.
	Pos() token.Position

	// Span returns the source range of the node. The zero Range means the
	// node was built programmatically.
	Span() token.Range

	// String returns a string representation of the node for debugging.
	String() string
}

// span is the embeddable source-range carrier shared by all node structs.
type span struct {
	Range token.Range
}

func (s span) Pos() token.Position { return s.Range.Start }
func (s span) Span() token.Range   { return s.Range }

// SetSpan records the node's source range; the parser calls this on every
// node it builds.
func (s *span) SetSpan(r token.Range) { s.Range = r }

// SourceToken is one element of the token stream produced by ToSource.
// Either Text holds a literal piece of surface syntax (or one of the
// formatting pseudo-tokens below), or Const holds a structured constant
// that the pretty-printer renders back to surface syntax.
type SourceToken struct {
	Text  string
	Const Value
}

// Formatting pseudo-tokens understood by the pretty-printer.
const (
	TokSpace         = " "
	TokNewline       = "\n"
	TokCancelNewline = "\n-"
	TokIndent        = "\t+"
	TokDedent        = "\t-"
	TokTabPush       = "\t=+"
	TokTabPop        = "\t=-"
)

// lit wraps a literal string as a source token.
func lit(text string) SourceToken {
	return SourceToken{Text: text}
}

// constTok wraps a constant value as a source token.
func constTok(v Value) SourceToken {
	return SourceToken{Const: v}
}

// seq concatenates source token fragments.
func seq(parts ...[]SourceToken) []SourceToken {
	var out []SourceToken
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// toks builds a token slice from literals.
func toks(texts ...string) []SourceToken {
	out := make([]SourceToken, len(texts))
	for i, t := range texts {
		out[i] = lit(t)
	}
	return out
}

// AnnotationMap carries #[key=value] implementation annotations and
// #_[key=value] natural-language annotations attached to a declaration.
type AnnotationMap struct {
	Impl map[string]Value
	NL   map[string]Value
}

// Clone deep-copies the annotation map.
func (a AnnotationMap) Clone() AnnotationMap {
	out := AnnotationMap{}
	if a.Impl != nil {
		out.Impl = make(map[string]Value, len(a.Impl))
		for k, v := range a.Impl {
			out.Impl[k] = v.Clone()
		}
	}
	if a.NL != nil {
		out.NL = make(map[string]Value, len(a.NL))
		for k, v := range a.NL {
			out.NL[k] = v.Clone()
		}
	}
	return out
}

// Equals reports structural equality of two annotation maps.
func (a AnnotationMap) Equals(other AnnotationMap) bool {
	if len(a.Impl) != len(other.Impl) || len(a.NL) != len(other.NL) {
		return false
	}
	for k, v := range a.Impl {
		ov, ok := other.Impl[k]
		if !ok || !v.Equals(ov) {
			return false
		}
	}
	for k, v := range a.NL {
		ov, ok := other.NL[k]
		if !ok || !v.Equals(ov) {
			return false
		}
	}
	return true
}

// valuesEqual compares two value slices element-wise.
func valuesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

// cloneValues deep-copies a value slice.
func cloneValues(vs []Value) []Value {
	if vs == nil {
		return nil
	}
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = v.Clone()
	}
	return out
}

// stringsEqual compares two string slices element-wise.
func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
