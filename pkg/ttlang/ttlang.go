// Package ttlang is the high-level entry point to the TT compiler: one
// call each for parsing, type checking, optimizing, formatting and
// compiling to IR.
package ttlang

import (
	"context"

	"github.com/ttlang/go-tt/internal/ast"
	"github.com/ttlang/go-tt/internal/ir"
	"github.com/ttlang/go-tt/internal/optimizer"
	"github.com/ttlang/go-tt/internal/parser"
	"github.com/ttlang/go-tt/internal/schema"
	"github.com/ttlang/go-tt/internal/typecheck"
	"github.com/ttlang/go-tt/pkg/printer"
)

// Parse parses a TT source text into its top-level input.
func Parse(source string) (ast.Input, error) {
	return parser.ParseString(source)
}

// Typecheck type-checks an input against a schema retriever, attaching
// inferred types and signatures in place.
func Typecheck(ctx context.Context, retriever schema.Retriever, input ast.Input) error {
	return typecheck.Typecheck(ctx, retriever, input)
}

// Optimize canonicalizes a type-checked input, returning a new tree.
func Optimize(input ast.Input) ast.Input {
	return optimizer.OptimizeInput(input)
}

// Compile runs the whole pipeline over a source text: parse, type-check,
// optimize, and lower to IR.
func Compile(ctx context.Context, retriever schema.Retriever, source string) (*ir.RootBlock, error) {
	input, err := Parse(source)
	if err != nil {
		return nil, err
	}
	if err := Typecheck(ctx, retriever, input); err != nil {
		return nil, err
	}
	optimized := Optimize(input)
	return ir.Compile(optimized)
}

// Format parses a source text and pretty-prints it back.
func Format(source string) (string, error) {
	input, err := Parse(source)
	if err != nil {
		return "", err
	}
	return printer.Print(input), nil
}
