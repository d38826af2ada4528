// Package schema defines the schema retriever contract the type checker
// consumes, and ships two retrievers: an in-memory map for tests and a
// YAML manifest loader for catalogues on disk.
package schema

import (
	"context"
	"fmt"

	"github.com/ttlang/go-tt/internal/ast"
)

// ClassMeta is the full function catalogue of one class.
type ClassMeta struct {
	Triggers map[string]*ast.FunctionDef
	Queries  map[string]*ast.FunctionDef
	Actions  map[string]*ast.FunctionDef
}

// Retriever resolves class names to function signatures. Implementations
// may be backed by I/O; both operations honor context cancellation, and a
// cancelled retrieval aborts the enclosing compilation.
type Retriever interface {
	// GetSchema returns the signature of one function of a class.
	GetSchema(ctx context.Context, class string, kind ast.FunctionKind, function string) (*ast.FunctionDef, error)

	// GetFullMeta returns every function of a class.
	GetFullMeta(ctx context.Context, class string) (*ClassMeta, error)
}

// MapRetriever is an in-memory Retriever backed by a class map.
type MapRetriever struct {
	classes map[string]*ClassMeta
}

// NewMapRetriever creates an empty MapRetriever.
func NewMapRetriever() *MapRetriever {
	return &MapRetriever{classes: make(map[string]*ClassMeta)}
}

// AddClass registers the full catalogue of a class.
func (r *MapRetriever) AddClass(name string, meta *ClassMeta) {
	r.classes[name] = meta
}

// AddQuery registers a single query signature.
func (r *MapRetriever) AddQuery(class string, def *ast.FunctionDef) {
	r.meta(class).Queries[def.Name] = def
}

// AddAction registers a single action signature.
func (r *MapRetriever) AddAction(class string, def *ast.FunctionDef) {
	r.meta(class).Actions[def.Name] = def
}

// AddTrigger registers a single stream signature.
func (r *MapRetriever) AddTrigger(class string, def *ast.FunctionDef) {
	r.meta(class).Triggers[def.Name] = def
}

func (r *MapRetriever) meta(class string) *ClassMeta {
	m, ok := r.classes[class]
	if !ok {
		m = &ClassMeta{
			Triggers: make(map[string]*ast.FunctionDef),
			Queries:  make(map[string]*ast.FunctionDef),
			Actions:  make(map[string]*ast.FunctionDef),
		}
		r.classes[class] = m
	}
	return m
}

// GetSchema implements Retriever.
func (r *MapRetriever) GetSchema(ctx context.Context, class string, kind ast.FunctionKind, function string) (*ast.FunctionDef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, ok := r.classes[class]
	if !ok {
		return nil, fmt.Errorf("unknown class @%s", class)
	}
	var def *ast.FunctionDef
	switch kind {
	case ast.StreamKind:
		def = meta.Triggers[function]
	case ast.ActionKind:
		def = meta.Actions[function]
	default:
		def = meta.Queries[function]
	}
	if def == nil {
		return nil, fmt.Errorf("class @%s has no %s %s", class, kind, function)
	}
	return def, nil
}

// GetFullMeta implements Retriever.
func (r *MapRetriever) GetFullMeta(ctx context.Context, class string) (*ClassMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, ok := r.classes[class]
	if !ok {
		return nil, fmt.Errorf("unknown class @%s", class)
	}
	return meta, nil
}

// FromClassDefs builds a MapRetriever out of parsed class declarations.
// Queries that are monitorable are registered as triggers too.
func FromClassDefs(classes []*ast.ClassDef) *MapRetriever {
	r := NewMapRetriever()
	for _, c := range classes {
		meta := r.meta(c.Name)
		for name, def := range c.Queries {
			meta.Queries[name] = def
			if def.IsMonitorable {
				meta.Triggers[name] = def
			}
		}
		for name, def := range c.Actions {
			meta.Actions[name] = def
		}
	}
	return r
}
