package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ttlang/go-tt/internal/ast"
	"github.com/ttlang/go-tt/internal/types"
)

// manifest is the on-disk YAML shape of one class catalogue.
type manifest struct {
	Class   string                      `yaml:"class"`
	Extends []string                    `yaml:"extends"`
	Queries map[string]manifestFunction `yaml:"queries"`
	Actions map[string]manifestFunction `yaml:"actions"`
}

type manifestFunction struct {
	Monitorable   bool           `yaml:"monitorable"`
	List          bool           `yaml:"list"`
	RequireFilter bool           `yaml:"require_filter"`
	Projection    []string       `yaml:"default_projection"`
	Extends       []string       `yaml:"extends"`
	Args          []manifestArg  `yaml:"args"`
}

type manifestArg struct {
	Direction string `yaml:"direction"` // in_req, in_opt, out
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
}

// ManifestRetriever loads class manifests from YAML files in a directory.
// Files are named <class>.yaml and loaded lazily, once.
type ManifestRetriever struct {
	dir string

	mu     sync.Mutex
	loaded map[string]*ClassMeta
}

// NewManifestRetriever creates a retriever over a manifest directory.
func NewManifestRetriever(dir string) *ManifestRetriever {
	return &ManifestRetriever{dir: dir, loaded: make(map[string]*ClassMeta)}
}

// GetSchema implements Retriever.
func (r *ManifestRetriever) GetSchema(ctx context.Context, class string, kind ast.FunctionKind, function string) (*ast.FunctionDef, error) {
	meta, err := r.GetFullMeta(ctx, class)
	if err != nil {
		return nil, err
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
func (r *ManifestRetriever) GetFullMeta(ctx context.Context, class string) (*ClassMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if meta, ok := r.loaded[class]; ok {
		return meta, nil
	}

	path := filepath.Join(r.dir, class+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unknown class @%s: %w", class, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest for @%s: %w", class, err)
	}

	meta, err := m.toMeta(class)
	if err != nil {
		return nil, err
	}
	r.loaded[class] = meta
	return meta, nil
}

func (m *manifest) toMeta(class string) (*ClassMeta, error) {
	meta := &ClassMeta{
		Triggers: make(map[string]*ast.FunctionDef),
		Queries:  make(map[string]*ast.FunctionDef),
		Actions:  make(map[string]*ast.FunctionDef),
	}
	for name, fn := range m.Queries {
		def, err := fn.toDef(ast.QueryKind, name, class)
		if err != nil {
			return nil, err
		}
		meta.Queries[name] = def
		if def.IsMonitorable {
			meta.Triggers[name] = def
		}
	}
	for name, fn := range m.Actions {
		def, err := fn.toDef(ast.ActionKind, name, class)
		if err != nil {
			return nil, err
		}
		meta.Actions[name] = def
	}
	return meta, nil
}

func (f *manifestFunction) toDef(kind ast.FunctionKind, name, class string) (*ast.FunctionDef, error) {
	args := make([]*ast.ArgumentDef, 0, len(f.Args))
	for _, a := range f.Args {
		typ, err := ParseType(a.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s argument %s: %w", class, name, a.Name, err)
		}
		var dir ast.ArgDirection
		switch a.Direction {
		case "in_req":
			dir = ast.InReq
		case "in_opt":
			dir = ast.InOpt
		case "out":
			dir = ast.Out
		default:
			return nil, fmt.Errorf("%s.%s argument %s: unknown direction %q", class, name, a.Name, a.Direction)
		}
		args = append(args, &ast.ArgumentDef{Direction: dir, Name: a.Name, Type: typ})
	}

	def := ast.NewFunctionDef(kind, name, args)
	def.ClassName = class
	def.IsMonitorable = f.Monitorable
	def.IsList = f.List
	def.RequireFilter = f.RequireFilter
	def.DefaultProjection = f.Projection
	def.Extends = f.Extends
	return def, nil
}

// ParseType parses a type spelling as used in manifests: a primitive name
// or a parametric constructor such as Measure(C), Array(String),
// Entity(com.foo:bar), Enum(a, b) or Map(String, Number).
func ParseType(s string) (types.Type, error) {
	s = strings.TrimSpace(s)

	open := strings.IndexByte(s, '(')
	if open < 0 {
		switch s {
		case "Boolean":
			return types.Boolean, nil
		case "String":
			return types.String, nil
		case "Number":
			return types.Number, nil
		case "Currency":
			return types.Currency, nil
		case "Date":
			return types.Date, nil
		case "Time":
			return types.Time, nil
		case "Location":
			return types.Location, nil
		case "RecurrentTimeSpecification":
			return types.RecTimeSpec, nil
		case "User":
			return types.User, nil
		case "Feed":
			return types.Feed, nil
		case "Any":
			return types.Any{}, nil
		case "ArgMap":
			return types.ArgMap{}, nil
		}
		return nil, fmt.Errorf("unknown type %q", s)
	}

	if !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("malformed type %q", s)
	}
	head := s[:open]
	inner := s[open+1 : len(s)-1]

	switch head {
	case "Measure":
		return types.Measure{Unit: strings.TrimSpace(inner)}, nil
	case "Entity":
		return types.Entity{Name: strings.TrimSpace(inner)}, nil
	case "Enum":
		parts := splitTopLevel(inner)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return types.Enum{Members: parts}, nil
	case "Array":
		elem, err := ParseType(inner)
		if err != nil {
			return nil, err
		}
		return types.Array{Elem: elem}, nil
	case "Map":
		parts := splitTopLevel(inner)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed type %q", s)
		}
		key, err := ParseType(parts[0])
		if err != nil {
			return nil, err
		}
		value, err := ParseType(parts[1])
		if err != nil {
			return nil, err
		}
		return types.Map{Key: key, Value: value}, nil
	}
	return nil, fmt.Errorf("unknown type constructor %q", head)
}

// splitTopLevel splits on commas not nested inside parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
