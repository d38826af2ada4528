// Package parser implements the recursive-descent parser for TT: token
// stream in, typed AST out.
package parser

import (
	"fmt"
	"strconv"

	"github.com/ttlang/go-tt/internal/ast"
	"github.com/ttlang/go-tt/internal/diag"
	"github.com/ttlang/go-tt/internal/lexer"
	"github.com/ttlang/go-tt/internal/types"
	"github.com/ttlang/go-tt/pkg/token"
)

// Parser consumes tokens from a lexer and produces AST nodes. The parser
// is fail-fast: the first syntax error aborts the parse.
type Parser struct {
	lex  *lexer.Lexer
	cur  token.Token
	peek token.Token
	err  *diag.SyntaxError
}

// New creates a Parser over a lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{lex: l}
	p.advance()
	p.advance()
	return p
}

// ParseString parses a complete TT source text.
func ParseString(source string) (ast.Input, error) {
	l := lexer.New(source)
	p := New(l)
	input, err := p.Parse()
	if err != nil {
		return nil, err
	}
	if lexErrs := l.Errors(); len(lexErrs) > 0 {
		first := lexErrs[0]
		return nil, diag.NewSyntaxError(first.Message, token.Range{Start: first.Pos, End: first.Pos})
	}
	return input, nil
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

// errorf records the first syntax error at the current token.
func (p *Parser) errorf(format string, args ...any) {
	if p.err != nil {
		return
	}
	p.err = diag.NewSyntaxError(fmt.Sprintf(format, args...), p.rangeAt(p.cur))
}

func (p *Parser) rangeAt(tok token.Token) token.Range {
	end := tok.Pos
	end.Column += len(tok.Literal)
	end.Offset += len(tok.Literal)
	return token.Range{Start: tok.Pos, End: end}
}

// expect consumes the current token when it has the wanted type, and
// records a syntax error otherwise.
func (p *Parser) expect(typ token.TokenType) token.Token {
	tok := p.cur
	if tok.Type != typ {
		p.errorf("expected %s, got %q", typ, tok.Literal)
		return tok
	}
	p.advance()
	return tok
}

// expectIdent consumes an identifier, also accepting contextual keywords
// in identifier position.
func (p *Parser) expectIdent() token.Token {
	tok := p.cur
	if tok.Type != token.IDENT && !tok.Type.IsContextualKeyword() {
		p.errorf("expected identifier, got %q", tok.Literal)
		return tok
	}
	p.advance()
	return tok
}

func (p *Parser) at(typ token.TokenType) bool {
	return p.cur.Type == typ
}

// atIdent reports whether the current token can serve as an identifier.
func (p *Parser) atIdent() bool {
	return p.cur.Type == token.IDENT || p.cur.Type.IsContextualKeyword()
}

// Parse parses a complete top-level input.
func (p *Parser) Parse() (ast.Input, error) {
	input := p.parseInput()
	if p.err != nil {
		return nil, p.err
	}
	if !p.at(token.EOF) {
		p.errorf("unexpected %q after input", p.cur.Literal)
		return nil, p.err
	}
	return input, nil
}

func (p *Parser) parseInput() ast.Input {
	start := p.cur.Pos

	switch p.cur.Type {
	case token.DOLLAR_POLICY:
		return p.parsePermissionRule()
	case token.DOLLAR_IDENT:
		if p.cur.Literal == "$dialogue" {
			return p.parseDialogueState()
		}
		return p.parseControlCommand()
	}

	var classes []*ast.ClassDef
	for p.at(token.CLASS) {
		classes = append(classes, p.parseClass())
		if p.err != nil {
			return nil
		}
	}

	if p.at(token.DATASET) {
		lib := &ast.Library{Classes: classes}
		lib.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		for p.at(token.DATASET) {
			lib.Datasets = append(lib.Datasets, p.parseDataset())
			if p.err != nil {
				return nil
			}
		}
		return lib
	}

	prog := &ast.Program{Classes: classes}
	prog.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	for !p.at(token.EOF) && p.err == nil {
		if p.atFunctionDeclaration() {
			prog.Declarations = append(prog.Declarations, p.parseFunctionDeclaration())
			continue
		}
		stmt := p.parseStatement()
		if p.err != nil {
			return nil
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog
}

// atFunctionDeclaration reports whether the upcoming tokens spell
// "let name (", the function declaration form.
func (p *Parser) atFunctionDeclaration() bool {
	return p.at(token.LET) &&
		(p.peek.Type == token.IDENT || p.peek.Type.IsContextualKeyword()) &&
		p.lex.Peek(0).Type == token.LPAREN
}

// ============================================================================
// Statements
// ============================================================================

func (p *Parser) parseStatement() ast.Statement {
	start := p.cur.Pos

	if p.atFunctionDeclaration() {
		return p.parseFunctionDeclaration()
	}

	if p.at(token.LET) {
		p.advance()
		name := p.expectIdent()
		p.expect(token.ASSIGN)
		expr := p.parseExpression()
		p.expect(token.SEMICOLON)
		assign := &ast.Assignment{Name: name.Literal, Expr: expr}
		assign.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return assign
	}

	// Legacy "now =>" prefix.
	if p.at(token.IDENT) && p.cur.Literal == "now" && p.peek.Type == token.FAT_ARROW {
		p.advance()
		p.advance()
	}

	chain := p.parseChain()
	p.expect(token.SEMICOLON)
	stmt := &ast.ExpressionStatement{Expr: chain}
	stmt.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return stmt
}

func (p *Parser) parseFunctionDeclaration() *ast.FunctionDeclaration {
	start := p.cur.Pos
	p.expect(token.LET)
	name := p.expectIdent()
	decl := &ast.FunctionDeclaration{Name: name.Literal}

	p.expect(token.LPAREN)
	for !p.at(token.RPAREN) && p.err == nil {
		decl.Args = append(decl.Args, p.parseArgumentDef())
		if !p.at(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)

	p.expect(token.LBRACE)
	for !p.at(token.RBRACE) && !p.at(token.EOF) && p.err == nil {
		decl.Statements = append(decl.Statements, p.parseStatement())
	}
	p.expect(token.RBRACE)

	decl.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return decl
}

// ============================================================================
// Classes and datasets
// ============================================================================

func (p *Parser) parseClass() *ast.ClassDef {
	start := p.cur.Pos
	p.expect(token.CLASS)
	nameTok := p.expect(token.CLASS_REF)

	class := &ast.ClassDef{
		Name:    classRefName(nameTok),
		Queries: make(map[string]*ast.FunctionDef),
		Actions: make(map[string]*ast.FunctionDef),
	}

	if p.at(token.EXTENDS) {
		p.advance()
		for {
			parent := p.expect(token.CLASS_REF)
			class.Extends = append(class.Extends, classRefName(parent))
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
	}

	class.Annotations = p.parseAnnotations()

	p.expect(token.LBRACE)
	for !p.at(token.RBRACE) && !p.at(token.EOF) && p.err == nil {
		p.parseClassMember(class)
	}
	p.expect(token.RBRACE)

	class.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return class
}

func (p *Parser) parseClassMember(class *ast.ClassDef) {
	switch p.cur.Type {
	case token.IMPORT:
		p.advance()
		imp := &ast.MixinImport{}
		for {
			facet := p.expectIdent()
			imp.Facets = append(imp.Facets, facet.Literal)
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
		p.expect(token.FROM)
		module := p.expect(token.CLASS_REF)
		imp.Module = classRefName(module)
		if p.at(token.LPAREN) {
			imp.Params = p.parseInputParams()
		}
		p.expect(token.SEMICOLON)
		class.Imports = append(class.Imports, imp)

	case token.ENTITY:
		p.advance()
		name := p.expectIdent()
		ent := &ast.EntityDef{Name: name.Literal}
		ent.Annotations = p.parseAnnotations()
		p.expect(token.SEMICOLON)
		class.Entities = append(class.Entities, ent)

	default:
		def := p.parseFunctionDef(class.Name)
		if def == nil {
			return
		}
		if def.Kind == ast.ActionKind {
			class.Actions[def.Name] = def
		} else {
			class.Queries[def.Name] = def
		}
	}
}

func (p *Parser) parseFunctionDef(className string) *ast.FunctionDef {
	start := p.cur.Pos
	var isMonitorable, isList bool

	for {
		if p.at(token.MONITORABLE) {
			isMonitorable = true
			p.advance()
			continue
		}
		if p.at(token.LIST) {
			isList = true
			p.advance()
			continue
		}
		break
	}

	var kind ast.FunctionKind
	switch p.cur.Type {
	case token.QUERY:
		kind = ast.QueryKind
	case token.ACTION:
		kind = ast.ActionKind
	case token.STREAM:
		kind = ast.StreamKind
	default:
		p.errorf("expected query, action or stream, got %q", p.cur.Literal)
		return nil
	}
	p.advance()

	name := p.expectIdent()
	def := &ast.FunctionDef{Kind: kind, Name: name.Literal, ClassName: className}
	def.IsMonitorable = isMonitorable
	def.IsList = isList

	if p.at(token.EXTENDS) {
		p.advance()
		for {
			parent := p.expectIdent()
			def.Extends = append(def.Extends, parent.Literal)
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
	}

	p.expect(token.LPAREN)
	for !p.at(token.RPAREN) && p.err == nil {
		def.Args = append(def.Args, p.parseArgumentDef())
		if !p.at(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)

	def.Annotations = p.parseAnnotations()
	p.expect(token.SEMICOLON)

	def.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return def
}

func (p *Parser) parseArgumentDef() *ast.ArgumentDef {
	start := p.cur.Pos
	arg := &ast.ArgumentDef{}

	switch p.cur.Type {
	case token.IN:
		p.advance()
		switch p.cur.Type {
		case token.REQ:
			arg.Direction = ast.InReq
		case token.OPT:
			arg.Direction = ast.InOpt
		default:
			p.errorf("expected req or opt after in, got %q", p.cur.Literal)
			return arg
		}
		p.advance()
	case token.OUT:
		arg.Direction = ast.Out
		p.advance()
	default:
		p.errorf("expected in req, in opt or out, got %q", p.cur.Literal)
		return arg
	}

	name := p.expectIdent()
	arg.Name = name.Literal
	p.expect(token.COLON)
	arg.Type = p.parseTypeRef()
	arg.Annotations = p.parseAnnotations()

	arg.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return arg
}

// parseTypeRef parses a type spelling: a primitive name or a parametric
// constructor application.
func (p *Parser) parseTypeRef() types.Type {
	// Entity(...) arrives pre-expanded by the lexer.
	if p.at(token.ENTITY) {
		p.advance()
		p.expect(token.LPAREN)
		name := p.expect(token.ENTITY_NAME)
		p.expect(token.RPAREN)
		return types.Entity{Name: entityName(name)}
	}

	head := p.expectIdent()
	if !p.at(token.LPAREN) {
		t, err := primitiveType(head.Literal)
		if err != nil {
			p.errorf("%v", err)
			return types.Any{}
		}
		return t
	}
	p.advance()

	switch head.Literal {
	case "Measure":
		unit := p.expectIdent()
		p.expect(token.RPAREN)
		return types.Measure{Unit: unit.Literal}
	case "Enum":
		var members []string
		for {
			if p.at(token.ASTERISK) {
				members = append(members, types.EnumAny)
				p.advance()
			} else {
				m := p.expectIdent()
				members = append(members, m.Literal)
			}
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
		p.expect(token.RPAREN)
		return types.Enum{Members: members}
	case "Array":
		elem := p.parseTypeRef()
		p.expect(token.RPAREN)
		return types.Array{Elem: elem}
	case "Map":
		key := p.parseTypeRef()
		p.expect(token.COMMA)
		value := p.parseTypeRef()
		p.expect(token.RPAREN)
		return types.Map{Key: key, Value: value}
	}

	p.errorf("unknown type constructor %q", head.Literal)
	return types.Any{}
}

func primitiveType(name string) (types.Type, error) {
	switch name {
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
	case "Any":
		return types.Any{}, nil
	case "ArgMap":
		return types.ArgMap{}, nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

func (p *Parser) parseDataset() *ast.Dataset {
	start := p.cur.Pos
	p.expect(token.DATASET)
	name := p.expect(token.CLASS_REF)
	ds := &ast.Dataset{Name: classRefName(name)}

	p.expect(token.LBRACE)
	for !p.at(token.RBRACE) && !p.at(token.EOF) && p.err == nil {
		ds.Examples = append(ds.Examples, p.parseExample())
	}
	p.expect(token.RBRACE)

	ds.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return ds
}

func (p *Parser) parseExample() *ast.Example {
	start := p.cur.Pos
	ex := &ast.Example{}

	switch p.cur.Type {
	case token.QUERY:
		ex.Kind = ast.QueryKind
	case token.ACTION:
		ex.Kind = ast.ActionKind
	case token.STREAM:
		ex.Kind = ast.StreamKind
	default:
		p.errorf("expected query, action or stream example, got %q", p.cur.Literal)
		return ex
	}
	p.advance()

	if p.at(token.LPAREN) {
		p.advance()
		for !p.at(token.RPAREN) && p.err == nil {
			ex.Args = append(ex.Args, p.parseArgumentDef())
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
		p.expect(token.RPAREN)
	}

	p.expect(token.COLON)
	p.expect(token.ASSIGN)
	ex.Expr = p.parseExpression()

	ann := p.parseAnnotations()
	if utts, ok := ann.NL["utterances"]; ok {
		if arr, ok := utts.(*ast.ArrayValue); ok {
			for _, e := range arr.Elements {
				if s, ok := e.(*ast.StringValue); ok {
					ex.Utterances = append(ex.Utterances, s.Value)
				}
			}
		}
	}

	p.expect(token.SEMICOLON)
	ex.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return ex
}

// parseAnnotations parses a run of #[key=value] and #_[key=value]
// annotations.
func (p *Parser) parseAnnotations() ast.AnnotationMap {
	ann := ast.AnnotationMap{}
	for p.at(token.IMPL_ANN) || p.at(token.NL_ANN) {
		isNL := p.at(token.NL_ANN)
		p.advance()
		key := p.expectIdent()
		p.expect(token.ASSIGN)
		value := p.parseValue()
		p.expect(token.RBRACK)
		if isNL {
			if ann.NL == nil {
				ann.NL = make(map[string]ast.Value)
			}
			ann.NL[key.Literal] = value
		} else {
			if ann.Impl == nil {
				ann.Impl = make(map[string]ast.Value)
			}
			ann.Impl[key.Literal] = value
		}
	}
	return ann
}

// ============================================================================
// Permission rules, dialogue states, control commands
// ============================================================================

func (p *Parser) parsePermissionRule() ast.Input {
	start := p.cur.Pos
	p.expect(token.DOLLAR_POLICY)
	p.expect(token.LBRACE)

	rule := &ast.PermissionRule{}
	rule.Principal = p.parsePredicate()
	p.expect(token.COLON)
	rule.Query = p.parsePermissionFunction()
	p.expect(token.FAT_ARROW)
	rule.Action = p.parsePermissionFunction()
	p.expect(token.SEMICOLON)
	p.expect(token.RBRACE)

	rule.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return rule
}

func (p *Parser) parsePermissionFunction() *ast.PermissionFunction {
	start := p.cur.Pos
	fn := &ast.PermissionFunction{}

	switch {
	case p.at(token.NOTIFY):
		fn.Kind = ast.PermBuiltin
		p.advance()
	case p.at(token.ASTERISK):
		fn.Kind = ast.PermStar
		p.advance()
	case p.at(token.CLASS_REF):
		ref := p.cur
		p.advance()
		if p.at(token.DOT) && p.peek.Type == token.ASTERISK {
			p.advance()
			p.advance()
			fn.Kind = ast.PermClassStar
			fn.Class = classRefName(ref)
		} else {
			fn.Kind = ast.PermSpecified
			fn.Class, fn.Channel = splitClassRef(ref)
			if p.at(token.FILTER) {
				p.advance()
				fn.Filter = p.parsePredicate()
			} else {
				fn.Filter = &ast.TruePredicate{}
			}
		}
	default:
		p.errorf("expected permission function, got %q", p.cur.Literal)
	}

	fn.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return fn
}

func (p *Parser) parseDialogueState() ast.Input {
	start := p.cur.Pos
	p.advance() // $dialogue
	ref := p.expect(token.CLASS_REF)

	state := &ast.DialogueState{}
	state.Policy, state.Act = splitClassRef(ref)

	if p.at(token.LPAREN) {
		p.advance()
		for !p.at(token.RPAREN) && p.err == nil {
			param := p.expectIdent()
			state.Params = append(state.Params, param.Literal)
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
		p.expect(token.RPAREN)
	}
	p.expect(token.SEMICOLON)

	for !p.at(token.EOF) && p.err == nil {
		state.Statements = append(state.Statements, p.parseStatement())
	}

	state.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return state
}

func (p *Parser) parseControlCommand() ast.Input {
	start := p.cur.Pos
	tok := p.expect(token.DOLLAR_IDENT)
	cmd := &ast.ControlCommand{Intent: dollarName(tok)}

	if p.at(token.LPAREN) {
		p.advance()
		cmd.Value = p.parseValue()
		p.expect(token.RPAREN)
	}
	p.expect(token.SEMICOLON)

	cmd.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return cmd
}

// ============================================================================
// Token helpers
// ============================================================================

// classRefName returns the qualified name of a CLASS_REF token.
func classRefName(tok token.Token) string {
	if s, ok := tok.Value.(string); ok {
		return s
	}
	return tok.Literal
}

// splitClassRef splits @a.b.c into class "a.b" and channel "c".
func splitClassRef(tok token.Token) (class, channel string) {
	name := classRefName(tok)
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return name, ""
}

// entityName returns the qualified name of an ENTITY_NAME token.
func entityName(tok token.Token) string {
	if s, ok := tok.Value.(string); ok {
		return s
	}
	return tok.Literal
}

// dollarName strips the '$' prefix of a dollar token.
func dollarName(tok token.Token) string {
	if s, ok := tok.Value.(string); ok {
		return s
	}
	if len(tok.Literal) > 0 && tok.Literal[0] == '$' {
		return tok.Literal[1:]
	}
	return tok.Literal
}

// numberValue returns the decoded payload of a NUMBER token.
func numberValue(tok token.Token) float64 {
	if f, ok := tok.Value.(float64); ok {
		return f
	}
	f, _ := strconv.ParseFloat(tok.Literal, 64)
	return f
}
