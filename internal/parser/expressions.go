package parser

import (
	"time"

	"github.com/ttlang/go-tt/internal/ast"
	"github.com/ttlang/go-tt/internal/lexer"
	"github.com/ttlang/go-tt/pkg/token"
)

// ============================================================================
// Expressions
// ============================================================================

// parseChain parses one or more expressions joined by =>.
func (p *Parser) parseChain() *ast.ChainExpression {
	start := p.cur.Pos
	chain := &ast.ChainExpression{}
	chain.Expressions = append(chain.Expressions, p.parseExpression())
	for p.at(token.FAT_ARROW) && p.err == nil {
		p.advance()
		chain.Expressions = append(chain.Expressions, p.parseExpression())
	}
	chain.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return chain
}

// parseExpression parses a table, stream or action expression with its
// postfix operators.
func (p *Parser) parseExpression() ast.Expression {
	expr := p.parsePrimaryExpression()

	for p.err == nil {
		switch p.cur.Type {
		case token.FILTER:
			start := expr.Pos()
			p.advance()
			f := &ast.FilterExpression{Expr: expr, Filter: p.parsePredicate()}
			f.SetSpan(token.Range{Start: start, End: p.cur.Pos})
			expr = f

		case token.LBRACK:
			expr = p.parseIndexOrSlice(expr)

		case token.AS:
			start := expr.Pos()
			p.advance()
			name := p.expectIdent()
			a := &ast.AliasExpression{Expr: expr, Name: name.Literal}
			a.SetSpan(token.Range{Start: start, End: p.cur.Pos})
			expr = a

		default:
			return expr
		}
	}
	return expr
}

func (p *Parser) parseIndexOrSlice(inner ast.Expression) ast.Expression {
	start := inner.Pos()
	p.expect(token.LBRACK)
	first := p.parseValue()

	if p.at(token.COLON) {
		p.advance()
		limit := p.parseValue()
		p.expect(token.RBRACK)
		s := &ast.SliceExpression{Expr: inner, Base: first, Limit: limit}
		s.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return s
	}

	indices := []ast.Value{first}
	for p.at(token.COMMA) && p.err == nil {
		p.advance()
		indices = append(indices, p.parseValue())
	}
	p.expect(token.RBRACK)
	idx := &ast.IndexExpression{Expr: inner, Indices: indices}
	idx.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return idx
}

func (p *Parser) parsePrimaryExpression() ast.Expression {
	start := p.cur.Pos

	switch p.cur.Type {
	case token.MONITOR:
		p.advance()
		m := &ast.MonitorExpression{}
		if p.at(token.LPAREN) {
			p.advance()
			m.Expr = p.parseExpression()
			p.expect(token.RPAREN)
		} else {
			m.Expr = p.parseExpression()
		}
		if p.at(token.ON) && p.peek.Type == token.NEW {
			p.advance()
			p.advance()
			p.expect(token.LBRACK)
			for !p.at(token.RBRACK) && p.err == nil {
				name := p.expectIdent()
				m.Args = append(m.Args, name.Literal)
				if !p.at(token.COMMA) {
					break
				}
				p.advance()
			}
			p.expect(token.RBRACK)
		}
		m.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return m

	case token.EDGE:
		p.advance()
		p.expect(token.LPAREN)
		inner := p.parseExpression()
		p.expect(token.RPAREN)
		p.expect(token.ON)
		if p.at(token.NEW) {
			p.advance()
			e := &ast.EdgeNewExpression{Expr: inner}
			e.SetSpan(token.Range{Start: start, End: p.cur.Pos})
			return e
		}
		e := &ast.EdgeFilterExpression{Expr: inner, Filter: p.parsePredicate()}
		e.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return e

	case token.SORT:
		p.advance()
		p.expect(token.LPAREN)
		field := p.expectIdent()
		var direction string
		switch p.cur.Type {
		case token.ASC:
			direction = "asc"
		case token.DESC:
			direction = "desc"
		default:
			p.errorf("expected asc or desc, got %q", p.cur.Literal)
		}
		p.advance()
		p.expect(token.OF)
		inner := p.parseExpression()
		p.expect(token.RPAREN)
		s := &ast.SortExpression{Expr: inner, Field: field.Literal, Direction: direction}
		s.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return s

	case token.AGGREGATE:
		return p.parseAggregation()

	case token.LBRACK:
		// [a, b] of (expr)
		p.advance()
		var args []string
		for !p.at(token.RBRACK) && p.err == nil {
			name := p.expectIdent()
			args = append(args, name.Literal)
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
		p.expect(token.RBRACK)
		p.expect(token.OF)
		inner := p.parseParenExpression()
		proj := &ast.ProjectionExpression{Expr: inner, Args: args}
		proj.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return proj

	case token.LPAREN:
		p.advance()
		inner := p.parseExpression()
		p.expect(token.RPAREN)
		return inner

	case token.CLASS_REF:
		ref := p.cur
		p.advance()
		class, channel := splitClassRef(ref)
		sel := &ast.DeviceSelector{Kind: class}
		sel.SetSpan(p.rangeAt(ref))
		inv := &ast.InvocationExpression{Selector: sel, Channel: channel}
		if p.at(token.LPAREN) {
			inv.InParams = p.parseInputParams()
		}
		inv.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return inv

	case token.NOTIFY:
		p.advance()
		call := &ast.FunctionCallExpression{Name: "notify"}
		if p.at(token.LPAREN) {
			call.InParams = p.parseInputParams()
		}
		call.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return call
	}

	if p.atIdent() {
		name := p.cur.Literal
		switch name {
		case "timer":
			if p.peek.Type == token.LPAREN {
				return p.parseTimer()
			}
		case "attimer":
			if p.peek.Type == token.LPAREN {
				return p.parseAtTimer()
			}
		}
		p.advance()
		call := &ast.FunctionCallExpression{Name: name}
		if p.at(token.LPAREN) {
			call.InParams = p.parseInputParams()
		}
		call.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return call
	}

	p.errorf("expected expression, got %q", p.cur.Literal)
	return &ast.ChainExpression{}
}

// parseParenExpression parses an expression, with or without enclosing
// parentheses.
func (p *Parser) parseParenExpression() ast.Expression {
	if p.at(token.LPAREN) {
		p.advance()
		inner := p.parseExpression()
		p.expect(token.RPAREN)
		return inner
	}
	return p.parseExpression()
}

func (p *Parser) parseAggregation() ast.Expression {
	start := p.cur.Pos
	p.expect(token.AGGREGATE)

	agg := &ast.AggregationExpression{}
	switch p.cur.Type {
	case token.COUNT:
		agg.Operator = ast.AggCount
		agg.Field = "*"
		p.advance()
	case token.SUM, token.AVG, token.MIN, token.MAX:
		agg.Operator = p.cur.Literal
		p.advance()
		field := p.expectIdent()
		agg.Field = field.Literal
	default:
		p.errorf("expected aggregation operator, got %q", p.cur.Literal)
		return agg
	}

	if p.at(token.AS) {
		p.advance()
		alias := p.expectIdent()
		agg.Alias = alias.Literal
	}

	p.expect(token.OF)
	agg.Expr = p.parseParenExpression()
	agg.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return agg
}

func (p *Parser) parseTimer() ast.Expression {
	start := p.cur.Pos
	p.advance() // timer
	timer := &ast.TimerExpression{}
	for _, param := range p.parseInputParams() {
		switch param.Name {
		case "base":
			timer.Base = param.Value
		case "interval":
			timer.Interval = param.Value
		case "frequency":
			timer.Frequency = param.Value
		default:
			p.errorf("unknown timer parameter %q", param.Name)
		}
	}
	if timer.Base == nil {
		timer.Base = &ast.DateValue{Kind: ast.DateNow}
	}
	if timer.Interval == nil {
		p.errorf("timer requires an interval")
	}
	timer.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return timer
}

func (p *Parser) parseAtTimer() ast.Expression {
	start := p.cur.Pos
	p.advance() // attimer
	at := &ast.AtTimerExpression{}
	for _, param := range p.parseInputParams() {
		switch param.Name {
		case "time":
			if arr, ok := param.Value.(*ast.ArrayValue); ok {
				at.Times = arr.Elements
			} else {
				at.Times = []ast.Value{param.Value}
			}
		case "expiration_date":
			at.Expiration = param.Value
		default:
			p.errorf("unknown attimer parameter %q", param.Name)
		}
	}
	if len(at.Times) == 0 {
		p.errorf("attimer requires a time")
	}
	at.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return at
}

// parseInputParams parses a parenthesized name=value list.
func (p *Parser) parseInputParams() []ast.InputParam {
	var params []ast.InputParam
	p.expect(token.LPAREN)
	for !p.at(token.RPAREN) && p.err == nil {
		start := p.cur.Pos
		name := p.expectIdent()
		p.expect(token.ASSIGN)
		value := p.parseValue()
		param := ast.InputParam{Name: name.Literal, Value: value}
		param.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		params = append(params, param)
		if !p.at(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)
	return params
}

// ============================================================================
// Boolean predicates
// ============================================================================

// parsePredicate parses a boolean predicate with || and && precedence.
func (p *Parser) parsePredicate() ast.BooleanExpression {
	start := p.cur.Pos
	first := p.parseAndPredicate()
	if !p.at(token.PIPE_PIPE) {
		return first
	}
	or := &ast.OrPredicate{Operands: []ast.BooleanExpression{first}}
	for p.at(token.PIPE_PIPE) && p.err == nil {
		p.advance()
		or.Operands = append(or.Operands, p.parseAndPredicate())
	}
	or.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return or
}

func (p *Parser) parseAndPredicate() ast.BooleanExpression {
	start := p.cur.Pos
	first := p.parseUnaryPredicate()
	if !p.at(token.AMP_AMP) {
		return first
	}
	and := &ast.AndPredicate{Operands: []ast.BooleanExpression{first}}
	for p.at(token.AMP_AMP) && p.err == nil {
		p.advance()
		and.Operands = append(and.Operands, p.parseUnaryPredicate())
	}
	and.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return and
}

func (p *Parser) parseUnaryPredicate() ast.BooleanExpression {
	start := p.cur.Pos

	switch p.cur.Type {
	case token.BANG, token.NOT:
		p.advance()
		n := &ast.NotPredicate{Expr: p.parseUnaryPredicate()}
		n.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return n

	case token.LPAREN:
		p.advance()
		inner := p.parsePredicate()
		p.expect(token.RPAREN)
		return inner

	case token.TRUE:
		p.advance()
		if p.at(token.LPAREN) {
			p.advance()
			param := p.expectIdent()
			p.expect(token.RPAREN)
			dc := &ast.DontCarePredicate{Param: param.Literal}
			dc.SetSpan(token.Range{Start: start, End: p.cur.Pos})
			return dc
		}
		t := &ast.TruePredicate{}
		t.SetSpan(p.rangeAt(p.cur))
		return t

	case token.FALSE:
		p.advance()
		f := &ast.FalsePredicate{}
		f.SetSpan(p.rangeAt(p.cur))
		return f

	case token.CLASS_REF:
		return p.parseExternalPredicate()
	}

	if p.atIdent() && p.cur.Literal == "any" && p.peek.Type == token.LPAREN {
		p.advance()
		p.advance()
		query := p.parseExpression()
		p.expect(token.RPAREN)
		e := &ast.ExistsPredicate{Query: query}
		e.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return e
	}

	// Atom or property path: an identifier directly followed by an
	// operator or a dotted path.
	if p.atIdent() && p.peek.Type == token.DOT {
		return p.parsePropertyPath()
	}
	if p.atIdent() {
		if op, ok := p.peekComparisonOp(); ok {
			param := p.cur
			p.advance() // param
			p.advance() // operator
			if p.atIdent() && p.cur.Literal == "any" && p.peek.Type == token.LPAREN {
				p.advance()
				p.advance()
				query := p.parseExpression()
				p.expect(token.RPAREN)
				lhs := &ast.VarRefValue{Name: param.Literal}
				lhs.SetSpan(p.rangeAt(param))
				cmp := &ast.ComparisonPredicate{Lhs: lhs, Op: op, Query: query}
				cmp.SetSpan(token.Range{Start: start, End: p.cur.Pos})
				return cmp
			}
			value := p.parseValue()
			atom := &ast.AtomPredicate{Param: param.Literal, Op: op, Value: value}
			atom.SetSpan(token.Range{Start: start, End: p.cur.Pos})
			return atom
		}
	}

	// General comparison between computed values, possibly against a
	// subquery.
	lhs := p.parseValue()
	op, ok := p.currentComparisonOp()
	if !ok {
		p.errorf("expected comparison operator, got %q", p.cur.Literal)
		return &ast.TruePredicate{}
	}
	p.advance()

	if p.atIdent() && p.cur.Literal == "any" && p.peek.Type == token.LPAREN {
		p.advance()
		p.advance()
		query := p.parseExpression()
		p.expect(token.RPAREN)
		cmp := &ast.ComparisonPredicate{Lhs: lhs, Op: op, Query: query}
		cmp.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return cmp
	}

	rhs := p.parseValue()
	cp := &ast.ComputePredicate{Lhs: lhs, Op: op, Rhs: rhs}
	cp.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return cp
}

func (p *Parser) parsePropertyPath() ast.BooleanExpression {
	start := p.cur.Pos
	var path []string
	name := p.expectIdent()
	path = append(path, name.Literal)
	for p.at(token.DOT) && p.err == nil {
		p.advance()
		part := p.expectIdent()
		path = append(path, part.Literal)
	}
	op, ok := p.currentComparisonOp()
	if !ok {
		p.errorf("expected comparison operator, got %q", p.cur.Literal)
		return &ast.TruePredicate{}
	}
	p.advance()
	value := p.parseValue()
	pp := &ast.PropertyPathPredicate{Path: path, Op: op, Value: value}
	pp.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return pp
}

func (p *Parser) parseExternalPredicate() ast.BooleanExpression {
	start := p.cur.Pos
	ref := p.expect(token.CLASS_REF)
	class, channel := splitClassRef(ref)
	sel := &ast.DeviceSelector{Kind: class}
	sel.SetSpan(p.rangeAt(ref))

	ext := &ast.ExternalPredicate{Selector: sel, Channel: channel}
	if p.at(token.LPAREN) {
		ext.InParams = p.parseInputParams()
	}
	p.expect(token.LBRACE)
	ext.Filter = p.parsePredicate()
	p.expect(token.RBRACE)
	ext.SetSpan(token.Range{Start: start, End: p.cur.Pos})
	return ext
}

// comparison operator spellings that arrive as identifier tokens.
var identOps = map[string]bool{
	"contains":    true,
	"in_array":    true,
	"starts_with": true,
	"ends_with":   true,
}

// peekComparisonOp inspects the token after the current identifier.
func (p *Parser) peekComparisonOp() (string, bool) {
	return comparisonOpOf(p.peek)
}

// currentComparisonOp inspects the current token.
func (p *Parser) currentComparisonOp() (string, bool) {
	return comparisonOpOf(p.cur)
}

func comparisonOpOf(tok token.Token) (string, bool) {
	switch tok.Type {
	case token.EQ, token.NOT_EQ, token.GREATER_EQ, token.LESS_EQ,
		token.GREATER, token.LESS, token.MATCH, token.REV_MATCH:
		return tok.Literal, true
	case token.IDENT:
		if identOps[tok.Literal] {
			return tok.Literal, true
		}
	}
	return "", false
}

// ============================================================================
// Values
// ============================================================================

// parseValue parses a value with arithmetic precedence: computations over
// primaries.
func (p *Parser) parseValue() ast.Value {
	start := p.cur.Pos
	lhs := p.parseMulValue()
	for (p.at(token.PLUS) || p.at(token.MINUS)) && p.err == nil {
		op := p.cur.Literal
		p.advance()
		rhs := p.parseMulValue()
		comp := &ast.ComputationValue{Op: op, Operands: []ast.Value{lhs, rhs}}
		comp.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		lhs = comp
	}
	return lhs
}

func (p *Parser) parseMulValue() ast.Value {
	start := p.cur.Pos
	lhs := p.parsePrimaryValue()
	for (p.at(token.ASTERISK) || p.at(token.SLASH) || p.at(token.PERCENT) || p.at(token.POWER)) && p.err == nil {
		op := p.cur.Literal
		p.advance()
		rhs := p.parsePrimaryValue()
		comp := &ast.ComputationValue{Op: op, Operands: []ast.Value{lhs, rhs}}
		comp.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		lhs = comp
	}
	return lhs
}

func (p *Parser) parsePrimaryValue() ast.Value {
	start := p.cur.Pos

	switch p.cur.Type {
	case token.NUMBER:
		tok := p.cur
		p.advance()
		v := &ast.NumberValue{Value: numberValue(tok)}
		v.SetSpan(p.rangeAt(tok))
		return v

	case token.MEASURE:
		tok := p.cur
		p.advance()
		m, _ := tok.Value.(lexer.Measure)
		v := &ast.MeasureValue{Value: m.Value, Unit: m.Unit}
		v.SetSpan(p.rangeAt(tok))
		return v

	case token.QUOTED_STRING:
		tok := p.cur
		p.advance()
		text, _ := tok.Value.(string)
		if p.at(token.ENTITY_NAME) {
			kindTok := p.cur
			p.advance()
			entity := &ast.EntityValue{ID: text, Kind: entityName(kindTok)}
			if p.at(token.LPAREN) {
				p.advance()
				display := p.expect(token.QUOTED_STRING)
				entity.Display, _ = display.Value.(string)
				p.expect(token.RPAREN)
			}
			entity.SetSpan(token.Range{Start: start, End: p.cur.Pos})
			return entity
		}
		v := &ast.StringValue{Value: text}
		v.SetSpan(p.rangeAt(tok))
		return v

	case token.TRUE, token.FALSE:
		tok := p.cur
		p.advance()
		v := &ast.BooleanValue{Value: tok.Type == token.TRUE}
		v.SetSpan(p.rangeAt(tok))
		return v

	case token.NULL, token.DOLLAR_UNDEFINED:
		tok := p.cur
		p.advance()
		v := &ast.UndefinedValue{Local: false}
		v.SetSpan(p.rangeAt(tok))
		return v

	case token.DOLLAR_NOW:
		tok := p.cur
		p.advance()
		v := &ast.DateValue{Kind: ast.DateNow}
		v.SetSpan(p.rangeAt(tok))
		return v

	case token.DOLLAR_EVENT:
		p.advance()
		v := &ast.EventValue{}
		if p.at(token.DOT) {
			p.advance()
			kind := p.expectIdent()
			v.Kind = kind.Literal
		}
		v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return v

	case token.DOLLAR_PROGRAM_ID:
		p.advance()
		v := &ast.EventValue{Kind: "program_id"}
		v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return v

	case token.DOLLAR_LOCATION:
		p.advance()
		p.expect(token.DOT)
		name := p.expectIdent()
		v := &ast.LocationValue{Kind: ast.LocationRelative, Name: name.Literal}
		v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return v

	case token.DOLLAR_TIME:
		p.advance()
		p.expect(token.DOT)
		name := p.expectIdent()
		v := &ast.TimeValue{Kind: ast.TimeRelative, Name: name.Literal}
		v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return v

	case token.DOLLAR_CONTEXT:
		p.advance()
		p.expect(token.DOT)
		name := p.expectIdent()
		v := &ast.ContextRefValue{Name: name.Literal}
		v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return v

	case token.DOLLAR_SOURCE:
		p.advance()
		v := &ast.ContextRefValue{Name: "source"}
		v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return v

	case token.DOLLAR_IDENT:
		tok := p.cur
		p.advance()
		if tok.Literal == "$?" {
			v := &ast.UndefinedValue{Local: true}
			v.SetSpan(p.rangeAt(tok))
			return v
		}
		name := dollarName(tok)
		if name == "start_of" || name == "end_of" {
			p.expect(token.LPAREN)
			unit := p.expectIdent()
			p.expect(token.RPAREN)
			v := &ast.DateValue{Kind: ast.DateEdge, Edge: name, Unit: unit.Literal}
			v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
			return v
		}
		v := &ast.ContextRefValue{Name: name}
		v.SetSpan(p.rangeAt(tok))
		return v

	case token.NEW:
		return p.parseConstructedValue()

	case token.LBRACK:
		p.advance()
		arr := &ast.ArrayValue{}
		for !p.at(token.RBRACK) && p.err == nil {
			arr.Elements = append(arr.Elements, p.parseValue())
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
		p.expect(token.RBRACK)
		arr.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return arr

	case token.LBRACE:
		p.advance()
		obj := &ast.ObjectValue{Map: make(map[string]ast.Value)}
		for !p.at(token.RBRACE) && p.err == nil {
			key := p.expectIdent()
			p.expect(token.ASSIGN)
			obj.Map[key.Literal] = p.parseValue()
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
		p.expect(token.RBRACE)
		obj.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return obj
	}

	if p.atIdent() {
		tok := p.cur
		if tok.Literal == "enum" && p.peek.Type == token.LPAREN {
			p.advance()
			p.advance()
			// Enum tags may spell hard keywords, as in enum(on).
			var tag token.Token
			if p.cur.Type.IsKeyword() {
				tag = p.cur
				p.advance()
			} else {
				tag = p.expectIdent()
			}
			p.expect(token.RPAREN)
			v := &ast.EnumValue{Tag: tag.Literal}
			v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
			return v
		}
		p.advance()
		// field of inner: array field projection.
		if p.at(token.OF) {
			p.advance()
			inner := p.parsePrimaryValue()
			v := &ast.ArrayFieldValue{Inner: inner, Field: tok.Literal}
			v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
			return v
		}
		v := &ast.VarRefValue{Name: tok.Literal}
		v.SetSpan(p.rangeAt(tok))
		return v
	}

	p.errorf("expected value, got %q", p.cur.Literal)
	return &ast.UndefinedValue{}
}

// parseConstructedValue parses the new Date / new Currency / new Location
// / new Time constructor forms.
func (p *Parser) parseConstructedValue() ast.Value {
	start := p.cur.Pos
	p.expect(token.NEW)
	head := p.expectIdent()
	p.expect(token.LPAREN)

	switch head.Literal {
	case "Date":
		str := p.expect(token.QUOTED_STRING)
		p.expect(token.RPAREN)
		text, _ := str.Value.(string)
		instant, err := time.Parse(time.RFC3339, text)
		if err != nil {
			p.errorf("invalid date literal %q", text)
		}
		v := &ast.DateValue{Kind: ast.DateAbsolute, Instant: instant}
		v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return v

	case "Currency":
		amount := p.expect(token.NUMBER)
		p.expect(token.COMMA)
		code := p.expect(token.QUOTED_STRING)
		p.expect(token.RPAREN)
		codeText, _ := code.Value.(string)
		v := &ast.CurrencyValue{Value: numberValue(amount), Code: codeText}
		v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return v

	case "Location":
		if p.at(token.QUOTED_STRING) {
			name := p.expect(token.QUOTED_STRING)
			p.expect(token.RPAREN)
			text, _ := name.Value.(string)
			v := &ast.LocationValue{Kind: ast.LocationUnresolved, Name: text}
			v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
			return v
		}
		lat := p.expect(token.NUMBER)
		p.expect(token.COMMA)
		lon := p.expect(token.NUMBER)
		v := &ast.LocationValue{Kind: ast.LocationAbsolute, Lat: numberValue(lat), Lon: numberValue(lon)}
		if p.at(token.COMMA) {
			p.advance()
			display := p.expect(token.QUOTED_STRING)
			v.Display, _ = display.Value.(string)
		}
		p.expect(token.RPAREN)
		v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return v

	case "Time":
		hour := p.expect(token.NUMBER)
		p.expect(token.COMMA)
		minute := p.expect(token.NUMBER)
		v := &ast.TimeValue{Kind: ast.TimeAbsolute, Hour: int(numberValue(hour)), Minute: int(numberValue(minute))}
		if p.at(token.COMMA) {
			p.advance()
			second := p.expect(token.NUMBER)
			v.Second = int(numberValue(second))
		}
		p.expect(token.RPAREN)
		v.SetSpan(token.Range{Start: start, End: p.cur.Pos})
		return v
	}

	p.errorf("unknown constructor %q", head.Literal)
	return &ast.UndefinedValue{}
}
