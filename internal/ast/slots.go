package ast

// Slot is a site in the AST that may hold an unresolved or undefined
// value. Slot-filling UIs enumerate slots to know which values still need
// to be supplied by the user.
type Slot struct {
	// Param is the name of the parameter site, or "" when the slot is not
	// attached to a named parameter.
	Param string

	// Value is the value currently occupying the slot.
	Value Value

	// Schema is the signature of the surrounding function, when known.
	Schema *FunctionDef

	// Set replaces the value in the slot.
	Set func(Value)
}

// IterateSlots enumerates every slot in the subtree rooted at n, in
// document order. Every undefined value node is visited exactly once.
func IterateSlots(n Node) []Slot {
	c := &slotCollector{}
	c.walkNode(n)
	return c.slots
}

// IterateSlots2 enumerates slots like IterateSlots and additionally
// returns the device selectors encountered along the way.
func IterateSlots2(n Node) ([]Slot, []*DeviceSelector) {
	c := &slotCollector{withSelectors: true}
	c.walkNode(n)
	return c.slots, c.selectors
}

type slotCollector struct {
	slots         []Slot
	selectors     []*DeviceSelector
	schema        *FunctionDef
	withSelectors bool
}

func (c *slotCollector) add(param string, value Value, set func(Value)) {
	c.slots = append(c.slots, Slot{
		Param:  param,
		Value:  value,
		Schema: c.schema,
		Set:    set,
	})
	c.walkInnerValue(value)
}

// walkInnerValue descends into composite values so that undefined values
// nested in arrays, objects and computations are enumerated too.
func (c *slotCollector) walkInnerValue(v Value) {
	switch vv := v.(type) {
	case *ArrayValue:
		for i := range vv.Elements {
			i := i
			c.add("", vv.Elements[i], func(nv Value) { vv.Elements[i] = nv })
		}
	case *ArgMapValue:
		for _, k := range sortedKeys(vv.Map) {
			k := k
			c.add(k, vv.Map[k], func(nv Value) { vv.Map[k] = nv })
		}
	case *ObjectValue:
		for _, k := range sortedKeys(vv.Map) {
			k := k
			c.add(k, vv.Map[k], func(nv Value) { vv.Map[k] = nv })
		}
	case *ComputationValue:
		for i := range vv.Operands {
			i := i
			c.add("", vv.Operands[i], func(nv Value) { vv.Operands[i] = nv })
		}
	case *ArrayFieldValue:
		c.add("", vv.Inner, func(nv Value) { vv.Inner = nv })
	case *FilterValue:
		c.add("", vv.Inner, func(nv Value) { vv.Inner = nv })
		c.walkBoolean(vv.Predicate)
	}
}

func (c *slotCollector) walkInputParams(ps []InputParam) {
	for i := range ps {
		i := i
		c.add(ps[i].Name, ps[i].Value, func(nv Value) { ps[i].Value = nv })
	}
}

func (c *slotCollector) walkBoolean(b BooleanExpression) {
	switch bb := b.(type) {
	case *AtomPredicate:
		c.add(bb.Param, bb.Value, func(nv Value) { bb.Value = nv })
	case *NotPredicate:
		c.walkBoolean(bb.Expr)
	case *AndPredicate:
		for _, op := range bb.Operands {
			c.walkBoolean(op)
		}
	case *OrPredicate:
		for _, op := range bb.Operands {
			c.walkBoolean(op)
		}
	case *ComputePredicate:
		c.add("", bb.Lhs, func(nv Value) { bb.Lhs = nv })
		c.add("", bb.Rhs, func(nv Value) { bb.Rhs = nv })
	case *ExistsPredicate:
		c.walkExpression(bb.Query)
	case *ComparisonPredicate:
		c.add("", bb.Lhs, func(nv Value) { bb.Lhs = nv })
		c.walkExpression(bb.Query)
	case *PropertyPathPredicate:
		param := ""
		if len(bb.Path) > 0 {
			param = bb.Path[0]
		}
		c.add(param, bb.Value, func(nv Value) { bb.Value = nv })
	case *ExternalPredicate:
		if c.withSelectors && bb.Selector != nil {
			c.selectors = append(c.selectors, bb.Selector)
		}
		c.walkInputParams(bb.InParams)
		c.walkBoolean(bb.Filter)
	}
}

func (c *slotCollector) walkExpression(e Expression) {
	prevSchema := c.schema
	if e != nil && e.Schema() != nil {
		c.schema = e.Schema()
	}
	defer func() { c.schema = prevSchema }()

	switch ee := e.(type) {
	case *InvocationExpression:
		if c.withSelectors && ee.Selector != nil {
			c.selectors = append(c.selectors, ee.Selector)
		}
		c.walkInputParams(ee.InParams)
	case *FunctionCallExpression:
		c.walkInputParams(ee.InParams)
	case *FilterExpression:
		c.walkExpression(ee.Expr)
		c.walkBoolean(ee.Filter)
	case *ProjectionExpression:
		c.walkExpression(ee.Expr)
	case *SortExpression:
		c.walkExpression(ee.Expr)
	case *IndexExpression:
		c.walkExpression(ee.Expr)
		for i := range ee.Indices {
			i := i
			c.add("", ee.Indices[i], func(nv Value) { ee.Indices[i] = nv })
		}
	case *SliceExpression:
		c.walkExpression(ee.Expr)
		c.add("", ee.Base, func(nv Value) { ee.Base = nv })
		c.add("", ee.Limit, func(nv Value) { ee.Limit = nv })
	case *AggregationExpression:
		c.walkExpression(ee.Expr)
	case *AliasExpression:
		c.walkExpression(ee.Expr)
	case *MonitorExpression:
		c.walkExpression(ee.Expr)
	case *TimerExpression:
		c.add("base", ee.Base, func(nv Value) { ee.Base = nv })
		c.add("interval", ee.Interval, func(nv Value) { ee.Interval = nv })
		if ee.Frequency != nil {
			c.add("frequency", ee.Frequency, func(nv Value) { ee.Frequency = nv })
		}
	case *AtTimerExpression:
		for i := range ee.Times {
			i := i
			c.add("time", ee.Times[i], func(nv Value) { ee.Times[i] = nv })
		}
		if ee.Expiration != nil {
			c.add("expiration_date", ee.Expiration, func(nv Value) { ee.Expiration = nv })
		}
	case *EdgeFilterExpression:
		c.walkExpression(ee.Expr)
		c.walkBoolean(ee.Filter)
	case *EdgeNewExpression:
		c.walkExpression(ee.Expr)
	case *ChainExpression:
		for _, sub := range ee.Expressions {
			c.walkExpression(sub)
		}
	}
}

func (c *slotCollector) walkStatement(s Statement) {
	switch ss := s.(type) {
	case *FunctionDeclaration:
		for _, sub := range ss.Statements {
			c.walkStatement(sub)
		}
	case *Assignment:
		c.walkExpression(ss.Expr)
	case *ExpressionStatement:
		c.walkExpression(ss.Expr)
	case *RuleStatement:
		c.walkExpression(ss.Stream)
		for _, a := range ss.Actions {
			c.walkExpression(a)
		}
	case *CommandStatement:
		if ss.Table != nil {
			c.walkExpression(ss.Table)
		}
		for _, a := range ss.Actions {
			c.walkExpression(a)
		}
	}
}

func (c *slotCollector) walkNode(n Node) {
	switch nn := n.(type) {
	case *Program:
		for _, d := range nn.Declarations {
			c.walkStatement(d)
		}
		for _, s := range nn.Statements {
			c.walkStatement(s)
		}
	case *PermissionRule:
		c.walkBoolean(nn.Principal)
		if nn.Query != nil && nn.Query.Filter != nil {
			c.walkBoolean(nn.Query.Filter)
		}
		if nn.Action != nil && nn.Action.Filter != nil {
			c.walkBoolean(nn.Action.Filter)
		}
	case *DialogueState:
		for _, s := range nn.Statements {
			c.walkStatement(s)
		}
	case Statement:
		c.walkStatement(nn)
	case Expression:
		c.walkExpression(nn)
	case BooleanExpression:
		c.walkBoolean(nn)
	case Value:
		c.walkInnerValue(nn)
	}
}
