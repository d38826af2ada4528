package ast

// Visitor traverses the AST. Enter and Exit bracket every node; Visit is
// called between them and returning false prunes the node's subtree.
//
// Transformations never mutate visited subtrees in place; they construct
// clones.
type Visitor interface {
	Enter(n Node)
	Exit(n Node)
	Visit(n Node) bool
}

// BaseVisitor is a no-op Visitor intended for embedding.
type BaseVisitor struct{}

func (BaseVisitor) Enter(Node)      {}
func (BaseVisitor) Exit(Node)       {}
func (BaseVisitor) Visit(Node) bool { return true }

// Walk traverses n in document order, calling the visitor's hooks around
// every node.
func Walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	v.Enter(n)
	if v.Visit(n) {
		walkChildren(v, n)
	}
	v.Exit(n)
}

func walkValues(v Visitor, vals []Value) {
	for _, val := range vals {
		Walk(v, val)
	}
}

func walkInputParams(v Visitor, ps []InputParam) {
	for i := range ps {
		Walk(v, ps[i].Value)
	}
}

func walkChildren(v Visitor, n Node) {
	switch node := n.(type) {
	// Inputs
	case *Program:
		for _, c := range node.Classes {
			Walk(v, c)
		}
		for _, d := range node.Declarations {
			Walk(v, d)
		}
		for _, s := range node.Statements {
			Walk(v, s)
		}
	case *Library:
		for _, c := range node.Classes {
			Walk(v, c)
		}
		for _, d := range node.Datasets {
			for _, e := range d.Examples {
				Walk(v, e.Expr)
			}
		}
	case *PermissionRule:
		Walk(v, node.Principal)
		if node.Query.Filter != nil {
			Walk(v, node.Query.Filter)
		}
		if node.Action.Filter != nil {
			Walk(v, node.Action.Filter)
		}
	case *DialogueState:
		for _, s := range node.Statements {
			Walk(v, s)
		}
	case *ControlCommand:
		if node.Value != nil {
			Walk(v, node.Value)
		}

	// Statements
	case *FunctionDeclaration:
		for _, s := range node.Statements {
			Walk(v, s)
		}
	case *Assignment:
		Walk(v, node.Expr)
	case *ExpressionStatement:
		Walk(v, node.Expr)
	case *RuleStatement:
		Walk(v, node.Stream)
		for _, a := range node.Actions {
			Walk(v, a)
		}
	case *CommandStatement:
		if node.Table != nil {
			Walk(v, node.Table)
		}
		for _, a := range node.Actions {
			Walk(v, a)
		}

	// Expressions
	case *InvocationExpression:
		walkInputParams(v, node.InParams)
	case *FunctionCallExpression:
		walkInputParams(v, node.InParams)
	case *FilterExpression:
		Walk(v, node.Expr)
		Walk(v, node.Filter)
	case *ProjectionExpression:
		Walk(v, node.Expr)
	case *SortExpression:
		Walk(v, node.Expr)
	case *IndexExpression:
		Walk(v, node.Expr)
		walkValues(v, node.Indices)
	case *SliceExpression:
		Walk(v, node.Expr)
		Walk(v, node.Base)
		Walk(v, node.Limit)
	case *AggregationExpression:
		Walk(v, node.Expr)
	case *AliasExpression:
		Walk(v, node.Expr)
	case *MonitorExpression:
		Walk(v, node.Expr)
	case *TimerExpression:
		Walk(v, node.Base)
		Walk(v, node.Interval)
		if node.Frequency != nil {
			Walk(v, node.Frequency)
		}
	case *AtTimerExpression:
		walkValues(v, node.Times)
		if node.Expiration != nil {
			Walk(v, node.Expiration)
		}
	case *EdgeFilterExpression:
		Walk(v, node.Expr)
		Walk(v, node.Filter)
	case *EdgeNewExpression:
		Walk(v, node.Expr)
	case *ChainExpression:
		for _, e := range node.Expressions {
			Walk(v, e)
		}

	// Boolean expressions
	case *AtomPredicate:
		Walk(v, node.Value)
	case *NotPredicate:
		Walk(v, node.Expr)
	case *AndPredicate:
		for _, op := range node.Operands {
			Walk(v, op)
		}
	case *OrPredicate:
		for _, op := range node.Operands {
			Walk(v, op)
		}
	case *ComputePredicate:
		Walk(v, node.Lhs)
		Walk(v, node.Rhs)
	case *ExistsPredicate:
		Walk(v, node.Query)
	case *ComparisonPredicate:
		Walk(v, node.Lhs)
		Walk(v, node.Query)
	case *PropertyPathPredicate:
		Walk(v, node.Value)
	case *ExternalPredicate:
		walkInputParams(v, node.InParams)
		Walk(v, node.Filter)

	// Values
	case *ComputationValue:
		walkValues(v, node.Operands)
	case *ArrayFieldValue:
		Walk(v, node.Inner)
	case *FilterValue:
		Walk(v, node.Inner)
		Walk(v, node.Predicate)
	case *ArrayValue:
		walkValues(v, node.Elements)
	case *ArgMapValue:
		for _, k := range sortedKeys(node.Map) {
			Walk(v, node.Map[k])
		}
	case *ObjectValue:
		for _, k := range sortedKeys(node.Map) {
			Walk(v, node.Map[k])
		}
	}
}
