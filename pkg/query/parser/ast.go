package parser

// --------------------
// Literal Expressions
// --------------------

type Value interface {
	value() any
}

type NumberExpr struct {
	Value float64
}

func (n NumberExpr) value() any { return n.Value }

type StringExpr struct {
	Value string
}

func (n StringExpr) value() any { return n.Value }

type StringListExpr struct {
	Values []string
}

func (n StringListExpr) value() any { return n.Values }

//-----------------------
// Identifier Expressions
// ----------------------

// identifier.key expression, like attributes.status
type Identifier struct {
	Identifier string
	Key        string
}

// --------------------
// Comparison Expression
// --------------------

type OperatorKind int

const (
	Equals OperatorKind = iota
	NotEquals
	Less
	LessEquals
	Greater
	GreaterEquals
	Like
	ILike
	In
	NotIn
)

// String renders the operator as SQL.
func (op OperatorKind) String() string {
	switch op {
	case Equals:
		return "="
	case NotEquals:
		return "!="
	case Less:
		return "<"
	case LessEquals:
		return "<="
	case Greater:
		return ">"
	case GreaterEquals:
		return ">="
	case Like:
		return "LIKE"
	case ILike:
		return "ILIKE"
	case In:
		return "IN"
	case NotIn:
		return "NOT IN"
	default:
		return "UNKNOWN"
	}
}

// a operator b
type CompareExpr struct {
	Left     Identifier
	Operator OperatorKind
	Right    Value
}

// AND
type AndExpr struct {
	Exprs []*CompareExpr
}
