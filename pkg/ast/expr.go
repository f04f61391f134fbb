package ast

// Expr is an expression sub-tree. Kind reports the derived ValueKind.
type Expr interface {
	Node
	Kind() ValueKind
	exprNode()
}

// BinaryOp is an operator of the boolean and arithmetic precedence levels.
type BinaryOp uint8

const (
	OpOr BinaryOp = iota
	OpXor
	OpAnd
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
)

var binaryOpText = [...]string{
	OpOr: "OR", OpXor: "XOR", OpAnd: "AND",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpPow: "^",
}

func (op BinaryOp) String() string { return binaryOpText[op] }

// UnaryOp is NOT or a sign.
type UnaryOp uint8

const (
	OpNot UnaryOp = iota
	OpPlus
	OpMinus
)

var unaryOpText = [...]string{OpNot: "NOT", OpPlus: "+", OpMinus: "-"}

func (op UnaryOp) String() string { return unaryOpText[op] }

// CmpOp is a comparison operator.
type CmpOp uint8

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpGt
	CmpLe
	CmpGe
)

var cmpOpText = [...]string{CmpEq: "=", CmpNe: "<>", CmpLt: "<", CmpGt: ">", CmpLe: "<=", CmpGe: ">="}

func (op CmpOp) String() string { return cmpOpText[op] }

// BinOp is a left-associative binary operation.
type BinOp struct {
	Op       BinaryOp
	LHS, RHS Expr
}

func (e *BinOp) Kind() ValueKind {
	switch e.Op {
	case OpOr, OpXor, OpAnd:
		return KindBoolean
	case OpAdd:
		// + concatenates as soon as one side is a list or a string
		l, r := e.LHS.Kind(), e.RHS.Kind()
		switch {
		case l == KindList || r == KindList:
			return KindList
		case l == KindString || r == KindString:
			return KindString
		case l == KindNull && r == KindNull:
			return KindNull
		}
	}
	return KindNumerical
}

// UnOp is NOT or a unary sign applied to an operand.
type UnOp struct {
	Op      UnaryOp
	Operand Expr
}

func (e *UnOp) Kind() ValueKind {
	if e.Op == OpNot {
		return KindBoolean
	}
	return KindNumerical
}

// CmpPart is one (operator, operand) link of a comparison chain.
type CmpPart struct {
	Op  CmpOp
	RHS Expr
}

// Cmp is a chained comparison: Base op1 RHS1 op2 RHS2 ...
type Cmp struct {
	Base Expr
	Tail []CmpPart
}

func (e *Cmp) Kind() ValueKind { return KindBoolean }

// LitKind selects the literal form held by a Lit.
type LitKind uint8

const (
	LitInteger LitKind = iota
	LitFloat
	LitString
	LitBoolean
	LitNull
	LitList
	LitMap
)

// MapEntry is one key/value pair of a map literal or a property map.
type MapEntry struct {
	Key   string
	Value Expr
}

// Lit is a literal value. Only the fields matching Type are meaningful.
type Lit struct {
	Type    LitKind
	Int     int64
	Float   float64
	Str     string
	Bool    bool
	Items   []Expr
	Entries []MapEntry
}

func (e *Lit) Kind() ValueKind {
	switch e.Type {
	case LitInteger, LitFloat:
		return KindNumerical
	case LitString:
		return KindString
	case LitBoolean:
		return KindBoolean
	case LitList:
		return KindList
	case LitMap:
		return KindMap
	}
	return KindNull
}

// VarRef references a variable bound earlier in the session.
type VarRef struct {
	Var Variable
}

func (e *VarRef) Kind() ValueKind { return e.Var.Kind }

// Property is a property lookup on a vertex- or edge-kinded base.
type Property struct {
	Base Expr
	Key  string
	// ValKind is derived from the declared type of the schema property.
	ValKind ValueKind
}

func (e *Property) Kind() ValueKind { return e.ValKind }

// LabelCheck is a label predicate (n:Label) on a vertex-kinded base.
type LabelCheck struct {
	Base   Expr
	Labels []string
}

func (e *LabelCheck) Kind() ValueKind { return KindBoolean }

// CaseAlt is one WHEN ... THEN ... alternative.
type CaseAlt struct {
	When Expr
	Then Expr
}

// Case is a simple (Scrutinee set) or generic CASE expression.
type Case struct {
	Scrutinee Expr
	Alts      []CaseAlt
	Else      Expr
}

func (e *Case) Kind() ValueKind {
	if len(e.Alts) == 0 {
		return KindNull
	}
	return e.Alts[0].Then.Kind()
}

// Filter is the `x IN list WHERE predicate` form shared by comprehensions and
// predicate functions.
type Filter struct {
	Bound  Variable
	Source Expr
	Where  Expr
}

func (e *Filter) Kind() ValueKind { return KindList }

// PredicateKind selects ALL, ANY, NONE or SINGLE.
type PredicateKind uint8

const (
	PredAll PredicateKind = iota
	PredAny
	PredNone
	PredSingle
)

var predicateText = [...]string{PredAll: "all", PredAny: "any", PredNone: "none", PredSingle: "single"}

func (k PredicateKind) String() string { return predicateText[k] }

// PredicateFunc is ALL/ANY/NONE/SINGLE over a filter expression.
type PredicateFunc struct {
	Func   PredicateKind
	Filter *Filter
}

func (e *PredicateFunc) Kind() ValueKind { return KindBoolean }

// SubQueryKind selects EXISTS or COUNT.
type SubQueryKind uint8

const (
	SubQueryExists SubQueryKind = iota
	SubQueryCount
)

// SubQuery is EXISTS { ... } or COUNT { ... }. Inner is either a *Pattern,
// optionally followed by Where, or a *RegularQuery (Where must be nil).
type SubQuery struct {
	Type  SubQueryKind
	Inner Node
	Where Expr
}

func (e *SubQuery) Kind() ValueKind {
	if e.Type == SubQueryCount {
		return KindNumerical
	}
	return KindBoolean
}

// Parameter is a $name placeholder.
type Parameter struct {
	Name string
}

func (e *Parameter) Kind() ValueKind { return KindNull }

// CountStar is COUNT(*).
type CountStar struct{}

func (e *CountStar) Kind() ValueKind { return KindNumerical }

// ListComprehension is [x IN list WHERE pred | projection].
type ListComprehension struct {
	Filter     *Filter
	Projection Expr
}

func (e *ListComprehension) Kind() ValueKind { return KindList }

// PatternComprehension is [p = pattern WHERE pred | projection].
type PatternComprehension struct {
	Var        *Variable
	Element    *PatternElement
	Where      Expr
	Projection Expr
}

func (e *PatternComprehension) Kind() ValueKind { return KindList }

// PatternPredicate is a bare relationship pattern used as a boolean.
type PatternPredicate struct {
	Element *PatternElement
}

func (e *PatternPredicate) Kind() ValueKind { return KindBoolean }

// Paren is a parenthesized expression.
type Paren struct {
	Inner Expr
}

func (e *Paren) Kind() ValueKind { return e.Inner.Kind() }

// FuncCall is a function invocation with its declared result kind.
type FuncCall struct {
	Name     string
	Distinct bool
	Args     []Expr
	Result   ValueKind
}

func (e *FuncCall) Kind() ValueKind { return e.Result }

// StringOpKind selects STARTS WITH, ENDS WITH or CONTAINS.
type StringOpKind uint8

const (
	StrStartsWith StringOpKind = iota
	StrEndsWith
	StrContains
)

var stringOpText = [...]string{StrStartsWith: "STARTS WITH", StrEndsWith: "ENDS WITH", StrContains: "CONTAINS"}

func (k StringOpKind) String() string { return stringOpText[k] }

// StringOp is a string-matching suffix.
type StringOp struct {
	Op       StringOpKind
	LHS, RHS Expr
}

func (e *StringOp) Kind() ValueKind { return KindBoolean }

// InList is `lhs IN rhs`.
type InList struct {
	LHS, RHS Expr
}

func (e *InList) Kind() ValueKind { return KindBoolean }

// NullCheck is IS NULL or IS NOT NULL.
type NullCheck struct {
	Operand Expr
	Not     bool
}

func (e *NullCheck) Kind() ValueKind { return KindBoolean }

// Index is `base[index]`. The element kind is not tracked, so it reports Null.
type Index struct {
	Base, Index Expr
}

func (e *Index) Kind() ValueKind { return KindNull }

// Slice is `base[from..to]`; either bound may be nil.
type Slice struct {
	Base     Expr
	From, To Expr
}

func (e *Slice) Kind() ValueKind { return KindList }

func (*BinOp) exprNode()                {}
func (*UnOp) exprNode()                 {}
func (*Cmp) exprNode()                  {}
func (*Lit) exprNode()                  {}
func (*VarRef) exprNode()               {}
func (*Property) exprNode()             {}
func (*LabelCheck) exprNode()           {}
func (*Case) exprNode()                 {}
func (*Filter) exprNode()               {}
func (*PredicateFunc) exprNode()        {}
func (*SubQuery) exprNode()             {}
func (*Parameter) exprNode()            {}
func (*CountStar) exprNode()            {}
func (*ListComprehension) exprNode()    {}
func (*PatternComprehension) exprNode() {}
func (*PatternPredicate) exprNode()     {}
func (*Paren) exprNode()                {}
func (*FuncCall) exprNode()             {}
func (*StringOp) exprNode()             {}
func (*InList) exprNode()               {}
func (*NullCheck) exprNode()            {}
func (*Index) exprNode()                {}
func (*Slice) exprNode()                {}
