package ast

// Node is any element of the syntax tree. The set of implementations is
// closed: every Node has a matching method on Visitor.
type Node interface {
	Accept(v Visitor)
}

// Query is the root: exactly one of Regular or Call is set.
type Query struct {
	Regular *RegularQuery
	Call    *StandaloneCall
}

// RegularQuery is SingleQuery { Union }.
type RegularQuery struct {
	Single *SingleQuery
	Unions []*Union
}

// Union is UNION [ALL] SingleQuery.
type Union struct {
	All    bool
	Single *SingleQuery
}

// SingleQuery is exactly one of SinglePart or MultiPart.
type SingleQuery struct {
	SinglePart *SinglePartQuery
	MultiPart  *MultiPartQuery
}

// SinglePartQuery is {ReadingClause} followed by either RETURN or at least
// one UpdatingClause with an optional RETURN.
type SinglePartQuery struct {
	Reading  []*ReadingClause
	Updating []*UpdatingClause
	Return   *Return
}

// QueryPart is one WITH-terminated segment of a multi-part query.
type QueryPart struct {
	Reading  []*ReadingClause
	Updating []*UpdatingClause
	With     *With
}

// MultiPartQuery is one or more QueryParts followed by a SinglePartQuery.
type MultiPartQuery struct {
	Parts []*QueryPart
	Tail  *SinglePartQuery
}

// With is WITH ProjectionBody [WHERE].
type With struct {
	Body  *ProjectionBody
	Where Expr
}

// ReadingClause is exactly one of Match, Unwind or Call.
type ReadingClause struct {
	Match  *Match
	Unwind *Unwind
	Call   *InQueryCall
}

// UpdatingClause is exactly one of its fields.
type UpdatingClause struct {
	Create *Create
	Merge  *Merge
	Delete *Delete
	Set    *Set
	Remove *Remove
}

// Return is RETURN ProjectionBody.
type Return struct {
	Body *ProjectionBody
}

// ProjectionBody is [DISTINCT] items [ORDER BY] [SKIP] [LIMIT].
type ProjectionBody struct {
	Distinct bool
	Items    *ProjectionItems
	Order    *Order
	Skip     Expr
	Limit    Expr
}

// ProjectionItem is `expr [AS alias]`.
type ProjectionItem struct {
	Expr  Expr
	Alias *Variable
}

// ProjectionItems is `*` and/or a list of items; Star with no Items is `*`.
type ProjectionItems struct {
	Star  bool
	Items []ProjectionItem
}

// SortItem is one ORDER BY key.
type SortItem struct {
	Expr       Expr
	Descending bool
}

// Order is ORDER BY SortItem {, SortItem}.
type Order struct {
	Items []SortItem
}

// Match is [OPTIONAL] MATCH Pattern [WHERE].
type Match struct {
	Optional bool
	Pattern  *Pattern
	Where    Expr
}

// Unwind is UNWIND expr AS var.
type Unwind struct {
	Expr Expr
	Var  Variable
}

// InQueryCall is CALL proc(args) [YIELD items].
type InQueryCall struct {
	Proc  *ExplicitProcedureInvocation
	Yield *YieldItems
}

// StandaloneCall is CALL with either invocation form and an optional YIELD.
// YieldAll prints `YIELD *`.
type StandaloneCall struct {
	Explicit *ExplicitProcedureInvocation
	Implicit *ImplicitProcedureInvocation
	YieldAll bool
	Yield    *YieldItems
}

// Create is CREATE Pattern.
type Create struct {
	Pattern *Pattern
}

// MergeAction is ON CREATE SET ... or ON MATCH SET ...
type MergeAction struct {
	OnCreate bool
	Set      *Set
}

// Merge is MERGE PatternPart {MergeAction}.
type Merge struct {
	Part    *PatternPart
	Actions []MergeAction
}

// Delete is [DETACH] DELETE expr {, expr}.
type Delete struct {
	Detach bool
	Exprs  []Expr
}

// SetItemKind selects the SET item form.
type SetItemKind uint8

const (
	SetProperty SetItemKind = iota // n.p = expr
	SetAssign                      // n = expr
	SetAppend                      // n += expr
	SetLabels                      // n:Label
)

// SetItem is one assignment of a SET clause. Target is used by SetProperty
// and must be a *Property; Var by the other forms.
type SetItem struct {
	Type   SetItemKind
	Target *Property
	Var    Variable
	Value  Expr
	Labels []string
}

// Set is SET SetItem {, SetItem}.
type Set struct {
	Items []SetItem
}

// RemoveItem is either `var:Label...` (Labels set) or a property expression.
type RemoveItem struct {
	Var      Variable
	Labels   []string
	Property *Property
}

// Remove is REMOVE RemoveItem {, RemoveItem}.
type Remove struct {
	Items []RemoveItem
}

// ExplicitProcedureInvocation is name(args).
type ExplicitProcedureInvocation struct {
	Name string
	Args []Expr
}

// ImplicitProcedureInvocation is a bare procedure name.
type ImplicitProcedureInvocation struct {
	Name string
}

// YieldItem is `[field AS] var`.
type YieldItem struct {
	Field string
	Var   Variable
}

// YieldItems is YieldItem {, YieldItem} [WHERE].
type YieldItems struct {
	Items []YieldItem
	Where Expr
}

// Pattern is PatternPart {, PatternPart}.
type Pattern struct {
	Parts []*PatternPart
}

// PatternPart is [var =] PatternElement.
type PatternPart struct {
	Var     *Variable
	Element *PatternElement
}

// PatternChain is one relationship/node step of a PatternElement.
type PatternChain struct {
	Rel  *RelationshipPattern
	Node *NodePattern
}

// PatternElement is NodePattern {PatternChain}, optionally parenthesized.
type PatternElement struct {
	Node          *NodePattern
	Chain         []PatternChain
	Parenthesized bool
}

// NodePattern is ( [var] :Label [{props}] ). Graphs of the target system
// carry exactly one label per vertex, so Label is a single name.
type NodePattern struct {
	Var   *Variable
	Label string
	Props []MapEntry
}

// Direction of a relationship pattern.
type Direction uint8

const (
	DirRight Direction = iota // -[]->
	DirLeft                   // <-[]-
	DirBoth                   // -[]-
)

// RangeLiteral is *[min]..[max]; nil bounds are omitted.
type RangeLiteral struct {
	Min, Max *int
}

// RelationshipPattern is the -[detail]- part of a chain.
type RelationshipPattern struct {
	Direction Direction
	Var       *Variable
	Types     []string
	Range     *RangeLiteral
	Props     []MapEntry
}
