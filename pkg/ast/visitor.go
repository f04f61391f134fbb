package ast

// Visitor has one method per grammar non-terminal and per expression form.
// Adding a node type without extending Visitor breaks every implementation at
// compile time, which keeps the serializer and the tree in step.
type Visitor interface {
	VisitQuery(n *Query)
	VisitRegularQuery(n *RegularQuery)
	VisitUnion(n *Union)
	VisitSingleQuery(n *SingleQuery)
	VisitSinglePartQuery(n *SinglePartQuery)
	VisitMultiPartQuery(n *MultiPartQuery)
	VisitQueryPart(n *QueryPart)
	VisitWith(n *With)
	VisitReadingClause(n *ReadingClause)
	VisitUpdatingClause(n *UpdatingClause)
	VisitReturn(n *Return)
	VisitProjectionBody(n *ProjectionBody)
	VisitProjectionItems(n *ProjectionItems)
	VisitOrder(n *Order)
	VisitMatch(n *Match)
	VisitUnwind(n *Unwind)
	VisitInQueryCall(n *InQueryCall)
	VisitStandaloneCall(n *StandaloneCall)
	VisitCreate(n *Create)
	VisitMerge(n *Merge)
	VisitDelete(n *Delete)
	VisitSet(n *Set)
	VisitRemove(n *Remove)
	VisitExplicitProcedureInvocation(n *ExplicitProcedureInvocation)
	VisitImplicitProcedureInvocation(n *ImplicitProcedureInvocation)
	VisitYieldItems(n *YieldItems)
	VisitPattern(n *Pattern)
	VisitPatternPart(n *PatternPart)
	VisitPatternElement(n *PatternElement)
	VisitNodePattern(n *NodePattern)
	VisitRelationshipPattern(n *RelationshipPattern)

	VisitBinOp(e *BinOp)
	VisitUnOp(e *UnOp)
	VisitCmp(e *Cmp)
	VisitLit(e *Lit)
	VisitVarRef(e *VarRef)
	VisitProperty(e *Property)
	VisitLabelCheck(e *LabelCheck)
	VisitCase(e *Case)
	VisitFilter(e *Filter)
	VisitPredicateFunc(e *PredicateFunc)
	VisitSubQuery(e *SubQuery)
	VisitParameter(e *Parameter)
	VisitCountStar(e *CountStar)
	VisitListComprehension(e *ListComprehension)
	VisitPatternComprehension(e *PatternComprehension)
	VisitPatternPredicate(e *PatternPredicate)
	VisitParen(e *Paren)
	VisitFuncCall(e *FuncCall)
	VisitStringOp(e *StringOp)
	VisitInList(e *InList)
	VisitNullCheck(e *NullCheck)
	VisitIndex(e *Index)
	VisitSlice(e *Slice)
}

func (n *Query) Accept(v Visitor) { v.VisitQuery(n) }
func (n *RegularQuery) Accept(v Visitor) { v.VisitRegularQuery(n) }
func (n *Union) Accept(v Visitor) { v.VisitUnion(n) }
func (n *SingleQuery) Accept(v Visitor) { v.VisitSingleQuery(n) }
func (n *SinglePartQuery) Accept(v Visitor) { v.VisitSinglePartQuery(n) }
func (n *MultiPartQuery) Accept(v Visitor) { v.VisitMultiPartQuery(n) }
func (n *QueryPart) Accept(v Visitor) { v.VisitQueryPart(n) }
func (n *With) Accept(v Visitor) { v.VisitWith(n) }
func (n *ReadingClause) Accept(v Visitor) { v.VisitReadingClause(n) }
func (n *UpdatingClause) Accept(v Visitor) { v.VisitUpdatingClause(n) }
func (n *Return) Accept(v Visitor) { v.VisitReturn(n) }
func (n *ProjectionBody) Accept(v Visitor) { v.VisitProjectionBody(n) }
func (n *ProjectionItems) Accept(v Visitor) { v.VisitProjectionItems(n) }
func (n *Order) Accept(v Visitor) { v.VisitOrder(n) }
func (n *Match) Accept(v Visitor) { v.VisitMatch(n) }
func (n *Unwind) Accept(v Visitor) { v.VisitUnwind(n) }
func (n *InQueryCall) Accept(v Visitor) { v.VisitInQueryCall(n) }
func (n *StandaloneCall) Accept(v Visitor) { v.VisitStandaloneCall(n) }
func (n *Create) Accept(v Visitor) { v.VisitCreate(n) }
func (n *Merge) Accept(v Visitor) { v.VisitMerge(n) }
func (n *Delete) Accept(v Visitor) { v.VisitDelete(n) }
func (n *Set) Accept(v Visitor) { v.VisitSet(n) }
func (n *Remove) Accept(v Visitor) { v.VisitRemove(n) }
func (n *ExplicitProcedureInvocation) Accept(v Visitor) { v.VisitExplicitProcedureInvocation(n) }
func (n *ImplicitProcedureInvocation) Accept(v Visitor) { v.VisitImplicitProcedureInvocation(n) }
func (n *YieldItems) Accept(v Visitor) { v.VisitYieldItems(n) }
func (n *Pattern) Accept(v Visitor) { v.VisitPattern(n) }
func (n *PatternPart) Accept(v Visitor) { v.VisitPatternPart(n) }
func (n *PatternElement) Accept(v Visitor) { v.VisitPatternElement(n) }
func (n *NodePattern) Accept(v Visitor) { v.VisitNodePattern(n) }
func (n *RelationshipPattern) Accept(v Visitor) { v.VisitRelationshipPattern(n) }

func (e *BinOp) Accept(v Visitor) { v.VisitBinOp(e) }
func (e *UnOp) Accept(v Visitor) { v.VisitUnOp(e) }
func (e *Cmp) Accept(v Visitor) { v.VisitCmp(e) }
func (e *Lit) Accept(v Visitor) { v.VisitLit(e) }
func (e *VarRef) Accept(v Visitor) { v.VisitVarRef(e) }
func (e *Property) Accept(v Visitor) { v.VisitProperty(e) }
func (e *LabelCheck) Accept(v Visitor) { v.VisitLabelCheck(e) }
func (e *Case) Accept(v Visitor) { v.VisitCase(e) }
func (e *Filter) Accept(v Visitor) { v.VisitFilter(e) }
func (e *PredicateFunc) Accept(v Visitor) { v.VisitPredicateFunc(e) }
func (e *SubQuery) Accept(v Visitor) { v.VisitSubQuery(e) }
func (e *Parameter) Accept(v Visitor) { v.VisitParameter(e) }
func (e *CountStar) Accept(v Visitor) { v.VisitCountStar(e) }
func (e *ListComprehension) Accept(v Visitor) { v.VisitListComprehension(e) }
func (e *PatternComprehension) Accept(v Visitor) { v.VisitPatternComprehension(e) }
func (e *PatternPredicate) Accept(v Visitor) { v.VisitPatternPredicate(e) }
func (e *Paren) Accept(v Visitor) { v.VisitParen(e) }
func (e *FuncCall) Accept(v Visitor) { v.VisitFuncCall(e) }
func (e *StringOp) Accept(v Visitor) { v.VisitStringOp(e) }
func (e *InList) Accept(v Visitor) { v.VisitInList(e) }
func (e *NullCheck) Accept(v Visitor) { v.VisitNullCheck(e) }
func (e *Index) Accept(v Visitor) { v.VisitIndex(e) }
func (e *Slice) Accept(v Visitor) { v.VisitSlice(e) }
