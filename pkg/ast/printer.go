package ast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed reports a variant combination the grammar does not allow.
// The generator never builds such trees, so seeing it means a bug.
var ErrMalformed = errors.New("malformed syntax tree")

// Serialize renders a complete query as text terminated by a semicolon.
func Serialize(q *Query) (string, error) {
	s, err := Format(q)
	if err != nil {
		return "", err
	}
	return s + ";", nil
}

// Format renders any node without a trailing semicolon. It never mutates
// the tree and makes no random choices.
func Format(n Node) (string, error) {
	if isNil(n) {
		return "", fmt.Errorf("%w: nil node", ErrMalformed)
	}
	p := &printer{}
	n.Accept(p)
	if p.err != nil {
		return "", p.err
	}
	return p.b.String(), nil
}

// Expression precedence, lowest binding first.
const (
	precOr = iota + 1
	precXor
	precAnd
	precNot
	precCmp
	precAdd
	precMul
	precPow
	precUnary
	precSuffix
	precProperty
	precAtom
)

func precedence(e Expr) int {
	switch e := e.(type) {
	case *BinOp:
		switch e.Op {
		case OpOr:
			return precOr
		case OpXor:
			return precXor
		case OpAnd:
			return precAnd
		case OpAdd, OpSub:
			return precAdd
		case OpMul, OpDiv, OpMod:
			return precMul
		}
		return precPow
	case *UnOp:
		if e.Op == OpNot {
			return precNot
		}
		return precUnary
	case *Cmp:
		return precCmp
	case *StringOp, *InList, *NullCheck, *Index, *Slice:
		return precSuffix
	case *Property, *LabelCheck:
		return precProperty
	}
	return precAtom
}

type printer struct {
	b   strings.Builder
	err error
}

func (p *printer) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
	}
}

func (p *printer) write(s string) { p.b.WriteString(s) }

func (p *printer) node(n Node) {
	if isNil(n) {
		p.fail("missing child")
		return
	}
	n.Accept(p)
}

// operand prints e, parenthesizing it when it binds looser than min.
func (p *printer) operand(e Expr, min int) {
	if isNil(e) {
		p.fail("missing operand")
		return
	}
	if precedence(e) < min {
		p.write("(")
		e.Accept(p)
		p.write(")")
		return
	}
	e.Accept(p)
}

func (p *printer) expr(e Expr) { p.operand(e, precOr) }

func (p *printer) exprList(es []Expr) {
	for i, e := range es {
		if i > 0 {
			p.write(", ")
		}
		p.expr(e)
	}
}

// name writes a symbolic name, quoting it when it is not a plain identifier.
func (p *printer) name(s string) {
	if isIdentifier(s) {
		p.write(s)
		return
	}
	p.write("`" + strings.ReplaceAll(s, "`", "``") + "`")
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func (p *printer) where(e Expr) {
	if !isNil(e) {
		p.write(" WHERE ")
		p.expr(e)
	}
}

func (p *printer) props(entries []MapEntry) {
	p.write("{")
	for i, e := range entries {
		if i > 0 {
			p.write(", ")
		}
		p.name(e.Key)
		p.write(": ")
		p.expr(e.Value)
	}
	p.write("}")
}

func (p *printer) clauses(reading []*ReadingClause, updating []*UpdatingClause) bool {
	wrote := false
	for _, r := range reading {
		if wrote {
			p.write(" ")
		}
		p.node(r)
		wrote = true
	}
	for _, u := range updating {
		if wrote {
			p.write(" ")
		}
		p.node(u)
		wrote = true
	}
	return wrote
}

func (p *printer) VisitQuery(n *Query) {
	switch {
	case n.Regular != nil && n.Call == nil:
		p.node(n.Regular)
	case n.Call != nil && n.Regular == nil:
		p.node(n.Call)
	default:
		p.fail("query must hold exactly one body")
	}
}

func (p *printer) VisitRegularQuery(n *RegularQuery) {
	p.node(n.Single)
	for _, u := range n.Unions {
		p.write(" ")
		p.node(u)
	}
}

func (p *printer) VisitUnion(n *Union) {
	if n.All {
		p.write("UNION ALL ")
	} else {
		p.write("UNION ")
	}
	p.node(n.Single)
}

func (p *printer) VisitSingleQuery(n *SingleQuery) {
	switch {
	case n.SinglePart != nil && n.MultiPart == nil:
		p.node(n.SinglePart)
	case n.MultiPart != nil && n.SinglePart == nil:
		p.node(n.MultiPart)
	default:
		p.fail("single query must hold exactly one form")
	}
}

func (p *printer) VisitSinglePartQuery(n *SinglePartQuery) {
	if n.Return == nil && len(n.Updating) == 0 {
		p.fail("single-part query without RETURN or updating clause")
		return
	}
	wrote := p.clauses(n.Reading, n.Updating)
	if n.Return != nil {
		if wrote {
			p.write(" ")
		}
		p.node(n.Return)
	}
}

func (p *printer) VisitMultiPartQuery(n *MultiPartQuery) {
	if len(n.Parts) == 0 {
		p.fail("multi-part query without WITH")
		return
	}
	for _, part := range n.Parts {
		p.node(part)
		p.write(" ")
	}
	p.node(n.Tail)
}

func (p *printer) VisitQueryPart(n *QueryPart) {
	if p.clauses(n.Reading, n.Updating) {
		p.write(" ")
	}
	p.node(n.With)
}

func (p *printer) VisitWith(n *With) {
	p.write("WITH ")
	p.node(n.Body)
	p.where(n.Where)
}

func (p *printer) VisitReadingClause(n *ReadingClause) {
	switch {
	case n.Match != nil:
		p.node(n.Match)
	case n.Unwind != nil:
		p.node(n.Unwind)
	case n.Call != nil:
		p.node(n.Call)
	default:
		p.fail("empty reading clause")
	}
}

func (p *printer) VisitUpdatingClause(n *UpdatingClause) {
	switch {
	case n.Create != nil:
		p.node(n.Create)
	case n.Merge != nil:
		p.node(n.Merge)
	case n.Delete != nil:
		p.node(n.Delete)
	case n.Set != nil:
		p.node(n.Set)
	case n.Remove != nil:
		p.node(n.Remove)
	default:
		p.fail("empty updating clause")
	}
}

func (p *printer) VisitReturn(n *Return) {
	p.write("RETURN ")
	p.node(n.Body)
}

func (p *printer) VisitProjectionBody(n *ProjectionBody) {
	if n.Distinct {
		p.write("DISTINCT ")
	}
	p.node(n.Items)
	if n.Order != nil {
		p.write(" ")
		p.node(n.Order)
	}
	if !isNil(n.Skip) {
		p.write(" SKIP ")
		p.expr(n.Skip)
	}
	if !isNil(n.Limit) {
		p.write(" LIMIT ")
		p.expr(n.Limit)
	}
}

func (p *printer) VisitProjectionItems(n *ProjectionItems) {
	if !n.Star && len(n.Items) == 0 {
		p.fail("empty projection")
		return
	}
	if n.Star {
		p.write("*")
	}
	for i, it := range n.Items {
		if i > 0 || n.Star {
			p.write(", ")
		}
		p.expr(it.Expr)
		if it.Alias != nil {
			p.write(" AS ")
			p.name(it.Alias.Name)
		}
	}
}

func (p *printer) VisitOrder(n *Order) {
	if len(n.Items) == 0 {
		p.fail("empty ORDER BY")
		return
	}
	p.write("ORDER BY ")
	for i, it := range n.Items {
		if i > 0 {
			p.write(", ")
		}
		p.expr(it.Expr)
		if it.Descending {
			p.write(" DESC")
		}
	}
}

func (p *printer) VisitMatch(n *Match) {
	if n.Optional {
		p.write("OPTIONAL ")
	}
	p.write("MATCH ")
	p.node(n.Pattern)
	p.where(n.Where)
}

func (p *printer) VisitUnwind(n *Unwind) {
	p.write("UNWIND ")
	p.expr(n.Expr)
	p.write(" AS ")
	p.name(n.Var.Name)
}

func (p *printer) VisitInQueryCall(n *InQueryCall) {
	p.write("CALL ")
	p.node(n.Proc)
	if n.Yield != nil {
		p.write(" YIELD ")
		p.node(n.Yield)
	}
}

func (p *printer) VisitStandaloneCall(n *StandaloneCall) {
	p.write("CALL ")
	switch {
	case n.Explicit != nil && n.Implicit == nil:
		p.node(n.Explicit)
	case n.Implicit != nil && n.Explicit == nil:
		p.node(n.Implicit)
	default:
		p.fail("standalone call must hold exactly one invocation")
		return
	}
	switch {
	case n.YieldAll && n.Yield != nil:
		p.fail("YIELD * combined with yield items")
	case n.YieldAll:
		p.write(" YIELD *")
	case n.Yield != nil:
		p.write(" YIELD ")
		p.node(n.Yield)
	}
}

func (p *printer) VisitCreate(n *Create) {
	p.write("CREATE ")
	p.node(n.Pattern)
}

func (p *printer) VisitMerge(n *Merge) {
	p.write("MERGE ")
	p.node(n.Part)
	for _, a := range n.Actions {
		if a.OnCreate {
			p.write(" ON CREATE ")
		} else {
			p.write(" ON MATCH ")
		}
		p.node(a.Set)
	}
}

func (p *printer) VisitDelete(n *Delete) {
	if len(n.Exprs) == 0 {
		p.fail("DELETE without targets")
		return
	}
	if n.Detach {
		p.write("DETACH ")
	}
	p.write("DELETE ")
	p.exprList(n.Exprs)
}

func (p *printer) labels(labels []string) {
	for _, l := range labels {
		p.write(":")
		p.name(l)
	}
}

func (p *printer) VisitSet(n *Set) {
	if len(n.Items) == 0 {
		p.fail("SET without items")
		return
	}
	p.write("SET ")
	for i, it := range n.Items {
		if i > 0 {
			p.write(", ")
		}
		switch it.Type {
		case SetProperty:
			if it.Target == nil {
				p.fail("property SET item without target")
				return
			}
			p.node(it.Target)
			p.write(" = ")
			p.expr(it.Value)
		case SetAssign, SetAppend:
			p.name(it.Var.Name)
			if it.Type == SetAssign {
				p.write(" = ")
			} else {
				p.write(" += ")
			}
			p.expr(it.Value)
		case SetLabels:
			if len(it.Labels) == 0 {
				p.fail("label SET item without labels")
				return
			}
			p.name(it.Var.Name)
			p.labels(it.Labels)
		default:
			p.fail("unknown SET item kind %d", it.Type)
		}
	}
}

func (p *printer) VisitRemove(n *Remove) {
	if len(n.Items) == 0 {
		p.fail("REMOVE without items")
		return
	}
	p.write("REMOVE ")
	for i, it := range n.Items {
		if i > 0 {
			p.write(", ")
		}
		switch {
		case it.Property != nil && len(it.Labels) == 0:
			p.node(it.Property)
		case it.Property == nil && len(it.Labels) > 0:
			p.name(it.Var.Name)
			p.labels(it.Labels)
		default:
			p.fail("REMOVE item must be labels or a property")
		}
	}
}

func (p *printer) procName(name string) {
	for i, part := range strings.Split(name, ".") {
		if i > 0 {
			p.write(".")
		}
		p.name(part)
	}
}

func (p *printer) VisitExplicitProcedureInvocation(n *ExplicitProcedureInvocation) {
	p.procName(n.Name)
	p.write("(")
	p.exprList(n.Args)
	p.write(")")
}

func (p *printer) VisitImplicitProcedureInvocation(n *ImplicitProcedureInvocation) {
	p.procName(n.Name)
}

func (p *printer) VisitYieldItems(n *YieldItems) {
	if len(n.Items) == 0 {
		p.fail("YIELD without items")
		return
	}
	for i, it := range n.Items {
		if i > 0 {
			p.write(", ")
		}
		if it.Field != "" && it.Field != it.Var.Name {
			p.name(it.Field)
			p.write(" AS ")
		}
		p.name(it.Var.Name)
	}
	p.where(n.Where)
}

func (p *printer) VisitPattern(n *Pattern) {
	if len(n.Parts) == 0 {
		p.fail("empty pattern")
		return
	}
	for i, part := range n.Parts {
		if i > 0 {
			p.write(", ")
		}
		p.node(part)
	}
}

func (p *printer) VisitPatternPart(n *PatternPart) {
	if n.Var != nil {
		p.name(n.Var.Name)
		p.write(" = ")
	}
	p.node(n.Element)
}

func (p *printer) VisitPatternElement(n *PatternElement) {
	if n.Parenthesized {
		p.write("(")
	}
	p.node(n.Node)
	for _, ch := range n.Chain {
		p.node(ch.Rel)
		p.node(ch.Node)
	}
	if n.Parenthesized {
		p.write(")")
	}
}

func (p *printer) VisitNodePattern(n *NodePattern) {
	p.write("(")
	if n.Var != nil {
		p.name(n.Var.Name)
	}
	if n.Label != "" {
		p.write(":")
		p.name(n.Label)
	}
	if len(n.Props) > 0 {
		if n.Var != nil || n.Label != "" {
			p.write(" ")
		}
		p.props(n.Props)
	}
	p.write(")")
}

func (p *printer) VisitRelationshipPattern(n *RelationshipPattern) {
	if n.Direction == DirLeft {
		p.write("<-[")
	} else {
		p.write("-[")
	}
	if n.Var != nil {
		p.name(n.Var.Name)
	}
	for i, t := range n.Types {
		if i == 0 {
			p.write(":")
		} else {
			p.write("|")
		}
		p.name(t)
	}
	if r := n.Range; r != nil {
		p.write("*")
		if r.Min != nil {
			p.write(strconv.Itoa(*r.Min))
		}
		if r.Max != nil || r.Min != nil {
			p.write("..")
		}
		if r.Max != nil {
			p.write(strconv.Itoa(*r.Max))
		}
	}
	if len(n.Props) > 0 {
		p.write(" ")
		p.props(n.Props)
	}
	if n.Direction == DirRight {
		p.write("]->")
	} else {
		p.write("]-")
	}
}

func (p *printer) VisitBinOp(e *BinOp) {
	prec := precedence(e)
	p.operand(e.LHS, prec)
	p.write(" " + e.Op.String() + " ")
	p.operand(e.RHS, prec+1)
}

func (p *printer) VisitUnOp(e *UnOp) {
	if e.Op == OpNot {
		p.write("NOT ")
		p.operand(e.Operand, precNot)
		return
	}
	p.write(e.Op.String())
	p.operand(e.Operand, precSuffix)
}

func (p *printer) VisitCmp(e *Cmp) {
	if len(e.Tail) == 0 {
		p.fail("comparison without operator")
		return
	}
	p.operand(e.Base, precAdd)
	for _, part := range e.Tail {
		p.write(" " + part.Op.String() + " ")
		p.operand(part.RHS, precAdd)
	}
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (p *printer) VisitLit(e *Lit) {
	switch e.Type {
	case LitInteger:
		p.write(strconv.FormatInt(e.Int, 10))
	case LitFloat:
		p.write(formatFloat(e.Float))
	case LitString:
		p.write(quoteString(e.Str))
	case LitBoolean:
		p.write(strconv.FormatBool(e.Bool))
	case LitNull:
		p.write("null")
	case LitList:
		p.write("[")
		p.exprList(e.Items)
		p.write("]")
	case LitMap:
		p.props(e.Entries)
	default:
		p.fail("unknown literal kind %d", e.Type)
	}
}

func (p *printer) VisitVarRef(e *VarRef) { p.name(e.Var.Name) }

func (p *printer) VisitProperty(e *Property) {
	if _, chained := e.Base.(*Property); chained {
		p.node(e.Base)
	} else {
		p.operand(e.Base, precAtom)
	}
	p.write(".")
	p.name(e.Key)
}

func (p *printer) VisitLabelCheck(e *LabelCheck) {
	if len(e.Labels) == 0 {
		p.fail("label check without labels")
		return
	}
	if _, nested := e.Base.(*LabelCheck); nested {
		p.operand(e.Base, precAtom)
	} else {
		p.operand(e.Base, precProperty)
	}
	p.labels(e.Labels)
}

func (p *printer) VisitCase(e *Case) {
	if len(e.Alts) == 0 {
		p.fail("CASE without alternatives")
		return
	}
	p.write("CASE")
	if !isNil(e.Scrutinee) {
		p.write(" ")
		p.expr(e.Scrutinee)
	}
	for _, a := range e.Alts {
		p.write(" WHEN ")
		p.expr(a.When)
		p.write(" THEN ")
		p.expr(a.Then)
	}
	if !isNil(e.Else) {
		p.write(" ELSE ")
		p.expr(e.Else)
	}
	p.write(" END")
}

func (p *printer) VisitFilter(e *Filter) {
	p.name(e.Bound.Name)
	p.write(" IN ")
	p.expr(e.Source)
	p.where(e.Where)
}

func (p *printer) VisitPredicateFunc(e *PredicateFunc) {
	if e.Filter == nil {
		p.fail("predicate function without filter")
		return
	}
	p.write(e.Func.String() + "(")
	p.node(e.Filter)
	p.write(")")
}

func (p *printer) VisitSubQuery(e *SubQuery) {
	if e.Type == SubQueryCount {
		p.write("COUNT { ")
	} else {
		p.write("EXISTS { ")
	}
	switch inner := e.Inner.(type) {
	case *Pattern:
		p.node(inner)
		p.where(e.Where)
	case *RegularQuery:
		if !isNil(e.Where) {
			p.fail("sub-query WHERE on a full query body")
			return
		}
		p.node(inner)
	default:
		p.fail("sub-query body must be a pattern or a query")
		return
	}
	p.write(" }")
}

func (p *printer) VisitParameter(e *Parameter) {
	p.write("$")
	p.name(e.Name)
}

func (p *printer) VisitCountStar(*CountStar) { p.write("count(*)") }

func (p *printer) VisitListComprehension(e *ListComprehension) {
	if e.Filter == nil {
		p.fail("list comprehension without filter")
		return
	}
	p.write("[")
	p.node(e.Filter)
	if !isNil(e.Projection) {
		p.write(" | ")
		p.expr(e.Projection)
	}
	p.write("]")
}

func (p *printer) VisitPatternComprehension(e *PatternComprehension) {
	if isNil(e.Projection) {
		p.fail("pattern comprehension without projection")
		return
	}
	p.write("[")
	if e.Var != nil {
		p.name(e.Var.Name)
		p.write(" = ")
	}
	p.node(e.Element)
	p.where(e.Where)
	p.write(" | ")
	p.expr(e.Projection)
	p.write("]")
}

func (p *printer) VisitPatternPredicate(e *PatternPredicate) {
	if e.Element == nil || len(e.Element.Chain) == 0 {
		p.fail("pattern predicate needs at least one relationship")
		return
	}
	p.node(e.Element)
}

func (p *printer) VisitParen(e *Paren) {
	p.write("(")
	p.expr(e.Inner)
	p.write(")")
}

func (p *printer) VisitFuncCall(e *FuncCall) {
	p.procName(e.Name)
	p.write("(")
	if e.Distinct {
		p.write("DISTINCT ")
	}
	p.exprList(e.Args)
	p.write(")")
}

func (p *printer) VisitStringOp(e *StringOp) {
	p.operand(e.LHS, precSuffix)
	p.write(" " + e.Op.String() + " ")
	p.operand(e.RHS, precProperty)
}

func (p *printer) VisitInList(e *InList) {
	p.operand(e.LHS, precSuffix)
	p.write(" IN ")
	p.operand(e.RHS, precProperty)
}

func (p *printer) VisitNullCheck(e *NullCheck) {
	p.operand(e.Operand, precSuffix)
	if e.Not {
		p.write(" IS NOT NULL")
	} else {
		p.write(" IS NULL")
	}
}

func (p *printer) VisitIndex(e *Index) {
	p.operand(e.Base, precSuffix)
	p.write("[")
	p.expr(e.Index)
	p.write("]")
}

func (p *printer) VisitSlice(e *Slice) {
	p.operand(e.Base, precSuffix)
	p.write("[")
	if !isNil(e.From) {
		p.expr(e.From)
	}
	p.write("..")
	if !isNil(e.To) {
		p.expr(e.To)
	}
	p.write("]")
}
