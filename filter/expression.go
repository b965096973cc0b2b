package filter

import (
	"sort"

	"github.com/hugr-lab/cql/catalog"
)

// Expression is a node of the immutable filter tree: a combinator
// (AND/OR/NOT) or a predicate map. Trees are built fresh per request,
// either programmatically or by Decode, and never mutated afterwards.
type Expression interface {
	// expressionMarker prevents external implementations so the compiler's
	// type switch stays exhaustive.
	expressionMarker()
}

// And combines child expressions conjunctively.
type And struct {
	Children []Expression
}

// Or combines child expressions disjunctively.
type Or struct {
	Children []Expression
}

// Not negates its child as a unit: NOT(AND(a, b)) is "not (a and b)",
// never "not a and not b".
type Not struct {
	Child Expression
}

// Condition is one {operator, value} pair applied to a field. Multiple
// conditions on the same field compose conjunctively.
type Condition struct {
	Operator catalog.Operator
	Value    any
}

// FieldPredicate holds the conditions for one field of a predicate map,
// or an association-scoped sub-filter (exactly one of the two is set).
type FieldPredicate struct {
	Field      string
	Conditions []Condition

	// Sub is the nested filter for an association field.
	Sub Expression
}

// Where is a predicate map: an ordered mapping from field name to
// conditions. Exists carries the reserved existence marker; it is legal
// only as the sole content of a predicate map used as an association
// sub-filter, which the compiler enforces.
type Where struct {
	Predicates []FieldPredicate
	Exists     *bool
}

func (*And) expressionMarker()   {}
func (*Or) expressionMarker()    {}
func (*Not) expressionMarker()   {}
func (*Where) expressionMarker() {}

// NewAnd builds an AND combinator.
func NewAnd(children ...Expression) *And { return &And{Children: children} }

// NewOr builds an OR combinator.
func NewOr(children ...Expression) *Or { return &Or{Children: children} }

// NewNot builds a NOT combinator.
func NewNot(child Expression) *Not { return &Not{Child: child} }

// Exists builds the existence marker sub-filter: "at least one related row
// matches" (or none, when present is false).
func Exists(present bool) *Where { return &Where{Exists: &present} }

// Field builds a single-field predicate map.
func Field(name string, conds ...Condition) *Where {
	return &Where{Predicates: []FieldPredicate{{Field: name, Conditions: conds}}}
}

// Assoc builds a predicate map holding one association sub-filter.
func Assoc(name string, sub Expression) *Where {
	return &Where{Predicates: []FieldPredicate{{Field: name, Sub: sub}}}
}

// Cond builds one {operator, value} pair.
func Cond(op catalog.Operator, value any) Condition {
	return Condition{Operator: op, Value: value}
}

// ReferencedFields returns the sorted, deduplicated set of field names the
// expression references. Fields inside an association sub-filter are
// reported qualified with the association name ("orders.total"); the
// association name itself is reported too.
func ReferencedFields(expr Expression) []string {
	set := map[string]struct{}{}
	collectFields(expr, "", set)
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func collectFields(expr Expression, prefix string, set map[string]struct{}) {
	switch e := expr.(type) {
	case nil:
	case *And:
		for _, c := range e.Children {
			collectFields(c, prefix, set)
		}
	case *Or:
		for _, c := range e.Children {
			collectFields(c, prefix, set)
		}
	case *Not:
		collectFields(e.Child, prefix, set)
	case *Where:
		for _, fp := range e.Predicates {
			name := prefix + fp.Field
			set[name] = struct{}{}
			if fp.Sub != nil {
				collectFields(fp.Sub, name+".", set)
			}
		}
	}
}
