package filter

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/catalog"
)

// Compiler compiles filter expressions into backend-native predicates for
// one (schema, adapter) pair. Compilers are stateless across calls and safe
// for concurrent use; all configuration is read-only after construction.
type Compiler struct {
	// Schema describes the queryable fields.
	Schema catalog.Schema

	// Adapter selects the backend and its capability table. Resolved once
	// per schema; mixing adapters within one compilation is not supported.
	Adapter adapter.Adapter

	// Table is the base table (or index) name used to qualify columns and
	// render existence predicates.
	Table string

	// Overrides replaces the capability-table-derived operator set for
	// individual fields. An override is authoritative: operators outside
	// it are no-ops even when the capability table would allow them. It
	// cannot widen the set: listed operators the adapter cannot render
	// are dropped.
	Overrides map[string][]catalog.Operator
}

// scope carries the per-subtree compilation state: the schema and table of
// the current association level and whether we are inside an association
// sub-filter (which controls existence-marker legality).
type scope struct {
	schema catalog.Schema
	table  string
	nested bool
	path   string
}

// Apply compiles expr and restricts base by the resulting predicate.
// A nil or empty expression is the identity: base is returned unchanged.
func (c *Compiler) Apply(base sq.SelectBuilder, expr Expression) (sq.SelectBuilder, error) {
	pred, err := c.Predicate(expr)
	if err != nil {
		return base, err
	}
	if pred == nil {
		return base, nil
	}
	return base.Where(pred), nil
}

// Predicate compiles expr into a composable squirrel predicate.
// Returns (nil, nil) for an empty filter.
func (c *Compiler) Predicate(expr Expression) (sq.Sqlizer, error) {
	return c.compile(expr, scope{schema: c.Schema, table: c.Table, path: "filter"})
}

func (c *Compiler) compile(expr Expression, sc scope) (sq.Sqlizer, error) {
	switch e := expr.(type) {
	case nil:
		return nil, nil
	case *And:
		var preds []sq.Sqlizer
		for _, child := range e.Children {
			p, err := c.compile(child, sc)
			if err != nil {
				return nil, err
			}
			if p != nil {
				preds = append(preds, p)
			}
		}
		return combine(preds, false), nil
	case *Or:
		var preds []sq.Sqlizer
		for _, child := range e.Children {
			p, err := c.compile(child, sc)
			if err != nil {
				return nil, err
			}
			if p == nil {
				// One unrestricted branch makes the whole disjunction
				// unrestricted.
				return nil, nil
			}
			preds = append(preds, p)
		}
		return combine(preds, true), nil
	case *Not:
		p, err := c.compile(e.Child, sc)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, nil
		}
		return notSqlizer{inner: p}, nil
	case *Where:
		return c.compileWhere(e, sc)
	default:
		return nil, malformed(sc.path, "unsupported expression node %T", expr)
	}
}

func (c *Compiler) compileWhere(w *Where, sc scope) (sq.Sqlizer, error) {
	if w.Exists != nil {
		// The existence marker is consumed by compileAssociation when it is
		// the sole content of an association sub-filter. Reaching it here
		// means it is misplaced.
		if len(w.Predicates) > 0 {
			return nil, malformed(sc.path, "existence marker cannot be combined with other keys")
		}
		if !sc.nested {
			return nil, malformed(sc.path, "existence marker is only legal inside an association sub-filter")
		}
		return nil, malformed(sc.path, "existence marker must be the sole content of the association sub-filter")
	}

	var preds []sq.Sqlizer
	for _, fp := range w.Predicates {
		path := sc.path + "." + fp.Field
		if fp.Sub != nil {
			p, err := c.compileAssociation(fp.Field, fp.Sub, sc)
			if err != nil {
				return nil, err
			}
			if p != nil {
				preds = append(preds, p)
			}
			continue
		}

		field, ok := sc.schema.Field(fp.Field)
		if !ok {
			return nil, malformed(path, "unknown field")
		}
		legal := c.operatorsFor(field, sc)
		col := qualify(sc.table, field.ColumnName())
		mod := moduleFor(field.Kind)
		for _, cond := range fp.Conditions {
			if !operatorIn(legal, cond.Operator) {
				// Illegal operator for this (kind, adapter): a safe no-op,
				// never an error, to tolerate stale clients.
				continue
			}
			p, err := mod.sql(col, cond.Operator, cond.Value, c.Adapter)
			if err != nil {
				return nil, malformed(path, "%s: %v", cond.Operator, err)
			}
			if p != nil {
				preds = append(preds, p)
			}
		}
	}
	return combine(preds, false), nil
}

// compileAssociation renders an association sub-filter as a correlated
// existence predicate on the related table.
func (c *Compiler) compileAssociation(name string, sub Expression, sc scope) (sq.Sqlizer, error) {
	path := sc.path + "." + name
	as, ok := associationOf(sc.schema, name)
	if !ok {
		return nil, malformed(path, "unknown field or association")
	}

	join := qualify(as.Table, as.ForeignKey) + " = " + qualify(sc.table, as.LocalKey)

	// The existence marker as the sole content of the sub-filter is the
	// bare semi-join / anti-join case.
	if w, isWhere := sub.(*Where); isWhere && w.Exists != nil {
		if len(w.Predicates) > 0 {
			return nil, malformed(path, "existence marker cannot be combined with other keys")
		}
		stmt := "EXISTS (SELECT 1 FROM " + as.Table + " WHERE " + join + ")"
		if !*w.Exists {
			stmt = "NOT " + stmt
		}
		return sq.Expr(stmt), nil
	}

	inner, err := c.compile(sub, scope{
		schema: as.Target,
		table:  as.Table,
		nested: true,
		path:   path,
	})
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return sq.Expr("EXISTS (SELECT 1 FROM " + as.Table + " WHERE " + join + ")"), nil
	}
	innerSQL, innerArgs, err := inner.ToSql()
	if err != nil {
		return nil, err
	}
	stmt := "EXISTS (SELECT 1 FROM " + as.Table + " WHERE " + join + " AND (" + innerSQL + "))"
	return sq.Expr(stmt, innerArgs...), nil
}

// operatorsFor resolves the legal operator set for a field: a per-field
// override replaces the capability-table-derived set, restricted to what
// the adapter can render.
func (c *Compiler) operatorsFor(field catalog.Field, sc scope) []catalog.Operator {
	supported := c.Adapter.OperatorsFor(field.Kind)
	if !sc.nested {
		if ops, ok := c.Overrides[field.Name]; ok {
			return ResolveOperators(ops, supported)
		}
	}
	return supported
}

// ResolveOperators intersects a per-field override with the operator set
// the adapter can render, preserving the override's order. An override
// narrows the set; it cannot grant an operator the engine has no rendering
// for.
func ResolveOperators(override, supported []catalog.Operator) []catalog.Operator {
	out := make([]catalog.Operator, 0, len(override))
	for _, op := range override {
		if operatorIn(supported, op) {
			out = append(out, op)
		}
	}
	return out
}

func associationOf(s catalog.Schema, name string) (catalog.Association, bool) {
	as, ok := s.(catalog.AssociationSchema)
	if !ok {
		return catalog.Association{}, false
	}
	return as.Association(name)
}

func operatorIn(ops []catalog.Operator, op catalog.Operator) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func qualify(table, column string) string {
	if table == "" {
		return column
	}
	return table + "." + column
}

func combine(preds []sq.Sqlizer, disjunctive bool) sq.Sqlizer {
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	}
	if disjunctive {
		return sq.Or(preds)
	}
	return sq.And(preds)
}

// notSqlizer negates a predicate as a unit.
type notSqlizer struct {
	inner sq.Sqlizer
}

func (n notSqlizer) ToSql() (string, []any, error) {
	s, args, err := n.inner.ToSql()
	if err != nil || s == "" {
		return s, args, err
	}
	var b strings.Builder
	b.WriteString("NOT (")
	b.WriteString(s)
	b.WriteString(")")
	return b.String(), args, nil
}
