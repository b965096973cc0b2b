package filter

import (
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/hugr-lab/cql/catalog"
)

// SearchCompiler compiles filter expressions into search-engine queries for
// one schema. The search engine is flat: association sub-filters have no
// rendering and compile to safe no-ops.
type SearchCompiler struct {
	// Schema describes the indexed fields.
	Schema catalog.Schema

	// Adapter must be the search-engine adapter; its capability table gates
	// the legal operator set per field kind.
	Adapter SearchCapabilities

	// Overrides replaces the capability-derived operator set per field,
	// same semantics as the SQL compiler.
	Overrides map[string][]catalog.Operator
}

// SearchCapabilities is the slice of the adapter surface the search
// compiler needs.
type SearchCapabilities interface {
	OperatorsFor(kind catalog.Kind) []catalog.Operator
}

// Compile compiles expr into a search query. An empty filter compiles to
// the match-all query, the search engine's identity.
func (c *SearchCompiler) Compile(expr Expression) (query.Query, error) {
	q, err := c.compile(expr, "filter")
	if err != nil {
		return nil, err
	}
	if q == nil {
		return query.NewMatchAllQuery(), nil
	}
	return q, nil
}

func (c *SearchCompiler) compile(expr Expression, path string) (query.Query, error) {
	switch e := expr.(type) {
	case nil:
		return nil, nil
	case *And:
		var qs []query.Query
		for _, child := range e.Children {
			q, err := c.compile(child, path)
			if err != nil {
				return nil, err
			}
			if q != nil {
				qs = append(qs, q)
			}
		}
		return combineQueries(qs, false), nil
	case *Or:
		var qs []query.Query
		for _, child := range e.Children {
			q, err := c.compile(child, path)
			if err != nil {
				return nil, err
			}
			if q == nil {
				return nil, nil
			}
			qs = append(qs, q)
		}
		return combineQueries(qs, true), nil
	case *Not:
		q, err := c.compile(e.Child, path)
		if err != nil {
			return nil, err
		}
		if q == nil {
			return nil, nil
		}
		return mustNot(q), nil
	case *Where:
		return c.compileWhere(e, path)
	default:
		return nil, malformed(path, "unsupported expression node %T", expr)
	}
}

func (c *SearchCompiler) compileWhere(w *Where, path string) (query.Query, error) {
	if w.Exists != nil {
		return nil, malformed(path, "existence marker is only legal inside an association sub-filter")
	}

	var qs []query.Query
	for _, fp := range w.Predicates {
		fieldPath := path + "." + fp.Field
		if fp.Sub != nil {
			// Associations do not exist in a flat index.
			continue
		}
		field, ok := c.Schema.Field(fp.Field)
		if !ok {
			return nil, malformed(fieldPath, "unknown field")
		}
		legal := c.operatorsFor(field)
		mod := moduleFor(field.Kind)
		for _, cond := range fp.Conditions {
			if !operatorIn(legal, cond.Operator) {
				continue
			}
			q, err := mod.search(field.Name, cond.Operator, cond.Value)
			if err != nil {
				return nil, malformed(fieldPath, "%s: %v", cond.Operator, err)
			}
			if q != nil {
				qs = append(qs, q)
			}
		}
	}
	return combineQueries(qs, false), nil
}

func (c *SearchCompiler) operatorsFor(field catalog.Field) []catalog.Operator {
	supported := c.Adapter.OperatorsFor(field.Kind)
	if ops, ok := c.Overrides[field.Name]; ok {
		return ResolveOperators(ops, supported)
	}
	return supported
}

func combineQueries(qs []query.Query, disjunctive bool) query.Query {
	switch len(qs) {
	case 0:
		return nil
	case 1:
		return qs[0]
	}
	if disjunctive {
		return query.NewDisjunctionQuery(qs)
	}
	return query.NewConjunctionQuery(qs)
}
