package filter

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/spf13/cast"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/catalog"
)

// scalarModule renders one semantic scalar family's operators into
// backend-native predicate fragments. Both methods are pure and total over
// the adapter's advertised operator set: an operator outside that set
// returns (nil, nil), a guaranteed no-op, so an earlier validation gap
// degrades gracefully instead of crashing the request.
type scalarModule interface {
	// sql renders a predicate for a SQL-family adapter.
	sql(col string, op catalog.Operator, value any, ad adapter.Adapter) (sq.Sqlizer, error)

	// search renders a predicate for the search-engine adapter.
	search(field string, op catalog.Operator, value any) (query.Query, error)
}

// moduleFor dispatches a semantic scalar kind to its operator module.
// Unknown kinds (plain value objects) get the minimal comparison module.
func moduleFor(kind catalog.Kind) scalarModule {
	switch kind {
	case catalog.KindString, catalog.KindEnum:
		return stringModule{}
	case catalog.KindInteger:
		return numericModule{integer: true}
	case catalog.KindFloat, catalog.KindDecimal:
		return numericModule{}
	case catalog.KindBoolean:
		return boolModule{}
	case catalog.KindID:
		return idModule{}
	case catalog.KindDateTime, catalog.KindDate, catalog.KindTime:
		return timeModule{}
	case catalog.KindStringArray:
		return arrayModule{}
	case catalog.KindGeoPoint:
		return geoModule{}
	case catalog.KindFullText:
		return textModule{}
	default:
		return basicModule{}
	}
}

// comparisonPred renders the minimal comparison family shared by every
// scalar module. coerce may be nil for pass-through values.
func comparisonPred(col string, op catalog.Operator, value any, coerce func(any) (any, error)) (sq.Sqlizer, error) {
	one := func() (any, error) {
		if coerce == nil {
			return value, nil
		}
		return coerce(value)
	}
	switch op {
	case catalog.OpEquals:
		v, err := one()
		if err != nil {
			return nil, err
		}
		return sq.Eq{col: v}, nil
	case catalog.OpNotEquals:
		v, err := one()
		if err != nil {
			return nil, err
		}
		return sq.NotEq{col: v}, nil
	case catalog.OpGreaterThan:
		v, err := one()
		if err != nil {
			return nil, err
		}
		return sq.Gt{col: v}, nil
	case catalog.OpGreaterOrEquals:
		v, err := one()
		if err != nil {
			return nil, err
		}
		return sq.GtOrEq{col: v}, nil
	case catalog.OpLessThan:
		v, err := one()
		if err != nil {
			return nil, err
		}
		return sq.Lt{col: v}, nil
	case catalog.OpLessOrEquals:
		v, err := one()
		if err != nil {
			return nil, err
		}
		return sq.LtOrEq{col: v}, nil
	case catalog.OpIn:
		list, err := listValues(value, coerce)
		if err != nil {
			return nil, err
		}
		return sq.Eq{col: list}, nil
	case catalog.OpNotIn:
		list, err := listValues(value, coerce)
		if err != nil {
			return nil, err
		}
		return sq.NotEq{col: list}, nil
	case catalog.OpIsNull:
		return nullPred(col, value)
	default:
		return nil, nil
	}
}

// nullPred renders the null test; the operator value selects IS NULL (true)
// or IS NOT NULL (false).
func nullPred(col string, value any) (sq.Sqlizer, error) {
	want, err := cast.ToBoolE(value)
	if err != nil {
		return nil, err
	}
	if want {
		return sq.Eq{col: nil}, nil
	}
	return sq.NotEq{col: nil}, nil
}

// listValues coerces a membership-operator value into a flat list.
func listValues(value any, coerce func(any) (any, error)) ([]any, error) {
	raw, err := cast.ToSliceE(value)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(raw))
	for _, item := range raw {
		if coerce != nil {
			item, err = coerce(item)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// basicModule is the minimal module for fields with no type information
// and for map-kind fields (null test only reaches it).
type basicModule struct{}

func (basicModule) sql(col string, op catalog.Operator, value any, _ adapter.Adapter) (sq.Sqlizer, error) {
	return comparisonPred(col, op, value, nil)
}

func (basicModule) search(string, catalog.Operator, any) (query.Query, error) {
	// Untyped fields are not queryable on the search adapter.
	return nil, nil
}

// mustNot wraps a query in a boolean complement.
func mustNot(q query.Query) query.Query {
	return query.NewBooleanQuery(
		[]query.Query{query.NewMatchAllQuery()}, nil, []query.Query{q})
}
