package filter

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/spf13/cast"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/catalog"
)

// numericModule renders the shared integer/float/decimal operator family.
// The semantics are identical across the numeric kinds; only value
// representation differs.
type numericModule struct {
	integer bool
}

func (m numericModule) coerce(v any) (any, error) {
	if m.integer {
		n, err := cast.ToInt64E(v)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	// Decimal values validate as floats but keep their original
	// representation so precision survives the driver round-trip.
	if _, err := cast.ToFloat64E(v); err != nil {
		return nil, err
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return v, nil
}

func (m numericModule) sql(col string, op catalog.Operator, value any, _ adapter.Adapter) (sq.Sqlizer, error) {
	return comparisonPred(col, op, value, m.coerce)
}

func (m numericModule) search(field string, op catalog.Operator, value any) (query.Query, error) {
	inclusive := true
	exclusive := false

	rangeQuery := func(min, max *float64, minInc, maxInc *bool) query.Query {
		q := query.NewNumericRangeInclusiveQuery(min, max, minInc, maxInc)
		q.SetField(field)
		return q
	}

	switch op {
	case catalog.OpEquals, catalog.OpNotEquals:
		v, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, err
		}
		q := rangeQuery(&v, &v, &inclusive, &inclusive)
		if op == catalog.OpNotEquals {
			return mustNot(q), nil
		}
		return q, nil
	case catalog.OpGreaterThan, catalog.OpGreaterOrEquals:
		v, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, err
		}
		inc := &exclusive
		if op == catalog.OpGreaterOrEquals {
			inc = &inclusive
		}
		return rangeQuery(&v, nil, inc, nil), nil
	case catalog.OpLessThan, catalog.OpLessOrEquals:
		v, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, err
		}
		inc := &exclusive
		if op == catalog.OpLessOrEquals {
			inc = &inclusive
		}
		return rangeQuery(nil, &v, nil, inc), nil
	case catalog.OpIn, catalog.OpNotIn:
		raw, err := cast.ToSliceE(value)
		if err != nil {
			return nil, err
		}
		terms := make([]query.Query, 0, len(raw))
		for _, item := range raw {
			v, err := cast.ToFloat64E(item)
			if err != nil {
				return nil, err
			}
			terms = append(terms, rangeQuery(&v, &v, &inclusive, &inclusive))
		}
		dis := query.NewDisjunctionQuery(terms)
		if op == catalog.OpNotIn {
			return mustNot(dis), nil
		}
		return dis, nil
	default:
		return nil, nil
	}
}
