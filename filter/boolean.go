package filter

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/spf13/cast"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/catalog"
)

// boolModule renders the boolean family: equality and the null test.
type boolModule struct{}

func coerceBool(v any) (any, error) {
	b, err := cast.ToBoolE(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (boolModule) sql(col string, op catalog.Operator, value any, _ adapter.Adapter) (sq.Sqlizer, error) {
	switch op {
	case catalog.OpEquals, catalog.OpNotEquals, catalog.OpIsNull:
		return comparisonPred(col, op, value, coerceBool)
	default:
		return nil, nil
	}
}

func (boolModule) search(field string, op catalog.Operator, value any) (query.Query, error) {
	switch op {
	case catalog.OpEquals, catalog.OpNotEquals:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, err
		}
		q := query.NewBoolFieldQuery(b)
		q.SetField(field)
		if op == catalog.OpNotEquals {
			return mustNot(q), nil
		}
		return q, nil
	default:
		return nil, nil
	}
}
