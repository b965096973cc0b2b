package filter

import (
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/spf13/cast"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/catalog"
)

// timeModule renders the datetime/date/time ordered-comparison family.
// Values arrive as time.Time, RFC 3339 strings, or epoch numbers and are
// normalized to time.Time for the driver.
type timeModule struct{}

func coerceTime(v any) (any, error) {
	t, err := cast.ToTimeE(v)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (timeModule) sql(col string, op catalog.Operator, value any, _ adapter.Adapter) (sq.Sqlizer, error) {
	switch op {
	case catalog.OpEquals, catalog.OpNotEquals,
		catalog.OpGreaterThan, catalog.OpGreaterOrEquals,
		catalog.OpLessThan, catalog.OpLessOrEquals,
		catalog.OpIsNull:
		return comparisonPred(col, op, value, coerceTime)
	default:
		return nil, nil
	}
}

func (timeModule) search(field string, op catalog.Operator, value any) (query.Query, error) {
	inclusive := true
	exclusive := false

	rangeQuery := func(start, end time.Time, sInc, eInc *bool) query.Query {
		q := query.NewDateRangeInclusiveQuery(start, end, sInc, eInc)
		q.SetField(field)
		return q
	}

	switch op {
	case catalog.OpEquals, catalog.OpNotEquals,
		catalog.OpGreaterThan, catalog.OpGreaterOrEquals,
		catalog.OpLessThan, catalog.OpLessOrEquals:
	default:
		return nil, nil
	}

	t, err := cast.ToTimeE(value)
	if err != nil {
		return nil, err
	}
	var zero time.Time

	switch op {
	case catalog.OpEquals:
		return rangeQuery(t, t, &inclusive, &inclusive), nil
	case catalog.OpNotEquals:
		return mustNot(rangeQuery(t, t, &inclusive, &inclusive)), nil
	case catalog.OpGreaterThan:
		return rangeQuery(t, zero, &exclusive, nil), nil
	case catalog.OpGreaterOrEquals:
		return rangeQuery(t, zero, &inclusive, nil), nil
	case catalog.OpLessThan:
		return rangeQuery(zero, t, nil, &exclusive), nil
	case catalog.OpLessOrEquals:
		return rangeQuery(zero, t, nil, &inclusive), nil
	default:
		return nil, nil
	}
}
