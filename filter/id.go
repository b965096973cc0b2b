package filter

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/catalog"
)

// idModule renders the identifier equality family. String values that
// parse as UUIDs are normalized to the canonical lowercase form; numeric
// and opaque identifiers pass through untouched.
type idModule struct{}

func coerceID(v any) (any, error) {
	s, err := cast.ToStringE(v)
	if err != nil {
		// Non-string identifiers (numeric keys) pass through.
		return v, nil
	}
	if id, perr := uuid.Parse(s); perr == nil {
		return id.String(), nil
	}
	return s, nil
}

func (idModule) sql(col string, op catalog.Operator, value any, _ adapter.Adapter) (sq.Sqlizer, error) {
	switch op {
	case catalog.OpEquals, catalog.OpNotEquals,
		catalog.OpIn, catalog.OpNotIn, catalog.OpIsNull:
		return comparisonPred(col, op, value, coerceID)
	default:
		return nil, nil
	}
}

func (idModule) search(field string, op catalog.Operator, value any) (query.Query, error) {
	term := func(v any) (query.Query, error) {
		id, err := coerceID(v)
		if err != nil {
			return nil, err
		}
		s, err := cast.ToStringE(id)
		if err != nil {
			return nil, err
		}
		q := query.NewTermQuery(s)
		q.SetField(field)
		return q, nil
	}

	switch op {
	case catalog.OpEquals, catalog.OpNotEquals:
		q, err := term(value)
		if err != nil {
			return nil, err
		}
		if op == catalog.OpNotEquals {
			return mustNot(q), nil
		}
		return q, nil
	case catalog.OpIn, catalog.OpNotIn:
		raw, err := cast.ToSliceE(value)
		if err != nil {
			return nil, err
		}
		terms := make([]query.Query, 0, len(raw))
		for _, item := range raw {
			q, err := term(item)
			if err != nil {
				return nil, err
			}
			terms = append(terms, q)
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
