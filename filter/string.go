package filter

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/spf13/cast"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/catalog"
)

// stringModule renders string and enum operators. Pattern operators use an
// explicit ESCAPE character so %/_ in user input match literally on every
// SQL engine; the case-insensitive variants render native ILIKE and are
// only advertised on adapters that have it.
type stringModule struct{}

// likeEscape is the LIKE escape character. '!' avoids the per-engine
// backslash-in-string-literal differences.
const likeEscape = "!"

// escapeLike makes a user-supplied string safe for use inside a LIKE
// pattern.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, likeEscape, likeEscape+likeEscape)
	s = strings.ReplaceAll(s, "%", likeEscape+"%")
	s = strings.ReplaceAll(s, "_", likeEscape+"_")
	return s
}

func coerceString(v any) (any, error) {
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (stringModule) sql(col string, op catalog.Operator, value any, ad adapter.Adapter) (sq.Sqlizer, error) {
	pattern := func(shape string) (string, error) {
		s, err := cast.ToStringE(value)
		if err != nil {
			return "", err
		}
		return strings.Replace(shape, "?", escapeLike(s), 1), nil
	}

	like := func(shape, verb string) (sq.Sqlizer, error) {
		p, err := pattern(shape)
		if err != nil {
			return nil, err
		}
		return sq.Expr(col+" "+verb+" ? ESCAPE '"+likeEscape+"'", p), nil
	}

	switch op {
	case catalog.OpContains:
		return like("%?%", "LIKE")
	case catalog.OpNotContains:
		p, err := like("%?%", "LIKE")
		if err != nil {
			return nil, err
		}
		return notSqlizer{inner: p}, nil
	case catalog.OpStartsWith:
		return like("?%", "LIKE")
	case catalog.OpEndsWith:
		return like("%?", "LIKE")
	case catalog.OpIContains:
		return like("%?%", "ILIKE")
	case catalog.OpIStartsWith:
		return like("?%", "ILIKE")
	case catalog.OpIEndsWith:
		return like("%?", "ILIKE")
	default:
		return comparisonPred(col, op, value, coerceString)
	}
}

func (stringModule) search(field string, op catalog.Operator, value any) (query.Query, error) {
	str := func() (string, error) { return cast.ToStringE(value) }

	switch op {
	case catalog.OpEquals, catalog.OpNotEquals:
		s, err := str()
		if err != nil {
			return nil, err
		}
		q := query.NewTermQuery(s)
		q.SetField(field)
		if op == catalog.OpNotEquals {
			return mustNot(q), nil
		}
		return q, nil
	case catalog.OpIn, catalog.OpNotIn:
		list, err := cast.ToStringSliceE(value)
		if err != nil {
			return nil, err
		}
		terms := make([]query.Query, 0, len(list))
		for _, s := range list {
			q := query.NewTermQuery(s)
			q.SetField(field)
			terms = append(terms, q)
		}
		dis := query.NewDisjunctionQuery(terms)
		if op == catalog.OpNotIn {
			return mustNot(dis), nil
		}
		return dis, nil
	case catalog.OpContains, catalog.OpNotContains:
		s, err := str()
		if err != nil {
			return nil, err
		}
		q := query.NewWildcardQuery("*" + s + "*")
		q.SetField(field)
		if op == catalog.OpNotContains {
			return mustNot(q), nil
		}
		return q, nil
	case catalog.OpStartsWith:
		s, err := str()
		if err != nil {
			return nil, err
		}
		q := query.NewPrefixQuery(s)
		q.SetField(field)
		return q, nil
	case catalog.OpEndsWith:
		s, err := str()
		if err != nil {
			return nil, err
		}
		q := query.NewWildcardQuery("*" + s)
		q.SetField(field)
		return q, nil
	default:
		return nil, nil
	}
}
