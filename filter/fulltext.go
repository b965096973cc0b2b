package filter

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/spf13/cast"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/catalog"
)

// textModule renders full-text operators. They are native to the search
// engine; MySQL/MariaDB render MATCH ... AGAINST, the remaining SQL engines
// approximate with pattern matching, and fuzzy exists nowhere outside the
// search engine.
type textModule struct{}

func (m textModule) sql(col string, op catalog.Operator, value any, ad adapter.Adapter) (sq.Sqlizer, error) {
	if op == catalog.OpIsNull {
		return nullPred(col, value)
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, err
	}

	switch ad.Engine {
	case adapter.MySQL, adapter.MariaDB:
		switch op {
		case catalog.OpMatch:
			return sq.Expr("MATCH("+col+") AGAINST (? IN NATURAL LANGUAGE MODE)", s), nil
		case catalog.OpPhrase:
			return sq.Expr("MATCH("+col+") AGAINST (? IN BOOLEAN MODE)", `"`+s+`"`), nil
		default:
			return nil, nil
		}
	case adapter.Postgres, adapter.DuckDB:
		return m.patternApprox(col, op, s, "ILIKE")
	case adapter.SQLite:
		if op != catalog.OpMatch {
			return nil, nil
		}
		return m.patternApprox(col, op, s, "LIKE")
	default:
		return nil, nil
	}
}

// patternApprox approximates match (every term matches somewhere) and
// phrase (the whole phrase matches contiguously) with LIKE patterns.
func (textModule) patternApprox(col string, op catalog.Operator, s, verb string) (sq.Sqlizer, error) {
	likeTerm := func(term string) sq.Sqlizer {
		return sq.Expr(col+" "+verb+" ? ESCAPE '"+likeEscape+"'", "%"+escapeLike(term)+"%")
	}
	switch op {
	case catalog.OpMatch:
		terms := strings.Fields(s)
		if len(terms) == 0 {
			return nil, nil
		}
		preds := make([]sq.Sqlizer, 0, len(terms))
		for _, term := range terms {
			preds = append(preds, likeTerm(term))
		}
		return combine(preds, false), nil
	case catalog.OpPhrase:
		return likeTerm(s), nil
	default:
		return nil, nil
	}
}

func (textModule) search(field string, op catalog.Operator, value any) (query.Query, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, err
	}
	switch op {
	case catalog.OpMatch:
		q := query.NewMatchQuery(s)
		q.SetField(field)
		return q, nil
	case catalog.OpPhrase:
		q := query.NewMatchPhraseQuery(s)
		q.SetField(field)
		return q, nil
	case catalog.OpFuzzy:
		q := query.NewFuzzyQuery(s)
		q.SetField(field)
		return q, nil
	default:
		return nil, nil
	}
}
