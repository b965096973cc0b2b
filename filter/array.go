package filter

import (
	"encoding/json"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/spf13/cast"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/catalog"
)

// arrayModule renders string-array membership operators. Rendering differs
// sharply per engine: Postgres and DuckDB have native array operators,
// MySQL and MariaDB go through JSON function calls, SQLite has no rendering
// at all (the capability table advertises nothing, and the module no-ops).
type arrayModule struct{}

func (m arrayModule) sql(col string, op catalog.Operator, value any, ad adapter.Adapter) (sq.Sqlizer, error) {
	if op == catalog.OpIsNull {
		return nullPred(col, value)
	}

	switch ad.Engine {
	case adapter.Postgres:
		return m.postgres(col, op, value)
	case adapter.DuckDB:
		return m.duckdb(col, op, value)
	case adapter.MySQL, adapter.MariaDB:
		return m.jsonFuncs(col, op, value, ad.Engine)
	default:
		return nil, nil
	}
}

func (arrayModule) postgres(col string, op catalog.Operator, value any) (sq.Sqlizer, error) {
	switch op {
	case catalog.OpIncludes:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, err
		}
		return sq.Expr("? = ANY("+col+")", s), nil
	case catalog.OpExcludes:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT (? = ANY("+col+"))", s), nil
	case catalog.OpIncludesAll, catalog.OpIncludesAny, catalog.OpExcludesAll:
		list, err := cast.ToStringSliceE(value)
		if err != nil {
			return nil, err
		}
		arr, args := pgArrayLiteral(list)
		switch op {
		case catalog.OpIncludesAll:
			return sq.Expr(col+" @> "+arr, args...), nil
		case catalog.OpIncludesAny:
			return sq.Expr(col+" && "+arr, args...), nil
		default:
			return sq.Expr("NOT ("+col+" && "+arr+")", args...), nil
		}
	case catalog.OpIsEmpty:
		return emptyPred(value, "COALESCE(cardinality("+col+"), 0) = 0", "cardinality("+col+") > 0")
	default:
		return nil, nil
	}
}

func (arrayModule) duckdb(col string, op catalog.Operator, value any) (sq.Sqlizer, error) {
	switch op {
	case catalog.OpIncludes:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, err
		}
		return sq.Expr("list_contains("+col+", ?)", s), nil
	case catalog.OpExcludes:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT list_contains("+col+", ?)", s), nil
	case catalog.OpIncludesAll, catalog.OpIncludesAny, catalog.OpExcludesAll:
		list, err := cast.ToStringSliceE(value)
		if err != nil {
			return nil, err
		}
		lit, args := duckdbListLiteral(list)
		switch op {
		case catalog.OpIncludesAll:
			return sq.Expr("list_has_all("+col+", "+lit+")", args...), nil
		case catalog.OpIncludesAny:
			return sq.Expr("list_has_any("+col+", "+lit+")", args...), nil
		default:
			return sq.Expr("NOT list_has_any("+col+", "+lit+")", args...), nil
		}
	case catalog.OpIsEmpty:
		return emptyPred(value, "len("+col+") = 0", "len("+col+") > 0")
	default:
		return nil, nil
	}
}

// jsonFuncs renders array membership through MySQL/MariaDB JSON functions.
func (arrayModule) jsonFuncs(col string, op catalog.Operator, value any, engine adapter.Engine) (sq.Sqlizer, error) {
	switch op {
	case catalog.OpIncludes:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, err
		}
		return sq.Expr("JSON_CONTAINS("+col+", JSON_QUOTE(?))", s), nil
	case catalog.OpExcludes:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT JSON_CONTAINS("+col+", JSON_QUOTE(?))", s), nil
	case catalog.OpIncludesAll, catalog.OpExcludesAll:
		list, err := cast.ToStringSliceE(value)
		if err != nil {
			return nil, err
		}
		preds := make([]sq.Sqlizer, 0, len(list))
		for _, s := range list {
			if op == catalog.OpIncludesAll {
				preds = append(preds, sq.Expr("JSON_CONTAINS("+col+", JSON_QUOTE(?))", s))
			} else {
				preds = append(preds, sq.Expr("NOT JSON_CONTAINS("+col+", JSON_QUOTE(?))", s))
			}
		}
		return combine(preds, false), nil
	case catalog.OpIncludesAny:
		if engine == adapter.MariaDB {
			// No JSON_OVERLAPS on the MariaDB versions we target.
			return nil, nil
		}
		list, err := cast.ToStringSliceE(value)
		if err != nil {
			return nil, err
		}
		doc, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}
		return sq.Expr("JSON_OVERLAPS("+col+", CAST(? AS JSON))", string(doc)), nil
	case catalog.OpIsEmpty:
		return emptyPred(value, "JSON_LENGTH("+col+") = 0", "JSON_LENGTH("+col+") > 0")
	default:
		return nil, nil
	}
}

func (arrayModule) search(field string, op catalog.Operator, value any) (query.Query, error) {
	term := func(s string) query.Query {
		q := query.NewTermQuery(s)
		q.SetField(field)
		return q
	}

	switch op {
	case catalog.OpIncludes, catalog.OpExcludes:
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, err
		}
		if op == catalog.OpExcludes {
			return mustNot(term(s)), nil
		}
		return term(s), nil
	case catalog.OpIncludesAll, catalog.OpIncludesAny, catalog.OpExcludesAll:
		list, err := cast.ToStringSliceE(value)
		if err != nil {
			return nil, err
		}
		terms := make([]query.Query, 0, len(list))
		for _, s := range list {
			terms = append(terms, term(s))
		}
		switch op {
		case catalog.OpIncludesAll:
			return query.NewConjunctionQuery(terms), nil
		case catalog.OpIncludesAny:
			return query.NewDisjunctionQuery(terms), nil
		default:
			return mustNot(query.NewDisjunctionQuery(terms)), nil
		}
	default:
		return nil, nil
	}
}

// emptyPred selects between the is-empty and non-empty renderings based on
// the operator value.
func emptyPred(value any, whenEmpty, whenNotEmpty string) (sq.Sqlizer, error) {
	want, err := cast.ToBoolE(value)
	if err != nil {
		return nil, err
	}
	if want {
		return sq.Expr(whenEmpty), nil
	}
	return sq.Expr(whenNotEmpty), nil
}

// pgArrayLiteral builds a parameterized Postgres text array literal.
func pgArrayLiteral(list []string) (string, []any) {
	ph := make([]string, len(list))
	args := make([]any, len(list))
	for i, s := range list {
		ph[i] = "?"
		args[i] = s
	}
	return "ARRAY[" + strings.Join(ph, ", ") + "]::text[]", args
}

// duckdbListLiteral builds a parameterized DuckDB list literal.
func duckdbListLiteral(list []string) (string, []any) {
	ph := make([]string, len(list))
	args := make([]any, len(list))
	for i, s := range list {
		ph[i] = "?"
		args[i] = s
	}
	return "[" + strings.Join(ph, ", ") + "]", args
}
