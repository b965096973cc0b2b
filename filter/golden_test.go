package filter

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/sebdah/goldie/v2"

	"github.com/hugr-lab/cql/adapter"
)

// One filter, every SQL engine: the golden files pin the exact rendering
// differences (ILIKE availability, placeholder style, no-op degradation).
func TestGoldenSQLMatrix(t *testing.T) {
	const doc = `{
		"name": {"icontains": "ali"},
		"age": {"in": [21, 35]},
		"orders": {"status": {"equals": "open"}}
	}`

	engines := []adapter.Engine{
		adapter.Postgres, adapter.MySQL, adapter.DuckDB, adapter.SQLite,
	}

	g := goldie.New(t)
	for _, engine := range engines {
		c := testCompiler(adapter.Adapter{Engine: engine})
		base := sq.Select("users.id").From("users").
			PlaceholderFormat(c.Adapter.PlaceholderFormat())
		base, err := c.Apply(base, mustDecode(t, doc))
		if err != nil {
			t.Fatalf("%s: %v", engine, err)
		}
		base, err = c.ApplySort(base, []OrderBy{{Field: "age", Direction: Desc}})
		if err != nil {
			t.Fatalf("%s: %v", engine, err)
		}
		sqlText, _, err := base.ToSql()
		if err != nil {
			t.Fatalf("%s: %v", engine, err)
		}
		g.Assert(t, "filter_"+string(engine), []byte(sqlText))
	}
}
