package filter

import (
	"database/sql"
	"testing"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/cql/adapter"
)

// Array operators have no portable rendering; the DuckDB ones are executed
// against a real in-memory database.
func TestExecuteArrayFiltersDuckDB(t *testing.T) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE users (id INTEGER, name VARCHAR, age INTEGER, active BOOLEAN, tags VARCHAR[])`,
		`INSERT INTO users VALUES
			(1, 'Alice', 30, true, ['vip', 'staff']),
			(2, 'Bob', 15, true, ['vip']),
			(3, 'Carol', 44, false, [])`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}

	c := testCompiler(adapter.Adapter{Engine: adapter.DuckDB})
	cases := []struct {
		doc  string
		want []string
	}{
		{`{"tags": {"includes": "staff"}}`, []string{"Alice"}},
		{`{"tags": {"excludes": "staff"}}`, []string{"Bob", "Carol"}},
		{`{"tags": {"includes_all": ["vip", "staff"]}}`, []string{"Alice"}},
		{`{"tags": {"includes_any": ["vip", "staff"]}}`, []string{"Alice", "Bob"}},
		{`{"tags": {"is_empty": true}}`, []string{"Carol"}},
	}
	for _, tc := range cases {
		base := sq.Select("users.name").From("users").OrderBy("users.id")
		base, err := c.Apply(base, mustDecode(t, tc.doc))
		if err != nil {
			t.Fatalf("%s: %v", tc.doc, err)
		}
		sqlText, args, err := base.ToSql()
		if err != nil {
			t.Fatal(err)
		}
		rows, err := db.Query(sqlText, args...)
		if err != nil {
			t.Fatalf("query %q: %v", sqlText, err)
		}
		var names []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				t.Fatal(err)
			}
			names = append(names, name)
		}
		rows.Close()
		if len(names) != len(tc.want) {
			t.Errorf("%s: rows = %v, want %v", tc.doc, names, tc.want)
			continue
		}
		for i := range tc.want {
			if names[i] != tc.want[i] {
				t.Errorf("%s: rows = %v, want %v", tc.doc, names, tc.want)
				break
			}
		}
	}
}
