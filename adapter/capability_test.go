package adapter

import (
	"testing"

	"github.com/hugr-lab/cql/catalog"
)

func has(ops []catalog.Operator, op catalog.Operator) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func TestStringOperators(t *testing.T) {
	pg := Adapter{Engine: Postgres}
	my := Adapter{Engine: MySQL}

	for _, op := range []catalog.Operator{
		catalog.OpEquals, catalog.OpIn, catalog.OpContains, catalog.OpIContains,
	} {
		if !pg.Supports(catalog.KindString, op) {
			t.Errorf("postgres string must support %s", op)
		}
	}
	if my.Supports(catalog.KindString, catalog.OpIContains) {
		t.Error("mysql has no native ILIKE; icontains must be illegal")
	}
	if !my.Supports(catalog.KindString, catalog.OpContains) {
		t.Error("mysql string must support contains")
	}
}

func TestArrayOperators(t *testing.T) {
	if ops := (Adapter{Engine: SQLite}).OperatorsFor(catalog.KindStringArray); len(ops) != 0 {
		t.Errorf("sqlite array operators = %v, want none", ops)
	}
	if !(Adapter{Engine: DuckDB}).Supports(catalog.KindStringArray, catalog.OpIncludesAny) {
		t.Error("duckdb must support includes_any")
	}
	maria := Adapter{Engine: MariaDB}
	if maria.Supports(catalog.KindStringArray, catalog.OpIncludesAny) {
		t.Error("mariadb must not advertise includes_any")
	}
	if !maria.Supports(catalog.KindStringArray, catalog.OpIncludesAll) {
		t.Error("mariadb must support includes_all")
	}
}

func TestSpatialGating(t *testing.T) {
	cases := []struct {
		name string
		a    Adapter
		want bool
	}{
		{"postgres without postgis", Adapter{Engine: Postgres}, false},
		{"postgres with postgis", Adapter{Engine: Postgres, Extensions: []string{"postgis"}}, true},
		{"mysql 5.6", Adapter{Engine: MySQL, Version: "5.6.0"}, false},
		{"mysql 5.7.6", Adapter{Engine: MySQL, Version: "5.7.6"}, true},
		{"mysql unknown version", Adapter{Engine: MySQL}, false},
		{"mariadb 10.6", Adapter{Engine: MariaDB, Version: "10.6.0"}, true},
		{"duckdb without spatial", Adapter{Engine: DuckDB}, false},
		{"duckdb with spatial", Adapter{Engine: DuckDB, Extensions: []string{"spatial"}}, true},
		{"bleve", Adapter{Engine: Bleve}, true},
		{"sqlite", Adapter{Engine: SQLite}, false},
	}
	for _, tc := range cases {
		if got := tc.a.SupportsSpatial(); got != tc.want {
			t.Errorf("%s: SupportsSpatial() = %v, want %v", tc.name, got, tc.want)
		}
		if got := tc.a.Supports(catalog.KindGeoPoint, catalog.OpNear); got != tc.want {
			t.Errorf("%s: Supports(geo, near) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSearchOperators(t *testing.T) {
	b := Adapter{Engine: Bleve}

	if b.Supports(catalog.KindString, catalog.OpIsNull) {
		t.Error("search engine has no null test")
	}
	if !b.Supports(catalog.KindDateTime, catalog.OpGreaterThan) {
		t.Error("search datetime must support ordered comparisons")
	}
	if b.Supports(catalog.KindDateTime, catalog.OpIn) {
		t.Error("search datetime must not advertise in")
	}
	if !b.Supports(catalog.KindFullText, catalog.OpFuzzy) {
		t.Error("fuzzy is native on the search engine")
	}
	if (Adapter{Engine: Postgres}).Supports(catalog.KindFullText, catalog.OpFuzzy) {
		t.Error("fuzzy must be illegal outside the search engine")
	}
}

func TestFullTextOperators(t *testing.T) {
	if !(Adapter{Engine: MySQL}).Supports(catalog.KindFullText, catalog.OpPhrase) {
		t.Error("mysql full text must support phrase")
	}
	if (Adapter{Engine: SQLite}).Supports(catalog.KindFullText, catalog.OpPhrase) {
		t.Error("sqlite full text must not support phrase")
	}
	if !(Adapter{Engine: SQLite}).Supports(catalog.KindFullText, catalog.OpMatch) {
		t.Error("sqlite full text must support match")
	}
}

func TestUnknownKindGetsMinimalSet(t *testing.T) {
	ops := Adapter{Engine: Postgres}.OperatorsFor(catalog.KindUnknown)
	if !has(ops, catalog.OpEquals) || !has(ops, catalog.OpIsNull) {
		t.Errorf("unknown kind operators = %v", ops)
	}
	if has(ops, catalog.OpContains) {
		t.Error("unknown kind must not advertise pattern operators")
	}
}

func TestPlaceholderFormat(t *testing.T) {
	if (Adapter{Engine: Postgres}).PlaceholderFormat() == (Adapter{Engine: MySQL}).PlaceholderFormat() {
		t.Error("postgres and mysql must differ in placeholder style")
	}
}
