package filter

import (
	"errors"
	"testing"

	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/hugr-lab/cql/adapter"
)

func testSearchCompiler() *SearchCompiler {
	return &SearchCompiler{
		Schema:  testSchema(),
		Adapter: adapter.Adapter{Engine: adapter.Bleve},
	}
}

func TestSearchEmptyFilterIsMatchAll(t *testing.T) {
	c := testSearchCompiler()
	q, err := c.Compile(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.(*query.MatchAllQuery); !ok {
		t.Errorf("query = %T, want MatchAllQuery", q)
	}
}

func TestSearchTermQuery(t *testing.T) {
	c := testSearchCompiler()
	q, err := c.Compile(mustDecode(t, `{"name": {"equals": "alice"}}`))
	if err != nil {
		t.Fatal(err)
	}
	tq, ok := q.(*query.TermQuery)
	if !ok {
		t.Fatalf("query = %T, want TermQuery", q)
	}
	if tq.Term != "alice" || tq.FieldVal != "name" {
		t.Errorf("term = %q field = %q", tq.Term, tq.FieldVal)
	}
}

func TestSearchNegation(t *testing.T) {
	c := testSearchCompiler()
	q, err := c.Compile(mustDecode(t, `{"name": {"not_equals": "alice"}}`))
	if err != nil {
		t.Fatal(err)
	}
	bq, ok := q.(*query.BooleanQuery)
	if !ok {
		t.Fatalf("query = %T, want BooleanQuery", q)
	}
	mustNotQ, ok := bq.MustNot.(*query.DisjunctionQuery)
	if !ok || len(mustNotQ.Disjuncts) != 1 {
		t.Fatalf("must-not = %#v", bq.MustNot)
	}
}

func TestSearchConjunction(t *testing.T) {
	c := testSearchCompiler()
	q, err := c.Compile(mustDecode(t, `{"name": {"equals": "a"}, "age": {"greater_than": 18}}`))
	if err != nil {
		t.Fatal(err)
	}
	cq, ok := q.(*query.ConjunctionQuery)
	if !ok {
		t.Fatalf("query = %T, want ConjunctionQuery", q)
	}
	if len(cq.Conjuncts) != 2 {
		t.Errorf("conjuncts = %d", len(cq.Conjuncts))
	}
}

func TestSearchFullTextQueries(t *testing.T) {
	c := testSearchCompiler()

	q, err := c.Compile(mustDecode(t, `{"bio": {"match": "quiet coffee"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.(*query.MatchQuery); !ok {
		t.Errorf("match query = %T", q)
	}

	q, err = c.Compile(mustDecode(t, `{"bio": {"phrase": "quiet coffee"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.(*query.MatchPhraseQuery); !ok {
		t.Errorf("phrase query = %T", q)
	}

	q, err = c.Compile(mustDecode(t, `{"bio": {"fuzzy": "cofee"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.(*query.FuzzyQuery); !ok {
		t.Errorf("fuzzy query = %T", q)
	}
}

func TestSearchGeoDistance(t *testing.T) {
	c := testSearchCompiler()
	q, err := c.Compile(mustDecode(t, `{"home": {"near": {"lat": 52.5, "lng": 13.4, "within": 2000}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.(*query.GeoDistanceQuery); !ok {
		t.Errorf("query = %T, want GeoDistanceQuery", q)
	}
}

func TestSearchAssociationIsNoOp(t *testing.T) {
	c := testSearchCompiler()
	q, err := c.Compile(mustDecode(t, `{"orders": {"total": {"greater_than": 1}}, "name": {"equals": "a"}}`))
	if err != nil {
		t.Fatal(err)
	}
	// The association vanishes; only the name term remains.
	if _, ok := q.(*query.TermQuery); !ok {
		t.Errorf("query = %T, want bare TermQuery", q)
	}
}

func TestSearchIllegalOperatorIsNoOp(t *testing.T) {
	c := testSearchCompiler()
	// is_null is not advertised on the search engine.
	q, err := c.Compile(mustDecode(t, `{"name": {"is_null": true}}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.(*query.MatchAllQuery); !ok {
		t.Errorf("query = %T, want MatchAllQuery (no-op)", q)
	}

	// Numeric membership stays legal.
	q, err = c.Compile(mustDecode(t, `{"age": {"in": [1, 2]}}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.(*query.DisjunctionQuery); !ok {
		t.Errorf("numeric in = %T, want DisjunctionQuery", q)
	}
}

func TestSearchExistenceMarkerIsError(t *testing.T) {
	c := testSearchCompiler()
	_, err := c.Compile(mustDecode(t, `{"_exists": true}`))
	var me *MalformedError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want MalformedError", err)
	}
}

func TestSearchUnknownField(t *testing.T) {
	c := testSearchCompiler()
	_, err := c.Compile(mustDecode(t, `{"salary": {"equals": 1}}`))
	var me *MalformedError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want MalformedError", err)
	}
}

func TestSearchSort(t *testing.T) {
	c := testSearchCompiler()
	order, err := c.Sort([]OrderBy{
		{Field: "age", Direction: DescNullsLast},
		{Field: "home", Direction: Near, Origin: map[string]any{"lat": 52.5, "lng": 13.4}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 {
		t.Fatalf("order = %d terms", len(order))
	}
	sf, ok := order[0].(*search.SortField)
	if !ok || sf.Field != "age" || !sf.Desc {
		t.Errorf("first term = %#v", order[0])
	}
	if _, ok := order[1].(*search.SortGeoDistance); !ok {
		t.Errorf("second term = %T, want SortGeoDistance", order[1])
	}
}

func TestSearchSortUnknownField(t *testing.T) {
	c := testSearchCompiler()
	_, err := c.Sort([]OrderBy{{Field: "salary", Direction: Asc}})
	var me *MalformedError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want MalformedError", err)
	}
}
