package analyze

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/hugr-lab/cql/adapter"
)

// planDB builds a *sql.DB whose every query returns one row with one
// column: the canned plan document. A non-nil err fails the query instead.
func planDB(doc string, err error) *sql.DB {
	return sql.OpenDB(planConnector{doc: doc, err: err})
}

type planConnector struct {
	doc string
	err error
}

func (c planConnector) Connect(context.Context) (driver.Conn, error) {
	return planConn{doc: c.doc, err: c.err}, nil
}
func (c planConnector) Driver() driver.Driver { return nil }

type planConn struct {
	doc string
	err error
}

func (c planConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c planConn) Close() error                        { return nil }
func (c planConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }

func (c planConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if c.err != nil {
		return nil, c.err
	}
	if !strings.HasPrefix(query, "EXPLAIN") {
		return nil, errors.New("unexpected query: " + query)
	}
	return &planRows{doc: c.doc}, nil
}

type planRows struct {
	doc  string
	done bool
}

func (r *planRows) Columns() []string { return []string{"plan"} }
func (r *planRows) Close() error      { return nil }
func (r *planRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = r.doc
	return nil
}

const pgPlanDoc = `[{"Plan": {
	"Node Type": "Seq Scan",
	"Relation Name": "users",
	"Total Cost": 7000.5,
	"Plan Rows": 1200
}}]`

func TestAnalyzeDisabled(t *testing.T) {
	a := &Analyzer{Engine: adapter.Postgres}
	v, err := a.Analyze(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Skipped || !v.Accepted {
		t.Errorf("verdict = %+v, want skipped and accepted", v)
	}
}

func TestAnalyzeBypassesEnginesWithoutPlans(t *testing.T) {
	a := &Analyzer{
		DB:     planDB(pgPlanDoc, nil),
		Engine: adapter.SQLite,
		Config: Config{Enabled: true},
	}
	v, err := a.Analyze(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Skipped || !v.Accepted {
		t.Errorf("verdict = %+v, want skipped and accepted", v)
	}
}

func TestAnalyzeFailsOpenOnProbeError(t *testing.T) {
	a := &Analyzer{
		DB:     planDB("", errors.New("connection refused")),
		Engine: adapter.Postgres,
		Config: Config{Enabled: true},
	}
	v, err := a.Analyze(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Skipped || !v.Accepted {
		t.Errorf("verdict = %+v, want skipped and accepted", v)
	}
}

func TestAnalyzeWarnsNearThreshold(t *testing.T) {
	var observed []Verdict
	a := &Analyzer{
		DB:     planDB(pgPlanDoc, nil),
		Engine: adapter.Postgres,
		Config: Config{
			Enabled:   true,
			OnVerdict: func(v Verdict) { observed = append(observed, v) },
		},
	}
	v, err := a.Analyze(context.Background(), "SELECT * FROM users")
	if err != nil {
		t.Fatal(err)
	}
	// 7000.5 native cost against the default 10000 scale: score 70, above
	// the 75% warn fraction of the default 80 threshold.
	if !v.Accepted || v.Skipped {
		t.Errorf("verdict = %+v, want accepted", v)
	}
	if !v.Warned {
		t.Errorf("verdict = %+v, want warned", v)
	}
	if v.Score < 69.9 || v.Score > 70.1 {
		t.Errorf("score = %v, want ~70", v.Score)
	}
	if v.Rows != 1200 {
		t.Errorf("rows = %d, want 1200", v.Rows)
	}
	if len(v.Suggestions) != 1 || !strings.Contains(v.Suggestions[0], "users") {
		t.Errorf("suggestions = %v", v.Suggestions)
	}
	if len(observed) != 1 {
		t.Errorf("OnVerdict observed %d verdicts", len(observed))
	}
}

func TestAnalyzeRejectsAboveThreshold(t *testing.T) {
	doc := `[{"Plan": {"Node Type": "Seq Scan", "Relation Name": "users", "Total Cost": 12000, "Plan Rows": 5}}]`
	a := &Analyzer{
		DB:     planDB(doc, nil),
		Engine: adapter.Postgres,
		Config: Config{Enabled: true},
	}
	v, err := a.Analyze(context.Background(), "SELECT * FROM users")
	var tce *TooComplexError
	if !errors.As(err, &tce) {
		t.Fatalf("err = %v, want TooComplexError", err)
	}
	if v.Accepted {
		t.Error("rejected verdict must not be accepted")
	}
	if v.Score != 100 {
		t.Errorf("score = %v, want capped at 100", v.Score)
	}
	if tce.Verdict.Threshold != DefaultMaxComplexity {
		t.Errorf("threshold = %v", tce.Verdict.Threshold)
	}
}

func TestAnalyzeRejectsAtThreshold(t *testing.T) {
	// Cost 8000 on the default 10000 scale scores exactly 80, the default
	// maximum. The threshold itself is the first rejected score.
	doc := `[{"Plan": {"Node Type": "Index Scan", "Total Cost": 8000, "Plan Rows": 50}}]`
	a := &Analyzer{
		DB:     planDB(doc, nil),
		Engine: adapter.Postgres,
		Config: Config{Enabled: true},
	}
	v, err := a.Analyze(context.Background(), "SELECT * FROM users")
	var tce *TooComplexError
	if !errors.As(err, &tce) {
		t.Fatalf("err = %v, want TooComplexError", err)
	}
	if v.Accepted || v.Warned {
		t.Errorf("verdict = %+v, want rejected without warn", v)
	}
	if v.Score != DefaultMaxComplexity {
		t.Errorf("score = %v, want %v", v.Score, DefaultMaxComplexity)
	}
}

func TestAdaptiveThreshold(t *testing.T) {
	doc := `[{"Plan": {"Node Type": "Index Scan", "Total Cost": 5000, "Plan Rows": 10}}]`

	run := func(load Sample) (Verdict, error) {
		sampler := &Sampler{Probe: &StaticProbe{Value: load}}
		if _, err := sampler.Refresh(context.Background()); err != nil {
			t.Fatal(err)
		}
		a := &Analyzer{
			DB:      planDB(doc, nil),
			Engine:  adapter.Postgres,
			Config:  Config{Enabled: true, AdaptiveLimits: true},
			Sampler: sampler,
		}
		return a.Analyze(context.Background(), "SELECT 1")
	}

	// Idle backend: full threshold, score 50 admitted.
	v, err := run(Sample{ActiveConnections: 0, MaxConnections: 100, CacheHitRatio: 1})
	if err != nil {
		t.Fatalf("idle: %v", err)
	}
	if !v.Accepted || v.Threshold != DefaultMaxComplexity {
		t.Errorf("idle verdict = %+v", v)
	}

	// Saturated backend: threshold halves to 40, score 50 rejected.
	v, err = run(Sample{ActiveConnections: 100, MaxConnections: 100, CacheHitRatio: 1})
	var tce *TooComplexError
	if !errors.As(err, &tce) {
		t.Fatalf("saturated err = %v, want TooComplexError", err)
	}
	if v.Threshold != DefaultMaxComplexity/2 {
		t.Errorf("saturated threshold = %v, want %v", v.Threshold, DefaultMaxComplexity/2)
	}
}

func TestParsePostgresPlan(t *testing.T) {
	nested := `[{"Plan": {
		"Node Type": "Hash Join",
		"Total Cost": 321.5,
		"Plan Rows": 40,
		"Plans": [
			{"Node Type": "Seq Scan", "Relation Name": "users", "Total Cost": 100, "Plan Rows": 1000},
			{"Node Type": "Index Scan", "Relation Name": "orders", "Total Cost": 50, "Plan Rows": 40}
		]
	}}]`
	est, err := parsePostgresPlan([]byte(nested))
	if err != nil {
		t.Fatal(err)
	}
	if est.Cost != 321.5 || est.Rows != 40 {
		t.Errorf("estimate = %+v", est)
	}
	if len(est.Suggestions) != 1 || !strings.Contains(est.Suggestions[0], "users") {
		t.Errorf("suggestions = %v", est.Suggestions)
	}

	if _, err := parsePostgresPlan([]byte("not json")); err == nil {
		t.Error("invalid document must error")
	}
}

func TestParseMySQLPlan(t *testing.T) {
	doc := `{"query_block": {
		"cost_info": {"query_cost": "6214.50"},
		"nested_loop": [
			{"table": {"table_name": "users", "access_type": "ALL", "rows_examined_per_scan": 9000}},
			{"table": {"table_name": "orders", "access_type": "ref", "rows_examined_per_scan": 3}}
		]
	}}`
	est, err := parseMySQLPlan([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if est.Cost != 6214.5 {
		t.Errorf("cost = %v", est.Cost)
	}
	if est.Rows != 9000 {
		t.Errorf("rows = %v", est.Rows)
	}
	if len(est.Suggestions) != 1 || !strings.Contains(est.Suggestions[0], "users") {
		t.Errorf("suggestions = %v", est.Suggestions)
	}

	if _, err := parseMySQLPlan([]byte(`{"no_block": true}`)); err == nil {
		t.Error("missing query_block must error")
	}
}

func TestLoadFactor(t *testing.T) {
	cases := []struct {
		s    Sample
		want float64
	}{
		{Sample{}, 0},
		{Sample{ActiveConnections: 50, MaxConnections: 100, CacheHitRatio: 1}, 0.5},
		{Sample{ActiveConnections: 200, MaxConnections: 100}, 1},
	}
	for _, tc := range cases {
		if got := tc.s.LoadFactor(); got != tc.want {
			t.Errorf("LoadFactor(%+v) = %v, want %v", tc.s, got, tc.want)
		}
	}

	cold := Sample{ActiveConnections: 0, MaxConnections: 100, CacheHitRatio: 0.5}
	if got := cold.LoadFactor(); got <= 0 || got > 0.25 {
		t.Errorf("cold cache LoadFactor = %v, want (0, 0.25]", got)
	}
}

func TestSamplerCurrent(t *testing.T) {
	s := &Sampler{Probe: &StaticProbe{Value: Sample{ActiveConnections: 7, MaxConnections: 10}}}

	if got := s.Current(); got.ActiveConnections != 0 {
		t.Errorf("Current() before refresh = %+v, want zero sample", got)
	}
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := s.Current()
	if got.ActiveConnections != 7 || got.TakenAt.IsZero() {
		t.Errorf("Current() = %+v", got)
	}
}
