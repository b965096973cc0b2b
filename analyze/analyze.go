// Package analyze estimates query complexity from backend planner output
// and rejects or flags queries that exceed an adaptive threshold.
//
// The analyzer is strictly advisory about availability: when the backend
// cannot produce a plan, or produces one we cannot parse, the query is
// admitted and the failure is logged. Rejection requires positive evidence
// of excessive cost.
package analyze

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/hugr-lab/cql/adapter"
)

const (
	DefaultMaxComplexity = 80.0
	DefaultWarnThreshold = 0.75
	DefaultProbeTimeout  = 2 * time.Second
)

// defaultCostScale maps a planner's native cost units to the 0..100 score:
// a plan costing the scale value scores 100.
var defaultCostScale = map[adapter.Engine]float64{
	adapter.Postgres: 10000,
	adapter.MySQL:    5000,
}

// Config controls the analyzer. The zero value disables it.
type Config struct {
	Enabled bool

	// MaxComplexity is the rejection threshold on the 0..100 score.
	// Zero means DefaultMaxComplexity.
	MaxComplexity float64

	// AdaptiveLimits lowers the effective threshold under backend load,
	// down to half of MaxComplexity at full load. Requires a Sampler.
	AdaptiveLimits bool

	// WarnThreshold is the fraction of the effective threshold at which an
	// admitted query is flagged. Zero means DefaultWarnThreshold.
	WarnThreshold float64

	// ProbeTimeout bounds the EXPLAIN round trip. Zero means
	// DefaultProbeTimeout.
	ProbeTimeout time.Duration

	// CostScale overrides the engine's native-cost-to-score scale.
	CostScale float64

	// OnVerdict, when set, observes every verdict. Telemetry only; the
	// callback cannot change the outcome.
	OnVerdict func(Verdict)
}

// Verdict is the analyzer's decision for one query.
type Verdict struct {
	// Score is the normalized complexity on 0..100.
	Score float64

	// Cost and Rows are the planner's native estimates.
	Cost float64
	Rows int64

	// Threshold is the effective rejection threshold that was applied.
	Threshold float64

	Accepted bool
	Warned   bool

	// Skipped is set when no plan was obtained: analyzer disabled, engine
	// without plan support, or probe failure. Skipped implies Accepted.
	Skipped bool

	// Suggestions are plan-derived hints (missing indexes, full scans).
	Suggestions []string
}

// TooComplexError is returned when a query's score reaches the effective
// threshold.
type TooComplexError struct {
	Verdict Verdict
}

func (e *TooComplexError) Error() string {
	return fmt.Sprintf("query too complex: score %.1f, threshold %.1f",
		e.Verdict.Score, e.Verdict.Threshold)
}

// Analyzer scores queries against one backend. All fields are read-only
// after construction; Analyzer is safe for concurrent use.
type Analyzer struct {
	DB     *sql.DB
	Engine adapter.Engine
	Config Config

	// Sampler supplies backend load for adaptive limits. Optional.
	Sampler *Sampler

	Logger *slog.Logger
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func (a *Analyzer) maxComplexity() float64 {
	if a.Config.MaxComplexity > 0 {
		return a.Config.MaxComplexity
	}
	return DefaultMaxComplexity
}

func (a *Analyzer) warnThreshold() float64 {
	if a.Config.WarnThreshold > 0 {
		return a.Config.WarnThreshold
	}
	return DefaultWarnThreshold
}

func (a *Analyzer) probeTimeout() time.Duration {
	if a.Config.ProbeTimeout > 0 {
		return a.Config.ProbeTimeout
	}
	return DefaultProbeTimeout
}

func (a *Analyzer) costScale() float64 {
	if a.Config.CostScale > 0 {
		return a.Config.CostScale
	}
	if s, ok := defaultCostScale[a.Engine]; ok {
		return s
	}
	return defaultCostScale[adapter.Postgres]
}

// effectiveThreshold applies the adaptive reduction: at full backend load
// the threshold drops to half of the configured maximum.
func (a *Analyzer) effectiveThreshold() float64 {
	max := a.maxComplexity()
	if !a.Config.AdaptiveLimits || a.Sampler == nil {
		return max
	}
	load := a.Sampler.Current().LoadFactor()
	return max * (1 - 0.5*load)
}

// Analyze scores query and decides whether to admit it. Rejection returns a
// *TooComplexError alongside the verdict; every other outcome, including
// probe failure, admits the query.
func (a *Analyzer) Analyze(ctx context.Context, query string, args ...any) (Verdict, error) {
	if !a.Config.Enabled || a.DB == nil {
		return a.finish(ctx, Verdict{Accepted: true, Skipped: true})
	}
	ad := adapter.Adapter{Engine: a.Engine}
	if !ad.SupportsExplain() {
		return a.finish(ctx, Verdict{Accepted: true, Skipped: true})
	}

	plan, err := a.explain(ctx, query, args...)
	if err != nil {
		a.logProbeFailure(ctx, err)
		return a.finish(ctx, Verdict{Accepted: true, Skipped: true})
	}

	threshold := a.effectiveThreshold()
	score := plan.Cost / a.costScale() * 100
	if score > 100 {
		score = 100
	}
	v := Verdict{
		Score:       score,
		Cost:        plan.Cost,
		Rows:        plan.Rows,
		Threshold:   threshold,
		Suggestions: plan.Suggestions,
	}
	// The threshold itself rejects; the warn band is strictly below it.
	if score >= threshold {
		a.logger().InfoContext(ctx, "query rejected",
			"score", score, "threshold", threshold, "cost", plan.Cost)
		return a.finish(ctx, v)
	}
	v.Accepted = true
	if score >= threshold*a.warnThreshold() {
		v.Warned = true
		a.logger().WarnContext(ctx, "query near complexity threshold",
			"score", score, "threshold", threshold,
			"suggestions", plan.Suggestions)
	}
	return a.finish(ctx, v)
}

func (a *Analyzer) finish(ctx context.Context, v Verdict) (Verdict, error) {
	if a.Config.OnVerdict != nil {
		a.Config.OnVerdict(v)
	}
	if !v.Accepted {
		return v, &TooComplexError{Verdict: v}
	}
	return v, nil
}

// explain obtains and parses the backend plan within the probe timeout.
func (a *Analyzer) explain(ctx context.Context, query string, args ...any) (planEstimate, error) {
	ctx, cancel := context.WithTimeout(ctx, a.probeTimeout())
	defer cancel()

	var stmt string
	switch a.Engine {
	case adapter.Postgres:
		stmt = "EXPLAIN (FORMAT JSON) " + query
	case adapter.MySQL:
		stmt = "EXPLAIN FORMAT=JSON " + query
	default:
		return planEstimate{}, fmt.Errorf("engine %s has no plan support", a.Engine)
	}

	var doc string
	if err := a.DB.QueryRowContext(ctx, stmt, args...).Scan(&doc); err != nil {
		return planEstimate{}, err
	}

	switch a.Engine {
	case adapter.Postgres:
		return parsePostgresPlan([]byte(doc))
	default:
		return parseMySQLPlan([]byte(doc))
	}
}

// logProbeFailure logs fail-open causes, separating timeouts and driver
// errors so operators can tell overload from misconfiguration.
func (a *Analyzer) logProbeFailure(ctx context.Context, err error) {
	log := a.logger()
	var myErr *mysql.MySQLError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		log.WarnContext(ctx, "complexity probe timed out, admitting query", "err", err)
	case errors.As(err, &myErr):
		log.WarnContext(ctx, "complexity probe failed, admitting query",
			"mysql_errno", myErr.Number, "err", err)
	default:
		log.WarnContext(ctx, "complexity probe failed, admitting query", "err", err)
	}
}

// planEstimate is the engine-neutral digest of one plan.
type planEstimate struct {
	Cost        float64
	Rows        int64
	Suggestions []string
}
