package analyze

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"
)

// Sample is one point-in-time reading of backend load.
type Sample struct {
	ActiveConnections int
	MaxConnections    int
	CacheHitRatio     float64
	TxPerSecond       float64
	TakenAt           time.Time
}

// LoadFactor folds a sample into a 0..1 load estimate. Connection pressure
// dominates; a cold cache adds up to a quarter of the scale.
func (s Sample) LoadFactor() float64 {
	var load float64
	if s.MaxConnections > 0 {
		load = float64(s.ActiveConnections) / float64(s.MaxConnections)
	}
	if s.CacheHitRatio > 0 && s.CacheHitRatio < 1 {
		load += 0.25 * (1 - s.CacheHitRatio)
	}
	if load > 1 {
		return 1
	}
	if load < 0 {
		return 0
	}
	return load
}

// LoadProbe takes a load sample from a backend.
type LoadProbe interface {
	Sample(ctx context.Context) (Sample, error)
}

// PostgresProbe samples load from pg_stat_activity and pg_stat_database.
type PostgresProbe struct {
	Pool *pgxpool.Pool
}

func (p *PostgresProbe) Sample(ctx context.Context) (Sample, error) {
	const q = `SELECT
		(SELECT count(*) FROM pg_stat_activity WHERE state = 'active'),
		(SELECT setting::int FROM pg_settings WHERE name = 'max_connections'),
		(SELECT COALESCE(sum(blks_hit)::float / NULLIF(sum(blks_hit) + sum(blks_read), 0), 1)
			FROM pg_stat_database),
		(SELECT COALESCE(sum(xact_commit + xact_rollback), 0) FROM pg_stat_database)`

	var s Sample
	var txTotal float64
	err := p.Pool.QueryRow(ctx, q).Scan(
		&s.ActiveConnections, &s.MaxConnections, &s.CacheHitRatio, &txTotal)
	if err != nil {
		return Sample{}, err
	}
	s.TxPerSecond = txTotal
	s.TakenAt = time.Now()
	return s, nil
}

// StaticProbe returns a fixed sample; used in tests and as a manual
// override.
type StaticProbe struct {
	Value Sample
}

func (p *StaticProbe) Sample(context.Context) (Sample, error) {
	s := p.Value
	if s.TakenAt.IsZero() {
		s.TakenAt = time.Now()
	}
	return s, nil
}

// Sampler caches the latest load sample and refreshes it on a fixed
// interval. Concurrent refreshes are coalesced; readers never block.
type Sampler struct {
	Probe    LoadProbe
	Interval time.Duration
	Logger   *slog.Logger

	current atomic.Pointer[Sample]
	group   singleflight.Group
}

// Current returns the latest sample, or the zero sample (zero load) when
// none has been taken yet.
func (s *Sampler) Current() Sample {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return Sample{}
}

// Refresh takes a fresh sample now. Concurrent calls share one probe.
func (s *Sampler) Refresh(ctx context.Context) (Sample, error) {
	v, err, _ := s.group.Do("sample", func() (any, error) {
		sample, err := s.Probe.Sample(ctx)
		if err != nil {
			return nil, err
		}
		s.current.Store(&sample)
		return sample, nil
	})
	if err != nil {
		return s.Current(), err
	}
	return v.(Sample), nil
}

// Run refreshes periodically until ctx is canceled. Probe failures keep the
// previous sample; the threshold stays where it was.
func (s *Sampler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Refresh(ctx); err != nil && s.Logger != nil {
			s.Logger.WarnContext(ctx, "load sample failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
