package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/tabtime/internal/activity"
)

// Source supplies records to the Engine. storage.SQLiteStore satisfies it.
type Source interface {
	RecordsBetween(ctx context.Context, startDate, endDate string) ([]activity.Record, error)
	RecordsSince(ctx context.Context, from, to time.Time) ([]activity.Record, error)
}

// Engine reads records from a Source and aggregates them. It holds no state
// of its own and is safe for concurrent use.
type Engine struct {
	src Source
	loc *time.Location
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the zone used for hour-of-day and week bucketing.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine over src.
func NewEngine(src Source, opts ...Option) *Engine {
	e := &Engine{src: src, loc: time.Local, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) between(ctx context.Context, start, end string) ([]activity.Record, error) {
	recs, err := e.src.RecordsBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("read records %s..%s: %w", start, end, err)
	}
	return recs, nil
}

// DailySummary totals one calendar day.
func (e *Engine) DailySummary(ctx context.Context, date string) (Totals, error) {
	recs, err := e.between(ctx, date, date)
	if err != nil {
		return Totals{}, err
	}
	return Daily(recs), nil
}

// WeeklySummary totals each day in [start, end] that has records.
func (e *Engine) WeeklySummary(ctx context.Context, start, end string) ([]DayTotals, error) {
	recs, err := e.between(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return ByDay(recs), nil
}

// TopDomains ranks one day's domains by total time.
func (e *Engine) TopDomains(ctx context.Context, date string, limit int) ([]DomainTotal, error) {
	recs, err := e.between(ctx, date, date)
	if err != nil {
		return nil, err
	}
	return TopDomains(recs, limit), nil
}

// Productivity scores each day of [start, end] and the range as a whole.
func (e *Engine) Productivity(ctx context.Context, start, end string) (Productivity, error) {
	recs, err := e.between(ctx, start, end)
	if err != nil {
		return Productivity{}, err
	}
	return ProductivityOf(recs), nil
}

// Domains ranks the domains of [start, end] with per-domain statistics.
func (e *Engine) Domains(ctx context.Context, start, end string, limit int) ([]DomainStats, error) {
	recs, err := e.between(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return Domains(recs, limit), nil
}

// HourlyPattern blends every day of [start, end] into 24 hour buckets.
func (e *Engine) HourlyPattern(ctx context.Context, start, end string) ([]HourBucket, error) {
	recs, err := e.between(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return Hourly(recs, e.loc), nil
}

// WeeklyComparison buckets the trailing weeks*7 days by ISO week.
func (e *Engine) WeeklyComparison(ctx context.Context, weeks int) ([]WeekBucket, error) {
	if weeks <= 0 {
		weeks = DefaultWeeks
	}
	to := e.now()
	from := to.AddDate(0, 0, -weeks*7)

	recs, err := e.src.RecordsSince(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("read records since %s: %w", from.Format(time.RFC3339), err)
	}
	return Weekly(recs, e.loc), nil
}

// Insights summarizes [start, end] and derives recommendations.
func (e *Engine) Insights(ctx context.Context, start, end string) (Insights, error) {
	recs, err := e.between(ctx, start, end)
	if err != nil {
		return Insights{}, err
	}
	return InsightsOf(recs), nil
}
