// Package analytics derives summaries from stored activity records. Every
// view is recomputed from the records on demand; nothing here is persisted.
package analytics

import (
	"time"

	"github.com/runnerr0/tabtime/internal/activity"
)

// Totals is the set of time and session counters shared by every view.
// Times are milliseconds.
type Totals struct {
	TotalTime            int64 `json:"totalTime"`
	ProductiveTime       int64 `json:"productiveTime"`
	UnproductiveTime     int64 `json:"unproductiveTime"`
	TotalSessions        int64 `json:"totalSessions"`
	ProductiveSessions   int64 `json:"productiveSessions"`
	UnproductiveSessions int64 `json:"unproductiveSessions"`
}

func (t *Totals) add(r activity.Record) {
	t.TotalTime += r.Duration
	t.TotalSessions++
	if r.IsProductive {
		t.ProductiveTime += r.Duration
		t.ProductiveSessions++
	} else {
		t.UnproductiveTime += r.Duration
		t.UnproductiveSessions++
	}
}

func (t *Totals) merge(o Totals) {
	t.TotalTime += o.TotalTime
	t.ProductiveTime += o.ProductiveTime
	t.UnproductiveTime += o.UnproductiveTime
	t.TotalSessions += o.TotalSessions
	t.ProductiveSessions += o.ProductiveSessions
	t.UnproductiveSessions += o.UnproductiveSessions
}

// Score is the productive share of TotalTime as a percentage.
func (t Totals) Score() float64 {
	return Score(t.ProductiveTime, t.TotalTime)
}

// Score returns productive/total*100, or 0 when total is 0.
func Score(productive, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(productive) / float64(total) * 100
}

// DayTotals is one calendar day's totals.
type DayTotals struct {
	Date string `json:"date"`
	Totals
}

// ScoredTotals is Totals with the productivity score attached.
type ScoredTotals struct {
	Totals
	ProductivityScore float64 `json:"productivityScore"`
}

func scored(t Totals) ScoredTotals {
	return ScoredTotals{Totals: t, ProductivityScore: t.Score()}
}

// ScoredDay is one day's totals with the productivity score attached.
type ScoredDay struct {
	Date string `json:"date"`
	ScoredTotals
}

// Productivity is the range-wide summary plus per-day rows. The summary score
// is computed from the summed totals, never by averaging daily scores.
type Productivity struct {
	Summary   ScoredTotals `json:"summary"`
	DailyData []ScoredDay  `json:"dailyData"`
}

// DomainTotal is one domain's share of a day.
type DomainTotal struct {
	Domain       string `json:"domain"`
	TotalTime    int64  `json:"totalTime"`
	Sessions     int64  `json:"sessions"`
	IsProductive bool   `json:"isProductive"`
}

// DomainStats is one domain's totals across a date range.
type DomainStats struct {
	Domain             string  `json:"domain"`
	TotalTime          int64   `json:"totalTime"`
	Sessions           int64   `json:"sessions"`
	ProductiveTime     int64   `json:"productiveTime"`
	UnproductiveTime   int64   `json:"unproductiveTime"`
	AvgSessionDuration float64 `json:"avgSessionDuration"`
	ProductivityScore  float64 `json:"productivityScore"`
}

// HourBucket aggregates every record finalized in one hour of the day,
// across all days of a range.
type HourBucket struct {
	Hour int `json:"hour"`
	ScoredTotals
}

// WeekBucket aggregates the records of one ISO week.
type WeekBucket struct {
	WeekStart string `json:"weekStart"` // Monday, YYYY-MM-DD
	ScoredTotals
}

// Recommendation is advice derived from a range summary.
type Recommendation struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// InsightSummary is the range summary shown with insights. The score is
// rounded to two decimals.
type InsightSummary struct {
	ScoredTotals
	AvgSessionDuration float64 `json:"avgSessionDuration"`
}

// Insights bundles the summary, the leading domains on each side and the
// recommendations for a range.
type Insights struct {
	Summary                InsightSummary   `json:"summary"`
	MostProductiveDomains  []DomainTotal    `json:"mostProductiveDomains"`
	MostDistractingDomains []DomainTotal    `json:"mostDistractingDomains"`
	Recommendations        []Recommendation `json:"recommendations"`
}

// ValidateDate reports whether s is a YYYY-MM-DD calendar date.
func ValidateDate(s string) bool {
	_, err := time.Parse(activity.DateLayout, s)
	return err == nil
}
