package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/runnerr0/tabtime/internal/activity"
)

const (
	DefaultTopDomainsLimit = 10
	DefaultDomainsLimit    = 20
	DefaultWeeks           = 4
	insightDomainsLimit    = 5
)

// Daily sums every record. Callers pass one day's records; an empty slice
// yields all zeros.
func Daily(recs []activity.Record) Totals {
	var t Totals
	for _, r := range recs {
		t.add(r)
	}
	return t
}

// ByDay groups records by their date field, ascending. Days without records
// are absent.
func ByDay(recs []activity.Record) []DayTotals {
	idx := make(map[string]int)
	days := []DayTotals{}
	for _, r := range recs {
		i, ok := idx[r.Date]
		if !ok {
			i = len(days)
			idx[r.Date] = i
			days = append(days, DayTotals{Date: r.Date})
		}
		days[i].add(r)
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// ProductivityOf scores each day and the range as a whole.
func ProductivityOf(recs []activity.Record) Productivity {
	days := ByDay(recs)
	p := Productivity{DailyData: make([]ScoredDay, 0, len(days))}

	var sum Totals
	for _, d := range days {
		sum.merge(d.Totals)
		p.DailyData = append(p.DailyData, ScoredDay{Date: d.Date, ScoredTotals: scored(d.Totals)})
	}
	p.Summary = scored(sum)
	return p
}

type domainGroup struct {
	stats        DomainStats
	isProductive bool
}

// groupDomains groups by domain in first-seen order.
func groupDomains(recs []activity.Record) []*domainGroup {
	idx := make(map[string]*domainGroup)
	var groups []*domainGroup
	for _, r := range recs {
		g, ok := idx[r.Domain]
		if !ok {
			g = &domainGroup{stats: DomainStats{Domain: r.Domain}, isProductive: r.IsProductive}
			idx[r.Domain] = g
			groups = append(groups, g)
		}
		g.stats.TotalTime += r.Duration
		g.stats.Sessions++
		if r.IsProductive {
			g.stats.ProductiveTime += r.Duration
		} else {
			g.stats.UnproductiveTime += r.Duration
		}
	}
	// Ties keep first-seen order.
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].stats.TotalTime > groups[j].stats.TotalTime
	})
	return groups
}

// TopDomains returns up to limit domains by descending total time. A domain's
// isProductive comes from its first record. limit <= 0 means the default.
func TopDomains(recs []activity.Record, limit int) []DomainTotal {
	if limit <= 0 {
		limit = DefaultTopDomainsLimit
	}
	groups := groupDomains(recs)
	out := make([]DomainTotal, 0, min(limit, len(groups)))
	for _, g := range groups {
		if len(out) == limit {
			break
		}
		out = append(out, DomainTotal{
			Domain:       g.stats.Domain,
			TotalTime:    g.stats.TotalTime,
			Sessions:     g.stats.Sessions,
			IsProductive: g.isProductive,
		})
	}
	return out
}

// Domains is TopDomains over a range with per-domain averages and scores.
func Domains(recs []activity.Record, limit int) []DomainStats {
	if limit <= 0 {
		limit = DefaultDomainsLimit
	}
	groups := groupDomains(recs)
	out := make([]DomainStats, 0, min(limit, len(groups)))
	for _, g := range groups {
		if len(out) == limit {
			break
		}
		s := g.stats
		s.AvgSessionDuration = float64(s.TotalTime) / float64(s.Sessions)
		s.ProductivityScore = Score(s.ProductiveTime, s.TotalTime)
		out = append(out, s)
	}
	return out
}

// Hourly returns 24 buckets, one per hour of the day, keyed by the hour of
// each record's timestamp in loc.
func Hourly(recs []activity.Record, loc *time.Location) []HourBucket {
	if loc == nil {
		loc = time.Local
	}
	var hours [24]Totals
	for _, r := range recs {
		hours[r.Timestamp.In(loc).Hour()].add(r)
	}
	out := make([]HourBucket, 24)
	for h, t := range hours {
		out[h] = HourBucket{Hour: h, ScoredTotals: scored(t)}
	}
	return out
}

// Weekly buckets records by the Monday of their ISO week in loc, ascending.
func Weekly(recs []activity.Record, loc *time.Location) []WeekBucket {
	if loc == nil {
		loc = time.Local
	}
	buckets := make(map[[2]int]*Totals)
	var keys [][2]int
	for _, r := range recs {
		year, week := r.Timestamp.In(loc).ISOWeek()
		key := [2]int{year, week}
		t, ok := buckets[key]
		if !ok {
			t = &Totals{}
			buckets[key] = t
			keys = append(keys, key)
		}
		t.add(r)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	out := make([]WeekBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, WeekBucket{
			WeekStart:    isoWeekStart(k[0], k[1], loc).Format(activity.DateLayout),
			ScoredTotals: scored(*buckets[k]),
		})
	}
	return out
}

// isoWeekStart returns the Monday that starts ISO week (year, week).
func isoWeekStart(year, week int, loc *time.Location) time.Time {
	// Jan 4 is always in week 1
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	weekday := jan4.Weekday()
	if weekday == time.Sunday {
		weekday = 7
	}
	monday := jan4.AddDate(0, 0, -int(weekday-time.Monday))
	return monday.AddDate(0, 0, (week-1)*7)
}

// InsightsOf summarizes a range and derives recommendations from it.
func InsightsOf(recs []activity.Record) Insights {
	sum := Daily(recs)
	score := sum.Score()

	var avg float64
	if sum.TotalSessions > 0 {
		avg = float64(sum.TotalTime) / float64(sum.TotalSessions)
	}

	var productive, distracting []activity.Record
	for _, r := range recs {
		if r.IsProductive {
			productive = append(productive, r)
		} else {
			distracting = append(distracting, r)
		}
	}

	return Insights{
		Summary: InsightSummary{
			ScoredTotals:       ScoredTotals{Totals: sum, ProductivityScore: round2(score)},
			AvgSessionDuration: avg,
		},
		MostProductiveDomains:  TopDomains(productive, insightDomainsLimit),
		MostDistractingDomains: TopDomains(distracting, insightDomainsLimit),
		Recommendations:        Recommend(score, avg, sum.TotalSessions),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
