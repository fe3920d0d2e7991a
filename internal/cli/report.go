package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/analytics"
	"github.com/runnerr0/tabtime/internal/storage"
)

// Execute implements the go-flags Commander interface for ReportCommand.
func (c *ReportCommand) Execute(args []string) error {
	store, release, err := c.deps.openStore()
	if err != nil {
		return err
	}
	defer release()

	return c.executeWithStore(store, time.Local)
}

// executeWithStore renders the selected view from a provided store, bucketing
// hours and weeks in loc.
func (c *ReportCommand) executeWithStore(store *storage.SQLiteStore, loc *time.Location) error {
	eng := analytics.NewEngine(store, analytics.WithClock(c.deps.clock), analytics.WithLocation(loc))
	ctx := context.Background()
	today := activity.DateOnly(c.deps.clock().In(loc))

	var (
		data   interface{}
		render func()
		err    error
	)

	switch c.View {
	case "daily", "":
		date, derr := c.day(today)
		if derr != nil {
			return derr
		}
		var t analytics.Totals
		t, err = eng.DailySummary(ctx, date)
		data, render = t, func() { printDaily(date, t) }

	case "top":
		date, derr := c.day(today)
		if derr != nil {
			return derr
		}
		limit := c.limit(analytics.DefaultTopDomainsLimit)
		var top []analytics.DomainTotal
		top, err = eng.TopDomains(ctx, date, limit)
		data, render = top, func() { printTop(date, top) }

	case "comparison":
		if c.Weeks < 1 {
			return fmt.Errorf("--weeks must be at least 1")
		}
		var weeks []analytics.WeekBucket
		weeks, err = eng.WeeklyComparison(ctx, c.Weeks)
		data, render = weeks, func() { printWeeks(weeks) }

	default:
		start, end, rerr := c.span(today)
		if rerr != nil {
			return rerr
		}
		switch c.View {
		case "weekly":
			var days []analytics.DayTotals
			days, err = eng.WeeklySummary(ctx, start, end)
			data, render = days, func() { printDays(start, end, days) }
		case "productivity":
			var p analytics.Productivity
			p, err = eng.Productivity(ctx, start, end)
			data, render = p, func() { printProductivity(start, end, p) }
		case "domains":
			var stats []analytics.DomainStats
			stats, err = eng.Domains(ctx, start, end, c.limit(analytics.DefaultDomainsLimit))
			data, render = stats, func() { printDomains(start, end, stats) }
		case "hourly":
			var hours []analytics.HourBucket
			hours, err = eng.HourlyPattern(ctx, start, end)
			data, render = hours, func() { printHours(start, end, hours) }
		case "insights":
			var in analytics.Insights
			in, err = eng.Insights(ctx, start, end)
			data, render = in, func() { printInsights(start, end, in) }
		default:
			return fmt.Errorf("unknown view %q", c.View)
		}
	}
	if err != nil {
		return err
	}

	if c.deps.jsonOutput() {
		return printJSON(data)
	}
	render()
	return nil
}

func (c *ReportCommand) day(today string) (string, error) {
	if c.Date == "" {
		return today, nil
	}
	if !analytics.ValidateDate(c.Date) {
		return "", fmt.Errorf("invalid --date value %q: want YYYY-MM-DD", c.Date)
	}
	return c.Date, nil
}

// span returns the requested range, defaulting to the seven days ending today.
func (c *ReportCommand) span(today string) (string, string, error) {
	end := c.End
	if end == "" {
		end = today
	}
	start := c.Start
	if start == "" {
		t, err := time.Parse(activity.DateLayout, end)
		if err != nil {
			return "", "", fmt.Errorf("invalid --end value %q: want YYYY-MM-DD", end)
		}
		start = t.AddDate(0, 0, -6).Format(activity.DateLayout)
	}
	if !analytics.ValidateDate(start) {
		return "", "", fmt.Errorf("invalid --start value %q: want YYYY-MM-DD", start)
	}
	if !analytics.ValidateDate(end) {
		return "", "", fmt.Errorf("invalid --end value %q: want YYYY-MM-DD", end)
	}
	return start, end, nil
}

func (c *ReportCommand) limit(def int) int {
	if c.Limit > 0 {
		return c.Limit
	}
	return def
}

func printDaily(date string, t analytics.Totals) {
	fmt.Printf("Summary for %s\n", date)
	fmt.Printf("  Total:        %s in %d sessions\n", formatMillis(t.TotalTime), t.TotalSessions)
	fmt.Printf("  Productive:   %s in %d sessions\n", formatMillis(t.ProductiveTime), t.ProductiveSessions)
	fmt.Printf("  Unproductive: %s in %d sessions\n", formatMillis(t.UnproductiveTime), t.UnproductiveSessions)
	fmt.Printf("  Score:        %.1f%%\n", t.Score())
}

func printTop(date string, top []analytics.DomainTotal) {
	if len(top) == 0 {
		fmt.Printf("No activity on %s\n", date)
		return
	}
	fmt.Printf("Top domains for %s\n", date)
	for i, d := range top {
		fmt.Printf("%2d. %-28s %10s  %3d sessions  %s\n", i+1, d.Domain, formatMillis(d.TotalTime), d.Sessions, productiveLabel(d.IsProductive))
	}
}

func printDays(start, end string, days []analytics.DayTotals) {
	if len(days) == 0 {
		fmt.Printf("No activity between %s and %s\n", start, end)
		return
	}
	fmt.Printf("Daily totals %s .. %s\n", start, end)
	for _, d := range days {
		fmt.Printf("  %s  %10s  productive %10s  %5.1f%%\n", d.Date, formatMillis(d.TotalTime), formatMillis(d.ProductiveTime), d.Score())
	}
}

func printProductivity(start, end string, p analytics.Productivity) {
	fmt.Printf("Productivity %s .. %s\n", start, end)
	fmt.Printf("  Total:      %s in %d sessions\n", formatMillis(p.Summary.TotalTime), p.Summary.TotalSessions)
	fmt.Printf("  Productive: %s\n", formatMillis(p.Summary.ProductiveTime))
	fmt.Printf("  Score:      %.1f%%\n", p.Summary.ProductivityScore)
	for _, d := range p.DailyData {
		fmt.Printf("  %s  %10s  %5.1f%%\n", d.Date, formatMillis(d.TotalTime), d.ProductivityScore)
	}
}

func printDomains(start, end string, stats []analytics.DomainStats) {
	if len(stats) == 0 {
		fmt.Printf("No activity between %s and %s\n", start, end)
		return
	}
	fmt.Printf("Domains %s .. %s\n", start, end)
	for i, d := range stats {
		fmt.Printf("%2d. %-28s %10s  %3d sessions  avg %s  %5.1f%%\n", i+1, d.Domain,
			formatMillis(d.TotalTime), d.Sessions, formatMillis(int64(d.AvgSessionDuration)), d.ProductivityScore)
	}
}

func printHours(start, end string, hours []analytics.HourBucket) {
	fmt.Printf("Hourly pattern %s .. %s\n", start, end)
	for _, h := range hours {
		if h.TotalSessions == 0 {
			continue
		}
		fmt.Printf("  %02d:00  %10s  %5.1f%%\n", h.Hour, formatMillis(h.TotalTime), h.ProductivityScore)
	}
}

func printWeeks(weeks []analytics.WeekBucket) {
	if len(weeks) == 0 {
		fmt.Println("No activity in the selected weeks")
		return
	}
	fmt.Println("Weekly comparison")
	for _, w := range weeks {
		fmt.Printf("  week of %s  %10s  %5.1f%%\n", w.WeekStart, formatMillis(w.TotalTime), w.ProductivityScore)
	}
}

func printInsights(start, end string, in analytics.Insights) {
	fmt.Printf("Insights %s .. %s\n", start, end)
	fmt.Printf("  Score:        %.2f%%\n", in.Summary.ProductivityScore)
	fmt.Printf("  Avg session:  %s\n", formatMillis(int64(in.Summary.AvgSessionDuration)))
	if len(in.MostProductiveDomains) > 0 {
		fmt.Println("  Most productive:")
		for _, d := range in.MostProductiveDomains {
			fmt.Printf("    %-28s %s\n", d.Domain, formatMillis(d.TotalTime))
		}
	}
	if len(in.MostDistractingDomains) > 0 {
		fmt.Println("  Most distracting:")
		for _, d := range in.MostDistractingDomains {
			fmt.Printf("    %-28s %s\n", d.Domain, formatMillis(d.TotalTime))
		}
	}
	for _, r := range in.Recommendations {
		fmt.Printf("  [%s] %s\n", r.Type, r.Message)
	}
}
