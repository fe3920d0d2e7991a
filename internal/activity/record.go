package activity

import (
	"strings"
	"time"
)

// DateLayout is the calendar-day format used for the denormalized date field.
const DateLayout = "2006-01-02"

// Record is one attributed interval of browsing time. Records are created
// once, when a tracking session closes, and are never mutated afterwards.
type Record struct {
	ID           string    `json:"id,omitempty"`
	Domain       string    `json:"domain"`
	Duration     int64     `json:"duration"` // milliseconds
	IsProductive bool      `json:"isProductive"`
	Timestamp    time.Time `json:"timestamp"`
	Date         string    `json:"date"`
	URL          string    `json:"url,omitempty"`
	Title        string    `json:"title,omitempty"`

	// Ingestion provenance, filled in by the durable store only.
	UserAgent string    `json:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// New builds a record finalized at the given instant. The date is taken
// from at in at's own location, so it always agrees with the timestamp.
func New(domain, url, title string, duration time.Duration, productive bool, at time.Time) Record {
	return Record{
		Domain:       NormalizeDomain(domain),
		Duration:     duration.Milliseconds(),
		IsProductive: productive,
		Timestamp:    at,
		Date:         DateOnly(at),
		URL:          url,
		Title:        title,
	}
}

// DateOnly formats the calendar day of t in t's location.
func DateOnly(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeDomain lower-cases a hostname and strips a leading "www.".
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimPrefix(d, "www.")
}

// Elapsed returns the record's duration as a time.Duration.
func (r Record) Elapsed() time.Duration {
	return time.Duration(r.Duration) * time.Millisecond
}
