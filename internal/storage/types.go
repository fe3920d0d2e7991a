package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned (wrapped) when an operation addresses a record ID
// that does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDateMismatch is returned when a record's date is not the calendar day of
// its timestamp.
var ErrDateMismatch = errors.New("date does not match timestamp")

// RecordQuery defines filters for listing stored records. Date takes
// precedence over StartDate/EndDate, which must be given together.
type RecordQuery struct {
	Date         string
	StartDate    string
	EndDate      string
	Domain       string
	IsProductive *bool
	Limit        int
	Offset       int
}

// RecordPatch carries the fields an update may change. Nil means unchanged.
type RecordPatch struct {
	Domain       *string
	Duration     *int64
	IsProductive *bool
	URL          *string
	Title        *string
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.Domain == nil && p.Duration == nil && p.IsProductive == nil &&
		p.URL == nil && p.Title == nil
}

// Stats holds aggregate statistics about the tabtime database.
type Stats struct {
	TotalRecords       int64
	TotalDuration      int64
	ProductiveDuration int64
	OldestRecord       time.Time
	NewestRecord       time.Time
	TopDomains         []DomainTime
	SchemaVersion      int
}

// DomainTime pairs a domain with its attributed time and session count.
type DomainTime struct {
	Domain    string
	TotalTime int64
	Sessions  int64
}
