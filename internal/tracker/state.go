// Package tracker attributes wall-clock time to the focused browser tab.
//
// At most one tab is tracked at a time. Tab lifecycle events drive a small
// state machine (Idle or Tracking); every transition out of Tracking
// finalizes the session into an activity.Record.
package tracker

import (
	"time"

	"github.com/runnerr0/tabtime/internal/activity"
	"github.com/runnerr0/tabtime/internal/classify"
)

// Tab identifies a browser tab and what it is showing.
type Tab struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// EventKind enumerates tab lifecycle signals.
type EventKind int

const (
	// Focus means a tab was activated, or the active tab finished loading.
	Focus EventKind = iota
	// Close means a tab was removed.
	Close
	// Blur means the browser window lost focus.
	Blur
	// Tick refreshes the elapsed-time snapshot and changes nothing else.
	Tick
)

func (k EventKind) String() string {
	switch k {
	case Focus:
		return "focus"
	case Close:
		return "close"
	case Blur:
		return "blur"
	case Tick:
		return "tick"
	}
	return "unknown"
}

// Event is one lifecycle signal. For Close only Tab.ID is used.
type Event struct {
	Kind EventKind
	Tab  Tab
	At   time.Time
}

// Session is an open tracking interval.
type Session struct {
	Tab   Tab
	Start time.Time
}

// State is the tracker's whole state. A nil Session means Idle.
type State struct {
	Session *Session
	// Last is the latest session boundary applied. Events timed before it are
	// treated as happening at Last, so emitted intervals never overlap.
	Last time.Time
}

// Idle reports whether nothing is being tracked.
func (s State) Idle() bool {
	return s.Session == nil
}

// Step applies ev to st and returns the next state together with the record
// finalized by the transition, if any.
func Step(st State, ev Event, c *classify.Classifier) (State, *activity.Record) {
	at := ev.At
	if at.Before(st.Last) {
		at = st.Last
	}

	switch ev.Kind {
	case Focus:
		var rec *activity.Record
		if st.Session != nil {
			rec = finalize(*st.Session, at, c)
		}
		return State{Session: &Session{Tab: ev.Tab, Start: at}, Last: at}, rec

	case Close:
		if st.Session == nil || st.Session.Tab.ID != ev.Tab.ID {
			return st, nil
		}
		return State{Last: at}, finalize(*st.Session, at, c)

	case Blur:
		if st.Session == nil {
			return st, nil
		}
		return State{Last: at}, finalize(*st.Session, at, c)
	}

	return st, nil
}

// finalize converts a session ending at end into a record. Sessions with no
// URL or no positive duration produce nothing.
func finalize(s Session, end time.Time, c *classify.Classifier) *activity.Record {
	d := end.Sub(s.Start)
	if s.Tab.URL == "" || d <= 0 {
		return nil
	}
	productive := c.Classify(s.Tab.URL) == classify.Productive
	rec := activity.New(classify.ExtractDomain(s.Tab.URL), s.Tab.URL, s.Tab.Title, d, productive, end)
	return &rec
}
