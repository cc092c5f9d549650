// Package clock produces the timestamps and calendar dates used to order
// questions and to filter "today" feeds.
package clock

import (
	"sync"
	"time"
)

// DateLayout is the calendar date format stored on nodes
const DateLayout = "2006-01-02"

// Clock is a source of the current time
type Clock interface {
	Now() time.Time
}

// System reads the wall clock. Dates are computed in Location (UTC when nil).
type System struct {
	Location *time.Location
}

// NewSystem returns a wall clock bound to loc
func NewSystem(loc *time.Location) System {
	return System{Location: loc}
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(s.Location)
}

// Manual is a clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a manual clock set to t
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Timestamp returns t as Unix microseconds
func Timestamp(t time.Time) int64 {
	return t.UnixMicro()
}

// Date returns the calendar date of t in t's own location
func Date(t time.Time) string {
	return t.Format(DateLayout)
}

// Stamp returns the timestamp and date of the clock's current instant.
// Both values come from a single reading so they never disagree.
func Stamp(c Clock) (int64, string) {
	now := c.Now()
	return Timestamp(now), Date(now)
}

// Today returns the clock's current calendar date
func Today(c Clock) string {
	return Date(c.Now())
}
