// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package datebucket

import (
	"cmp"
	"fmt"
	"time"
)

const (
	LabelToday     = "Today"
	LabelYesterday = "Yesterday"

	// AbsoluteLayout formats days older than yesterday.
	AbsoluteLayout = "Monday, January 2, 2006"
)

// Day is a calendar date in some location.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	year, month, day := t.In(loc).Date()
	return Day{Year: year, Month: month, Day: day}
}

// Compare returns -1, 0, or +1 as d is before, equal to, or after other.
func (d Day) Compare(other Day) int {
	if c := cmp.Compare(d.Year, other.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(d.Month, other.Month); c != 0 {
		return c
	}
	return cmp.Compare(d.Day, other.Day)
}

// AddDays returns the day n days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	return DayOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC), time.UTC)
}

// Start returns midnight at the start of d in loc.
func (d Day) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Label returns the header for d as seen on today.
func (d Day) Label(today Day, loc *time.Location) string {
	switch d {
	case today:
		return LabelToday
	case today.AddDays(-1):
		return LabelYesterday
	}
	return d.Start(loc).Format(AbsoluteLayout)
}

// Key returns the bucket label for a message created at t, as seen at
// now, with calendar days computed in loc.
func Key(t, now time.Time, loc *time.Location) string {
	return DayOf(t, loc).Label(DayOf(now, loc), loc)
}
