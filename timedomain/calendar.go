// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package timedomain implements the monotone sequence of timestep bounds
// each component advances over, and the calendar arithmetic that
// decides whether two components' TimeDomains may couple.
package timedomain

import (
	"fmt"

	"github.com/unifhy-org/unifhy/unifhyerr"
)

// Calendar names the day-length convention used to walk dates. All
// arithmetic for a given TimeDomain goes through exactly one Calendar;
// calendars are never mixed within a coupled model.
type Calendar int

const (
	Gregorian Calendar = iota
	NoLeap
	Days360
)

func (c Calendar) String() string {
	switch c {
	case Gregorian:
		return "gregorian"
	case NoLeap:
		return "noleap"
	case Days360:
		return "360_day"
	default:
		return "unknown"
	}
}

// ParseCalendar maps a configuration string to a Calendar.
func ParseCalendar(s string) (Calendar, error) {
	switch s {
	case "gregorian", "standard", "proleptic_gregorian":
		return Gregorian, nil
	case "noleap", "365_day":
		return NoLeap, nil
	case "360_day":
		return Days360, nil
	default:
		return 0, unifhyerr.NewConfigError("unknown calendar %q", s)
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysInMonth(cal Calendar, year, month int) int {
	switch cal {
	case Days360:
		return 30
	case NoLeap:
		normal := [...]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
		return normal[month-1]
	default: // Gregorian
		normal := [...]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
		if month == 2 && isLeap(year) {
			return 29
		}
		return normal[month-1]
	}
}

func daysInYear(cal Calendar) int {
	switch cal {
	case Days360:
		return 360
	case NoLeap:
		return 365
	default:
		return 0 // Gregorian: depends on the year, use isLeap
	}
}

// Date is a calendar-aware civil timestamp, second resolution. It is
// deliberately not time.Time: time.Time is always proleptic Gregorian,
// which cannot represent noleap or 360_day calendars correctly.
type Date struct {
	Year, Month, Day, Hour, Minute, Second int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second)
}

// Before reports whether d occurs strictly before o (lexicographic: valid
// for any single calendar since fields are always in-range for it).
func (d Date) Before(o Date) bool {
	switch {
	case d.Year != o.Year:
		return d.Year < o.Year
	case d.Month != o.Month:
		return d.Month < o.Month
	case d.Day != o.Day:
		return d.Day < o.Day
	case d.Hour != o.Hour:
		return d.Hour < o.Hour
	case d.Minute != o.Minute:
		return d.Minute < o.Minute
	default:
		return d.Second < o.Second
	}
}

// Equal reports field-wise equality.
func (d Date) Equal(o Date) bool { return d == o }

// AddSeconds returns the Date reached by adding secs seconds to d under
// the given calendar, rolling over day/month/year boundaries correctly
// for that calendar's month and year lengths.
func AddSeconds(cal Calendar, d Date, secs int64) Date {
	total := int64(d.Hour)*3600 + int64(d.Minute)*60 + int64(d.Second) + secs
	dayCarry := total / 86400
	rem := total % 86400
	if rem < 0 {
		rem += 86400
		dayCarry--
	}
	d.Hour = int(rem / 3600)
	d.Minute = int((rem % 3600) / 60)
	d.Second = int(rem % 60)

	day, month, year := d.Day, d.Month, d.Year
	for dayCarry > 0 {
		dim := daysInMonth(cal, year, month)
		if day+int(dayCarry) <= dim {
			day += int(dayCarry)
			dayCarry = 0
		} else {
			dayCarry -= int64(dim - day + 1)
			day = 1
			month++
			if month > 12 {
				month = 1
				year++
			}
		}
	}
	for dayCarry < 0 {
		if day+int(dayCarry) >= 1 {
			day += int(dayCarry)
			dayCarry = 0
		} else {
			dayCarry += int64(day)
			month--
			if month < 1 {
				month = 12
				year--
			}
			day = daysInMonth(cal, year, month)
		}
	}
	return Date{year, month, day, d.Hour, d.Minute, d.Second}
}

// SecondsBetween returns b-a in seconds under the given calendar. Both
// dates must belong to that calendar's valid range.
func SecondsBetween(cal Calendar, a, b Date) int64 {
	// walk whole years first (cheap for multi-year TimeDomains), then days
	// within the final partial year, then time-of-day.
	var secs int64
	ay, by := a.Year, b.Year
	sign := int64(1)
	if b.Before(a) {
		a, b = b, a
		sign = -1
	}
	ay, by = a.Year, b.Year
	for y := ay; y < by; y++ {
		secs += int64(yearLength(cal, y)) * 86400
	}
	secs += int64(dayOfYear(cal, b) - dayOfYear(cal, a)) * 86400
	secs += int64(b.Hour-a.Hour)*3600 + int64(b.Minute-a.Minute)*60 + int64(b.Second-a.Second)
	return sign * secs
}

func yearLength(cal Calendar, year int) int {
	n := daysInYear(cal)
	if n != 0 {
		return n
	}
	if isLeap(year) {
		return 366
	}
	return 365
}

func dayOfYear(cal Calendar, d Date) int {
	n := 0
	for m := 1; m < d.Month; m++ {
		n += daysInMonth(cal, d.Year, m)
	}
	return n + d.Day
}

// ParseDate parses the fixed layout produced by Date.String()
// ("YYYY-MM-DDTHH:MM:SS"), the rendering used for checkpoint frame and
// record timestamps throughout this package.
func ParseDate(s string) (Date, error) {
	var d Date
	_, err := fmt.Sscanf(s, "%04d-%02d-%02dT%02d:%02d:%02d", &d.Year, &d.Month, &d.Day, &d.Hour, &d.Minute, &d.Second)
	if err != nil {
		return Date{}, unifhyerr.NewConfigError("cannot parse date %q: %v", s, err)
	}
	return d, nil
}

// DayOfYearBucket returns the 1-based day-of-year index, used to index
// climatologic inputs declared at daily frequency.
func DayOfYearBucket(cal Calendar, d Date) int { return dayOfYear(cal, d) }

// MonthBucket returns the 1-based month index for monthly climatology.
func MonthBucket(d Date) int { return d.Month }

// SeasonBucket returns 0=DJF,1=MAM,2=JJA,3=SON for seasonal climatology.
func SeasonBucket(d Date) int {
	switch d.Month {
	case 12, 1, 2:
		return 0
	case 3, 4, 5:
		return 1
	case 6, 7, 8:
		return 2
	default:
		return 3
	}
}
