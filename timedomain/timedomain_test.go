// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package timedomain

import "testing"

func TestAddSecondsRollsOverMonthPerCalendar(t *testing.T) {
	d := Date{Year: 2019, Month: 2, Day: 28, Hour: 12}
	cases := []struct {
		cal  Calendar
		want Date
	}{
		{Gregorian, Date{Year: 2019, Month: 3, Day: 1, Hour: 12}},
		{NoLeap, Date{Year: 2019, Month: 3, Day: 1, Hour: 12}},
		{Days360, Date{Year: 2019, Month: 2, Day: 29, Hour: 12}},
	}
	for _, c := range cases {
		if got := AddSeconds(c.cal, d, 86400); got != c.want {
			t.Errorf("%s: AddSeconds = %v, want %v", c.cal, got, c.want)
		}
	}
}

func TestAddSecondsHandlesGregorianLeapDay(t *testing.T) {
	d := Date{Year: 2020, Month: 2, Day: 28}
	if got := AddSeconds(Gregorian, d, 86400); got != (Date{Year: 2020, Month: 2, Day: 29}) {
		t.Fatalf("2020 is a leap year: got %v", got)
	}
	if got := AddSeconds(NoLeap, d, 86400); got != (Date{Year: 2020, Month: 3, Day: 1}) {
		t.Fatalf("noleap has no Feb 29: got %v", got)
	}
}

func TestSecondsBetweenIsInverseOfAddSeconds(t *testing.T) {
	start := Date{Year: 2019, Month: 1, Day: 1, Hour: 9}
	for _, cal := range []Calendar{Gregorian, NoLeap, Days360} {
		for _, secs := range []int64{0, 3600, 86400, 16 * 86400, 365 * 86400} {
			end := AddSeconds(cal, start, secs)
			if got := SecondsBetween(cal, start, end); got != secs {
				t.Errorf("%s: SecondsBetween(start, start+%ds) = %d", cal, secs, got)
			}
		}
	}
}

func TestSecondsBetweenIsNegativeWhenReversed(t *testing.T) {
	a := Date{Year: 2019, Month: 1, Day: 1}
	b := Date{Year: 2019, Month: 1, Day: 3}
	if got := SecondsBetween(Gregorian, b, a); got != -2*86400 {
		t.Fatalf("SecondsBetween(b, a) = %d, want %d", got, -2*86400)
	}
}

func TestAlignsRequiresSameCalendarWindowAndDivisibleSteps(t *testing.T) {
	start := Date{Year: 2019, Month: 1, Day: 1}
	end := Date{Year: 2019, Month: 1, Day: 17}
	daily, err := New(Gregorian, start, end, 86400)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hourly, err := New(Gregorian, start, end, 3600)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !daily.Aligns(hourly) {
		t.Fatalf("1 day and 1 hour over the same window must align")
	}
	sevenHourly, err := New(Gregorian, start, AddSeconds(Gregorian, start, 16*7*3600), 7*3600)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if daily.Aligns(sevenHourly) {
		t.Fatalf("different windows must not align")
	}
	noleapDaily, err := New(NoLeap, start, end, 86400)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if daily.Aligns(noleapDaily) {
		t.Fatalf("different calendars must not align")
	}
}

func TestNewRejectsNonIntegralSpan(t *testing.T) {
	start := Date{Year: 2019, Month: 1, Day: 1}
	end := Date{Year: 2019, Month: 1, Day: 2, Hour: 1}
	if _, err := New(Gregorian, start, end, 86400); err == nil {
		t.Fatalf("expected a ConfigError for a span that is not a step multiple")
	}
}

func TestBasePeriodAndFastestStep(t *testing.T) {
	start := Date{Year: 2019, Month: 1, Day: 1}
	end := Date{Year: 2019, Month: 1, Day: 13}
	daily, _ := New(Gregorian, start, end, 86400)
	threeDaily, _ := New(Gregorian, start, end, 3*86400)
	fourDaily, _ := New(Gregorian, start, end, 4*86400)

	if got := BasePeriod(daily, threeDaily, fourDaily); got != 12*86400 {
		t.Fatalf("BasePeriod = %d, want %d", got, 12*86400)
	}
	if got := FastestStep(threeDaily, daily, fourDaily); got != 86400 {
		t.Fatalf("FastestStep = %d, want 86400", got)
	}
	if got := fourDaily.Ratio(86400); got != 4 {
		t.Fatalf("Ratio = %d, want 4", got)
	}
}

func TestParseDateRoundTrip(t *testing.T) {
	d := Date{Year: 2019, Month: 1, Day: 17, Hour: 9}
	got, err := ParseDate(d.String())
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got != d {
		t.Fatalf("round trip = %v, want %v", got, d)
	}
}
