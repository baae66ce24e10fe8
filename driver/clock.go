// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import (
	"github.com/unifhy-org/unifhy/timedomain"
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// Clock walks from Start to End in FastStep increments, the inner tick
// of the coupled model; at each tick the driver fires the set of
// components whose step divides the current tick.
type Clock struct {
	Calendar timedomain.Calendar
	Start    timedomain.Date
	End      timedomain.Date
	FastStep int64 // seconds

	nTicks int64
}

// NewClock builds a Clock over [start,end) and validates the span is an
// integer number of FastStep ticks.
func NewClock(cal timedomain.Calendar, start, end timedomain.Date, fastStep int64) (*Clock, error) {
	total := timedomain.SecondsBetween(cal, start, end)
	if total < 0 {
		return nil, unifhyerr.NewConfigError("clock end %s precedes start %s", end, start)
	}
	if total%fastStep != 0 {
		return nil, unifhyerr.NewConfigError("clock span %ds is not an integer multiple of fast step %ds", total, fastStep)
	}
	return &Clock{Calendar: cal, Start: start, End: end, FastStep: fastStep, nTicks: total / fastStep}, nil
}

// NTicks is the number of fast ticks enclosed by [Start,End). Zero when
// End equals Start: such a run produces no record rows and no dumps.
func (c *Clock) NTicks() int64 { return c.nTicks }

// At returns the datetime at fast-tick index t (0-based).
func (c *Clock) At(t int64) timedomain.Date {
	return timedomain.AddSeconds(c.Calendar, c.Start, t*c.FastStep)
}
