// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package timedomain

import (
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// TimeDomain is a monotone increasing sequence of N+1 timestep bounds
// enclosing N timesteps of constant length Step, all expressed in one
// Calendar.
type TimeDomain struct {
	Calendar Calendar
	Start    Date
	End      Date
	Step     int64 // seconds
	N        int
}

// New builds a TimeDomain from start, end and a constant step (seconds).
// end must equal start + N*step for an integer N.
func New(cal Calendar, start, end Date, stepSeconds int64) (*TimeDomain, error) {
	if stepSeconds <= 0 {
		return nil, unifhyerr.NewConfigError("timedomain step must be positive, got %d", stepSeconds)
	}
	total := SecondsBetween(cal, start, end)
	if total < 0 {
		return nil, unifhyerr.NewConfigError("timedomain end %s precedes start %s", end, start)
	}
	if total%stepSeconds != 0 {
		return nil, unifhyerr.NewConfigError("timedomain span %ds is not an integer multiple of step %ds", total, stepSeconds)
	}
	return &TimeDomain{Calendar: cal, Start: start, End: end, Step: stepSeconds, N: int(total / stepSeconds)}, nil
}

// Bound returns the i-th bound (0..N inclusive): Bound(0)==Start,
// Bound(N)==End.
func (t *TimeDomain) Bound(i int) Date {
	unifhyerr.Invariant(i >= 0 && i <= t.N, "timedomain bound index %d out of [0,%d]", i, t.N)
	return AddSeconds(t.Calendar, t.Start, int64(i)*t.Step)
}

// Bounds materialises the full N+1 sequence of bounds.
func (t *TimeDomain) Bounds() []Date {
	bs := make([]Date, t.N+1)
	for i := range bs {
		bs[i] = t.Bound(i)
	}
	return bs
}

// Aligns reports whether t and other may couple: same calendar, same
// start and end, and max(Δt)%min(Δt)==0.
func (t *TimeDomain) Aligns(other *TimeDomain) bool {
	if t.Calendar != other.Calendar {
		return false
	}
	if !t.Start.Equal(other.Start) || !t.End.Equal(other.End) {
		return false
	}
	lo, hi := t.Step, other.Step
	if lo > hi {
		lo, hi = hi, lo
	}
	return hi%lo == 0
}

// gcd/lcm of int64 step lengths, used to compute the coupled model's
// base period.
func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int64) int64 { return a / gcd(a, b) * b }

// BasePeriod returns lcm(Δt_i) across the given TimeDomains — the coupled
// model's natural iteration unit.
func BasePeriod(domains ...*TimeDomain) int64 {
	unifhyerr.Invariant(len(domains) > 0, "BasePeriod requires at least one TimeDomain")
	period := domains[0].Step
	for _, d := range domains[1:] {
		period = lcm(period, d.Step)
	}
	return period
}

// FastestStep returns the smallest Δt among domains — the inner clock
// tick of the coupled model.
func FastestStep(domains ...*TimeDomain) int64 {
	unifhyerr.Invariant(len(domains) > 0, "FastestStep requires at least one TimeDomain")
	min := domains[0].Step
	for _, d := range domains[1:] {
		if d.Step < min {
			min = d.Step
		}
	}
	return min
}

// Ratio returns Δt/Δt_fast, the number of inner ticks between two
// successive ticks of a component with this TimeDomain.
func (t *TimeDomain) Ratio(fastStep int64) int {
	unifhyerr.Invariant(t.Step%fastStep == 0, "step %d is not a multiple of fastest step %d", t.Step, fastStep)
	return int(t.Step / fastStep)
}
