// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package recorder implements the per-component record accumulation and
// flush subsystem: named variables are folded into time-window
// accumulators under one or more aggregation methods, and completed
// windows are buffered in slices before an atomic flush to a Sink.
package recorder

import (
	"strconv"

	"github.com/ctessum/unit"
	"github.com/unifhy-org/unifhy/unifhyerr"
	"gonum.org/v1/gonum/floats"
)

// Method is a canonical aggregation method. Config-supplied
// synonyms are canonicalised to these via ParseMethod.
type Method string

const (
	Mean  Method = "mean"
	Sum   Method = "sum"
	Min   Method = "min"
	Max   Method = "max"
	Point Method = "point"
)

// synonyms maps every accepted config spelling to its canonical Method.
var synonyms = map[string]Method{
	"mean": Mean, "average": Mean,
	"sum": Sum, "cumulative": Sum,
	"min": Min, "minimum": Min,
	"max": Max, "maximum": Max,
	"point": Point, "instantaneous": Point,
}

// ParseMethod canonicalises a config-supplied method name.
func ParseMethod(s string) (Method, error) {
	m, ok := synonyms[s]
	if !ok {
		return "", unifhyerr.NewConfigError("unknown record method %q", s)
	}
	return m, nil
}

// Spec is one requested accumulator: record `Variable` over `Window`
// ticks (of the owning component's own Δt) under `Method`.
type Spec struct {
	Variable string
	Window   int // number of component ticks the window spans
	Method   Method
	Units    unit.Dimensions
}

// accumulator folds one Spec's values across a window.
type accumulator struct {
	spec    Spec
	size    int
	acc     []float64
	seen    int
	started bool
}

func newAccumulator(spec Spec, size int) *accumulator {
	return &accumulator{spec: spec, size: size}
}

func (a *accumulator) fold(v []float64) {
	if !a.started {
		// size follows the folded variable, not the grid alone: a state
		// with division axes carries one value per (cell, division).
		a.size = len(v)
		a.acc = make([]float64, a.size)
		a.started = true
		a.seen = 0
	}
	switch a.spec.Method {
	case Sum, Mean:
		floats.Add(a.acc, v)
	case Min:
		if a.seen == 0 {
			copy(a.acc, v)
		} else {
			for i, x := range v {
				if x < a.acc[i] {
					a.acc[i] = x
				}
			}
		}
	case Max:
		if a.seen == 0 {
			copy(a.acc, v)
		} else {
			for i, x := range v {
				if x > a.acc[i] {
					a.acc[i] = x
				}
			}
		}
	case Point:
		copy(a.acc, v)
	}
	a.seen++
}

// closed reports whether the window has accumulated enough ticks to
// close.
func (a *accumulator) closed() bool {
	return a.started && a.seen >= a.spec.Window
}

// flush returns the closed window's reduced value and resets the
// accumulator for the next window.
func (a *accumulator) flush() []float64 {
	out := make([]float64, a.size)
	if a.spec.Method == Mean {
		copy(out, a.acc)
		floats.Scale(1/float64(a.seen), out)
	} else {
		copy(out, a.acc)
	}
	a.started = false
	a.seen = 0
	return out
}

// Slice is one completed window's record, ready to be written out.
type Slice struct {
	Component  string
	Simulation string
	Variable   string
	Method     Method
	Window     int
	Units      unit.Dimensions
	Tag        string // "run" or "spinup-N"
	Datetime   string // window end-time
	Values     []float64
}

// Sink is the persistent-storage half of a Recorder. A failed Flush is
// fatal.
type Sink interface {
	Flush(slices []Slice) error
}

// Recorder owns every declared Spec's accumulator for one component and
// buffers completed windows until M of them have accumulated, then
// flushes atomically.
type Recorder struct {
	component  string
	simulation string
	sink       Sink
	bufferSize int // M

	accs    map[string]*accumulator // keyed by Variable/Method/Window
	pending []Slice
}

// New builds a Recorder for one component's declared Specs.
func New(component, simulation string, specs []Spec, cellCount int, sink Sink, bufferSize int) *Recorder {
	if bufferSize < 1 {
		bufferSize = 1
	}
	r := &Recorder{component: component, simulation: simulation, sink: sink, bufferSize: bufferSize, accs: map[string]*accumulator{}}
	for _, s := range specs {
		r.accs[key(s)] = newAccumulator(s, cellCount)
	}
	return r
}

func key(s Spec) string {
	return s.Variable + "/" + string(s.Method) + "/" + strconv.Itoa(s.Window)
}

// Fold folds one tick's value of a declared variable into every
// accumulator that tracks it. datetime stamps any window this tick
// closes with its end-time.
func (r *Recorder) Fold(variable string, value []float64, tag, datetime string) error {
	var flushed []Slice
	for _, acc := range r.accs {
		if acc.spec.Variable != variable {
			continue
		}
		acc.fold(value)
		if acc.closed() {
			flushed = append(flushed, Slice{
				Component:  r.component,
				Simulation: r.simulation,
				Variable:   acc.spec.Variable,
				Method:     acc.spec.Method,
				Window:     acc.spec.Window,
				Units:      acc.spec.Units,
				Tag:        tag,
				Datetime:   datetime,
				Values:     acc.flush(),
			})
		}
	}
	if len(flushed) == 0 {
		return nil
	}
	r.pending = append(r.pending, flushed...)
	if len(r.pending) >= r.bufferSize {
		return r.flushPending()
	}
	return nil
}

func (r *Recorder) flushPending() error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.sink.Flush(r.pending); err != nil {
		return unifhyerr.NewIOError("recorder flush for "+r.component, err)
	}
	r.pending = nil
	return nil
}

// Close flushes any remaining buffered (but already window-closed)
// slices. Partial (not-yet-closed) windows are never emitted.
func (r *Recorder) Close() error {
	return r.flushPending()
}

// ResetOnCycleBoundary clears every accumulator without emitting a
// partial window, for spin-up cycle boundaries.
func (r *Recorder) ResetOnCycleBoundary() {
	for _, acc := range r.accs {
		acc.started = false
		acc.seen = 0
	}
}

// Snapshot captures every accumulator's in-flight contents plus the
// completed-but-unflushed slices still waiting for the buffer to fill,
// for checkpointing.
type Snapshot struct {
	Accumulators map[string]AccumulatorSnapshot
	Pending      []Slice
}

// AccumulatorSnapshot is one accumulator's serializable state.
type AccumulatorSnapshot struct {
	Acc     []float64
	Seen    int
	Started bool
}

// Snapshot returns the Recorder's current checkpointable state.
func (r *Recorder) Snapshot() Snapshot {
	snap := Snapshot{Accumulators: map[string]AccumulatorSnapshot{}, Pending: append([]Slice(nil), r.pending...)}
	for k, acc := range r.accs {
		snap.Accumulators[k] = AccumulatorSnapshot{
			Acc:     append([]float64(nil), acc.acc...),
			Seen:    acc.seen,
			Started: acc.started,
		}
	}
	return snap
}

// Restore reinstates a Recorder's accumulators from a checkpoint
// Snapshot.
func (r *Recorder) Restore(snap Snapshot) {
	for k, as := range snap.Accumulators {
		if acc, ok := r.accs[k]; ok {
			acc.acc = append([]float64(nil), as.Acc...)
			acc.seen = as.Seen
			acc.started = as.Started
			if as.Started {
				acc.size = len(as.Acc)
			}
		}
	}
	r.pending = append([]Slice(nil), snap.Pending...)
}
