// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import (
	"testing"

	"github.com/unifhy-org/unifhy/checkpoint"
	"github.com/unifhy-org/unifhy/component"
	"github.com/unifhy-org/unifhy/exchanger"
	"github.com/unifhy-org/unifhy/grid"
	"github.com/unifhy-org/unifhy/recorder"
	"github.com/unifhy-org/unifhy/timedomain"
)

// incrementer is a minimal component whose sole state increases by one
// every tick, with no inwards/outwards: a component declaring neither
// must still tick successfully.
func incrementerHooks() component.Hooks {
	return component.Hooks{
		Run: func(inwards, inputs map[string][]float64, states *component.States, parameters, constants map[string]float64) (map[string][]float64, map[string][]float64, error) {
			st := states.Get("counter")
			prev := st.GetTimestep(0)
			next := st.GetTimestep(1)
			for i := range next.Elements {
				next.Elements[i] = prev.Elements[i] + 1
			}
			return map[string][]float64{}, map[string][]float64{}, nil
		},
	}
}

func buildSingleComponentDriver(t *testing.T) (*Driver, *ComponentRuntime) {
	t.Helper()
	g, err := grid.New([]float64{0, 1}, []float64{0, 1}, nil, nil)
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	desc := &component.Descriptor{
		Category: component.SurfaceLayer,
		States:   []component.StateSpec{{Name: "counter"}},
	}
	td, err := timedomain.New(timedomain.Gregorian, timedomain.Date{Year: 2019, Month: 1, Day: 1}, timedomain.Date{Year: 2019, Month: 1, Day: 3}, 86400)
	if err != nil {
		t.Fatalf("timedomain.New: %v", err)
	}
	a, err := component.New("surf", desc, incrementerHooks(), g, td, nil, nil)
	if err != nil {
		t.Fatalf("component.New: %v", err)
	}
	ex, err := exchanger.New(map[string]*component.Adapter{"surf": a}, 86400)
	if err != nil {
		t.Fatalf("exchanger.New: %v", err)
	}
	sink := &memSink{}
	rec := recorder.New("surf", "sim1", []recorder.Spec{{Variable: "counter", Window: 1, Method: recorder.Point}}, 1, sink, 1)
	cr := &ComponentRuntime{Adapter: a, Recorder: rec, Specs: []recorder.Spec{{Variable: "counter", Window: 1, Method: recorder.Point}}, Ratio: 1}

	d := New("sim1", timedomain.Gregorian, 86400, td.Start, td.End, []string{"surf"}, map[string]*ComponentRuntime{"surf": cr}, ex, checkpoint.NewMemStore(), nil)
	return d, cr
}

type memSink struct{ flushes [][]recorder.Slice }

func (m *memSink) Flush(slices []recorder.Slice) error {
	m.flushes = append(m.flushes, append([]recorder.Slice(nil), slices...))
	return nil
}

func TestSimulateTicksComponentWithNoTransfers(t *testing.T) {
	d, cr := buildSingleComponentDriver(t)
	if err := d.Simulate(0); err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if cr.LocalTick != 2 {
		t.Fatalf("expected 2 local ticks over a 2-day window at 1-day step, got %d", cr.LocalTick)
	}
	got := cr.Adapter.States().Get("counter").GetTimestep(0).Elements[0]
	if got != 2 {
		t.Fatalf("expected counter to reach 2, got %v", got)
	}
}

func TestSimulateWithEqualStartEndIsNoOp(t *testing.T) {
	d, cr := buildSingleComponentDriver(t)
	d.Start = d.End
	if err := d.Simulate(0); err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if cr.LocalTick != 0 {
		t.Fatalf("expected no ticks when start==end, got %d", cr.LocalTick)
	}
}

func TestSpinUpZeroCyclesIsNoOp(t *testing.T) {
	d, cr := buildSingleComponentDriver(t)
	if err := d.SpinUp(d.Start, d.End, 0, 0); err != nil {
		t.Fatalf("SpinUp: %v", err)
	}
	if cr.LocalTick != 0 {
		t.Fatalf("expected no ticks for 0 spin-up cycles, got %d", cr.LocalTick)
	}
	got := cr.Adapter.States().Get("counter").GetTimestep(0).Elements[0]
	if got != 0 {
		t.Fatalf("expected state unchanged by a 0-cycle spin-up, got %v", got)
	}
}

func TestDumpAndResumeReproducesFinalState(t *testing.T) {
	d, cr := buildSingleComponentDriver(t)
	if err := d.Simulate(86400); err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	want := cr.Adapter.States().Get("counter").GetTimestep(0).Elements[0]

	d2, cr2 := buildSingleComponentDriver(t)
	d2.CheckpointStore = d.CheckpointStore
	mid, err := timedomain.ParseDate("2019-01-02T00:00:00")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if err := d2.Resume("run", mid); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	got := cr2.Adapter.States().Get("counter").GetTimestep(0).Elements[0]
	if got != want {
		t.Fatalf("resumed run diverged: got %v want %v", got, want)
	}
}
