// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"testing"

	"github.com/unifhy-org/unifhy/component"
	"github.com/unifhy-org/unifhy/exchanger"
	"github.com/unifhy-org/unifhy/grid"
)

func buildAdapter(t *testing.T) (*component.Adapter, *grid.Grid) {
	t.Helper()
	g, err := grid.New([]float64{0, 1, 2}, []float64{0, 1}, nil, nil)
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	desc := &component.Descriptor{
		Category: component.SurfaceLayer,
		States:   []component.StateSpec{{Name: "state_a"}},
	}
	a, err := component.New("surf", desc, component.Hooks{}, g, nil, nil, nil)
	if err != nil {
		t.Fatalf("component.New: %v", err)
	}
	return a, g
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	a, _ := buildAdapter(t)
	a.States().Get("state_a").GetTimestep(0).Set(7, 0, 0)
	a.SetShelf("notes", []byte("hello"))

	ex, err := exchanger.New(map[string]*component.Adapter{"surf": a}, 86400)
	if err != nil {
		t.Fatalf("exchanger.New: %v", err)
	}

	frame := Capture("sim1", "run", "2026-01-01T00:00:00", map[string]*component.Adapter{"surf": a}, map[string]int{"surf": 3}, ex, nil)
	raw, err := Encode(frame)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Simulation != "sim1" || decoded.Tag != "run" {
		t.Fatalf("unexpected decoded frame: %+v", decoded)
	}
	if string(decoded.Components["surf"].Shelf["notes"]) != "hello" {
		t.Fatalf("shelf contents did not round-trip")
	}
	if decoded.Components["surf"].States["state_a"].Ring[0][0] != 7 {
		t.Fatalf("state contents did not round-trip")
	}
	if decoded.Components["surf"].Tick != 3 {
		t.Fatalf("tick count did not round-trip: got %d", decoded.Components["surf"].Tick)
	}
}

func TestMemStoreLatestRespectsAtBound(t *testing.T) {
	m := NewMemStore()
	_ = m.Write(Frame{FormatVersion: FrameFormatVersion, Tag: "run", Datetime: "2026-01-01T00:00:00"})
	_ = m.Write(Frame{FormatVersion: FrameFormatVersion, Tag: "run", Datetime: "2026-01-03T00:00:00"})

	f, ok, err := m.Latest("run", "2026-01-02T00:00:00")
	if err != nil || !ok {
		t.Fatalf("expected a match, got ok=%v err=%v", ok, err)
	}
	if f.Datetime != "2026-01-01T00:00:00" {
		t.Fatalf("expected the earlier frame, got %s", f.Datetime)
	}
}
