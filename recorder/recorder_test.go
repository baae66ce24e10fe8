// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recorder

import "testing"

type memSink struct {
	flushes [][]Slice
}

func (m *memSink) Flush(slices []Slice) error {
	m.flushes = append(m.flushes, append([]Slice(nil), slices...))
	return nil
}

func TestParseMethodCanonicalisesSynonyms(t *testing.T) {
	cases := map[string]Method{
		"average": Mean, "mean": Mean,
		"cumulative": Sum, "sum": Sum,
		"instantaneous": Point,
		"minimum":       Min,
		"maximum":       Max,
	}
	for in, want := range cases {
		got, err := ParseMethod(in)
		if err != nil {
			t.Fatalf("ParseMethod(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseMethod(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseMethod("bogus"); err == nil {
		t.Fatalf("expected error for unknown method")
	}
}

func TestMeanWindowClosesAndFlushesAtBufferSize(t *testing.T) {
	sink := &memSink{}
	r := New("surf", "sim1", []Spec{{Variable: "state_a", Window: 2, Method: Mean}}, 2, sink, 1)

	if err := r.Fold("state_a", []float64{1, 1}, "run", "2019-01-02T09:00:00"); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if len(sink.flushes) != 0 {
		t.Fatalf("window should not have closed yet")
	}
	if err := r.Fold("state_a", []float64{3, 3}, "run", "2019-01-03T09:00:00"); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if len(sink.flushes) != 1 {
		t.Fatalf("expected one flush once buffer size 1 reached, got %d", len(sink.flushes))
	}
	got := sink.flushes[0][0].Values
	if got[0] != 2 || got[1] != 2 {
		t.Fatalf("expected mean [2,2], got %v", got)
	}
}

func TestClosePartialWindowIsNotEmitted(t *testing.T) {
	sink := &memSink{}
	r := New("surf", "sim1", []Spec{{Variable: "state_a", Window: 5, Method: Sum}}, 1, sink, 1)
	if err := r.Fold("state_a", []float64{1}, "run", "2019-01-02T09:00:00"); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(sink.flushes) != 0 {
		t.Fatalf("partial window must not be emitted, got %d flushes", len(sink.flushes))
	}
}
