// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grid

import (
	"math"
	"testing"
)

func uniformBounds(lo, hi float64, n int) []float64 {
	b := make([]float64, n+1)
	step := (hi - lo) / float64(n)
	for i := range b {
		b[i] = lo + float64(i)*step
	}
	return b
}

// newTestGrid builds a 4x3 lat-lon grid: extent [51,55]x[-2,1], 1
// degree resolution (or finer when res < 1).
func newTestGrid(t *testing.T, res float64) *Grid {
	t.Helper()
	ny := int(4 / res)
	nx := int(3 / res)
	g, err := New(uniformBounds(51, 55, ny), uniformBounds(-2, 1, nx), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestNewRejectsNonMonotoneBounds(t *testing.T) {
	_, err := New([]float64{51, 50, 52}, []float64{-2, -1, 0}, nil, nil)
	if err == nil {
		t.Fatalf("expected ConfigError for non-monotone bounds")
	}
}

func TestNewRejectsMismatchedMaskShape(t *testing.T) {
	_, err := New([]float64{51, 52, 53}, []float64{-2, -1, 0}, [][]bool{{true}}, nil)
	if err == nil {
		t.Fatalf("expected ConfigError for mismatched mask shape")
	}
}

func TestAreaWeightedMeanPreservesConstantField(t *testing.T) {
	// area-weighted mean remap of a constant field must return the same
	// constant on unmasked destination cells.
	src := newTestGrid(t, 0.5)
	dst := newTestGrid(t, 1)
	w, err := BuildWeights(src, dst, AreaWeighted)
	if err != nil {
		t.Fatalf("BuildWeights: %v", err)
	}
	in := make([]float64, src.Ny*src.Nx)
	for i := range in {
		in[i] = 7.0
	}
	out, err := w.Apply(in, LinearReduce{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for i, v := range out {
		if math.Abs(v-7.0) > 1e-9 {
			t.Fatalf("cell %d: expected 7.0, got %v", i, v)
		}
	}
}

func TestConservativeRemapPreservesMass(t *testing.T) {
	src := newTestGrid(t, 1)
	dst := newTestGrid(t, 0.5) // finer destination
	w, err := BuildWeights(src, dst, Conservative)
	if err != nil {
		t.Fatalf("BuildWeights: %v", err)
	}
	in := make([]float64, src.Ny*src.Nx)
	for i := range in {
		in[i] = float64(i + 1)
	}
	ok, totalSrc, totalDst := w.ConservesMass(in, 1e-6)
	if !ok {
		t.Fatalf("mass not conserved: src=%v dst=%v", totalSrc, totalDst)
	}
}

func TestRouteEmitsToSinkForSelfPointingCell(t *testing.T) {
	g, err := New([]float64{0, 1, 2}, []float64{0, 1, 2}, nil, [][]FlowTarget{
		{{0, 0, false}, {1, 0, false}},
		{{0, 0, false}, {0, 0, false}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	flux := []float64{1, 1, 1, 1}
	res, err := g.Route(flux, 1)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if res.Sink <= 0 {
		t.Fatalf("expected nonzero sink from self-pointing cell, got %v", res.Sink)
	}
}
