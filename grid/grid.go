// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package grid implements the rectilinear spatial domain: cell
// bounds, optional mask and flow direction, cached cell areas, and the
// sparse remapping weights used to move values between two Grids of
// different resolution.
package grid

import (
	"math"

	"github.com/cpmech/gosl/la"
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// EarthRadiusMetres is the sphere radius used for cell-area calculations
// on lat-lon grids, matching the WGS84 mean radius.
const EarthRadiusMetres = 6371000.0

// Grid is a rectilinear 2-D spatial domain: Ny x Nx cells with monotone
// bounds in both axes, an optional land/sea Mask, and an optional
// FlowDirection field for routing. Immutable once built.
type Grid struct {
	Ny, Nx int

	// YBounds has Ny+1 entries, XBounds has Nx+1 entries: cell i spans
	// [YBounds[i], YBounds[i+1]).
	YBounds []float64
	XBounds []float64

	// Mask[i][j] is true where the cell is active (land); nil means no
	// mask (every cell active).
	Mask [][]bool

	// FlowDirection[i][j] gives the (di,dj) offset to the downstream
	// neighbour; a cell with DI==0 && DJ==0 is a sink.
	FlowDirection [][]FlowTarget

	area    [][]float64 // cached cell_area, m^2
	areaSet bool        // true if area was supplied rather than computed
}

// FlowTarget is a routing offset, or OutOfGrid for an explicit outflow.
type FlowTarget struct {
	DI, DJ    int
	OutOfGrid bool
}

// New validates bounds and builds a Grid. Mismatched shapes or
// non-monotone bounds are ConfigErrors.
func New(yBounds, xBounds []float64, mask [][]bool, flow [][]FlowTarget) (*Grid, error) {
	ny, nx := len(yBounds)-1, len(xBounds)-1
	if ny <= 0 || nx <= 0 {
		return nil, unifhyerr.NewConfigError("grid bounds must enclose at least one cell, got ny=%d nx=%d", ny, nx)
	}
	if err := checkMonotone(yBounds); err != nil {
		return nil, unifhyerr.NewConfigError("y bounds not monotone: %v", err)
	}
	if err := checkMonotone(xBounds); err != nil {
		return nil, unifhyerr.NewConfigError("x bounds not monotone: %v", err)
	}
	if mask != nil {
		if len(mask) != ny || (ny > 0 && len(mask[0]) != nx) {
			return nil, unifhyerr.NewConfigError("mask shape (%d,%d) does not match grid shape (%d,%d)", len(mask), len0(mask), ny, nx)
		}
	}
	if flow != nil {
		if len(flow) != ny || (ny > 0 && len(flow[0]) != nx) {
			return nil, unifhyerr.NewConfigError("flow_direction shape does not match grid shape (%d,%d)", ny, nx)
		}
		for i := 0; i < ny; i++ {
			for j := 0; j < nx; j++ {
				f := flow[i][j]
				if f.OutOfGrid {
					continue
				}
				ti, tj := i+f.DI, j+f.DJ
				if ti < 0 || ti >= ny || tj < 0 || tj >= nx {
					return nil, unifhyerr.NewConfigError("flow_direction at (%d,%d) targets out-of-grid cell (%d,%d) without OutOfGrid flag", i, j, ti, tj)
				}
			}
		}
	}
	g := &Grid{Ny: ny, Nx: nx, YBounds: yBounds, XBounds: xBounds, Mask: mask, FlowDirection: flow}
	g.computeAreas()
	return g, nil
}

func len0(mask [][]bool) int {
	if len(mask) == 0 {
		return 0
	}
	return len(mask[0])
}

func checkMonotone(bounds []float64) error {
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return unifhyerr.NewConfigError("bound %d (%v) does not exceed bound %d (%v)", i, bounds[i], i-1, bounds[i-1])
		}
	}
	return nil
}

// computeAreas derives cell_area from bounds on the sphere of
// EarthRadiusMetres: area = R^2 * |sin(lat1)-sin(lat0)| * |lon1-lon0|
// (radians), the standard rectilinear lat-lon cell-area formula.
func (g *Grid) computeAreas() {
	g.area = la.MatAlloc(g.Ny, g.Nx)
	for i := 0; i < g.Ny; i++ {
		lat0 := g.YBounds[i] * math.Pi / 180
		lat1 := g.YBounds[i+1] * math.Pi / 180
		dSinLat := math.Abs(math.Sin(lat1) - math.Sin(lat0))
		for j := 0; j < g.Nx; j++ {
			dLon := math.Abs(g.XBounds[j+1]-g.XBounds[j]) * math.Pi / 180
			g.area[i][j] = EarthRadiusMetres * EarthRadiusMetres * dSinLat * dLon
		}
	}
}

// SetArea overrides the computed cell_area with a user-supplied field.
// Shape must match the grid.
func (g *Grid) SetArea(area [][]float64) error {
	if len(area) != g.Ny || (g.Ny > 0 && len(area[0]) != g.Nx) {
		return unifhyerr.NewShapeError("area field shape does not match grid shape (%d,%d)", g.Ny, g.Nx)
	}
	for i := range area {
		for j := range area[i] {
			if area[i][j] < 0 {
				return unifhyerr.NewConfigError("negative area at (%d,%d): %v", i, j, area[i][j])
			}
		}
	}
	g.area = area
	g.areaSet = true
	return nil
}

// CellArea returns the cached per-cell area in square metres.
func (g *Grid) CellArea() [][]float64 { return g.area }

// TotalArea returns the sum of all unmasked cell areas.
func (g *Grid) TotalArea() float64 {
	var total float64
	for i := 0; i < g.Ny; i++ {
		for j := 0; j < g.Nx; j++ {
			if g.active(i, j) {
				total += g.area[i][j]
			}
		}
	}
	return total
}

func (g *Grid) active(i, j int) bool {
	if g.Mask == nil {
		return true
	}
	return g.Mask[i][j]
}

// Shape returns (Ny, Nx).
func (g *Grid) Shape() (int, int) { return g.Ny, g.Nx }
