// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package grid

import "github.com/unifhy-org/unifhy/unifhyerr"

// RouteResult holds the per-cell mass routed to each cell's downstream
// neighbour plus the mass that left the grid this step, as two flattened
// (row-major) fields and a scalar sink total.
type RouteResult struct {
	RoutedIn []float64 // [Ny*Nx] mass arriving at each cell from its upstream neighbours
	Leaving  []float64 // [Ny*Nx] mass leaving each cell toward its downstream neighbour
	Sink     float64   // mass routed to sinks (self-pointing or out-of-grid cells)
}

// Route moves flux_per_area*area*Δt of mass downstream by one cell along
// FlowDirection and returns (routed_in, leaving); cells pointing at
// themselves or out of the grid emit to Sink rather than being lost
// silently.
func (g *Grid) Route(fluxPerArea []float64, dtSeconds float64) (*RouteResult, error) {
	if g.FlowDirection == nil {
		return nil, unifhyerr.NewConfigError("grid has no flow_direction field; route() requires one")
	}
	n := g.Ny * g.Nx
	if len(fluxPerArea) != n {
		return nil, unifhyerr.NewShapeError("route() flux_per_area length %d does not match grid size %d", len(fluxPerArea), n)
	}
	res := &RouteResult{RoutedIn: make([]float64, n), Leaving: make([]float64, n)}
	for i := 0; i < g.Ny; i++ {
		for j := 0; j < g.Nx; j++ {
			idx := i*g.Nx + j
			mass := fluxPerArea[idx] * g.area[i][j] * dtSeconds
			res.Leaving[idx] = mass
			f := g.FlowDirection[i][j]
			if f.OutOfGrid || (f.DI == 0 && f.DJ == 0) {
				res.Sink += mass
				continue
			}
			ti, tj := i+f.DI, j+f.DJ
			res.RoutedIn[ti*g.Nx+tj] += mass
		}
	}
	return res, nil
}
