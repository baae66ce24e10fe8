// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package component

import (
	"math"

	"github.com/unifhy-org/unifhy/dataset"
	"github.com/unifhy-org/unifhy/grid"
	"github.com/unifhy-org/unifhy/timedomain"
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// New builds an Adapter, resolving division axes against the supplied
// constants and allocating each declared State's ring buffer.
func New(name string, desc *Descriptor, hooks Hooks, g *grid.Grid, td *timedomain.TimeDomain, parameters, constants map[string]float64) (*Adapter, error) {
	a := &Adapter{Name: name, Descriptor: desc, Hooks: hooks, Grid: g, TimeDomain: td, Parameters: parameters, Constants: constants}
	for _, p := range desc.Parameters {
		v, ok := parameters[p.Name]
		if !ok {
			continue
		}
		if p.HasRange && (v < p.Min || v > p.Max) {
			return nil, unifhyerr.NewConfigError("parameter %q = %v outside valid range [%v,%v]", p.Name, v, p.Min, p.Max)
		}
	}
	a.states = NewStates()
	ny, nx := g.Shape()
	for _, st := range desc.States {
		shape := []int{ny, nx}
		for _, div := range st.Divisions {
			n := div.Literal
			if div.ConstantName != "" {
				v, ok := constants[div.ConstantName]
				if !ok {
					return nil, unifhyerr.NewConfigError("state %q division references unknown constant %q", st.Name, div.ConstantName)
				}
				n = int(v)
			}
			if n <= 0 {
				return nil, unifhyerr.NewConfigError("state %q resolved a non-positive division size %d", st.Name, n)
			}
			shape = append(shape, n)
		}
		a.states.Declare(st, shape)
	}
	return a, nil
}

// States exposes the adapter's state collection to callers (exchanger,
// checkpoint) that need direct access outside of Run.
func (a *Adapter) States() *States { return a.states }

// Initialise invokes Hooks.Initialise with the adapter's states,
// parameters and constants.
func (a *Adapter) Initialise() error {
	if a.Hooks.Initialise == nil {
		return nil
	}
	return a.Hooks.Initialise(a.states, a.Parameters, a.Constants)
}

// Finalise invokes Hooks.Finalise.
func (a *Adapter) Finalise() error {
	if a.Hooks.Finalise == nil {
		return nil
	}
	return a.Hooks.Finalise(a.states, a.Parameters, a.Constants)
}

// StagedInputs is the set of input slices assembled for one Run call,
// already sliced at the current tick / climatology bucket / passed
// through for static inputs.
type StagedInputs map[string][]float64

// StageInputs assembles StagedInputs from the adapter's declared Inputs
// against a dataset.Store, the current dynamic tick index, and the
// current calendar datetime for climatologic buckets.
func (a *Adapter) StageInputs(store dataset.Store, tick int, cal timedomain.Calendar, now timedomain.Date) (StagedInputs, error) {
	out := StagedInputs{}
	for _, in := range a.Descriptor.Inputs {
		f, err := store.Field(in.Name)
		if err != nil {
			return nil, unifhyerr.NewIOError("stage input "+in.Name, err)
		}
		switch in.Kind {
		case InputStatic:
			out[in.Name] = f.StaticSlice()
		case InputDynamic:
			out[in.Name] = f.DynamicSlice(tick)
		case InputClimatologic:
			out[in.Name] = f.ClimatologicSlice(in.Frequency, cal, now)
		}
	}
	return out, nil
}

// Run invokes Hooks.Run and validates the result against the component's
// declared outwards/outputs: every declared name must be present
// and of expected shape, and a NaN in a cell the land/sea mask marks
// valid is a ComponentError. The mask parameter may be nil (no masking).
func (a *Adapter) Run(inwards map[string][]float64, inputs StagedInputs, mask [][]bool) (outwards, outputs map[string][]float64, err error) {
	if a.Hooks.Run == nil {
		return map[string][]float64{}, map[string][]float64{}, nil
	}
	outwards, outputs, err = a.Hooks.Run(inwards, inputs, a.states, a.Parameters, a.Constants)
	if err != nil {
		return nil, nil, &unifhyerr.ComponentError{Phase: unifhyerr.PhaseRun, Component: a.Name, Cause: err}
	}
	ny, nx := a.Grid.Shape()
	for _, spec := range a.Descriptor.Outwards {
		if !a.Descriptor.ProducesOutward(spec.Name) {
			continue
		}
		v, ok := outwards[spec.Name]
		if !ok {
			return nil, nil, &unifhyerr.ComponentError{Phase: unifhyerr.PhaseRun, Component: a.Name, Cause: unifhyerr.NewShapeError("declared outward %q missing from run() result", spec.Name)}
		}
		if err := validateField(spec.Name, v, ny, nx, mask); err != nil {
			return nil, nil, &unifhyerr.ComponentError{Phase: unifhyerr.PhaseRun, Component: a.Name, Cause: err}
		}
	}
	for _, spec := range a.Descriptor.Outputs {
		v, ok := outputs[spec.Name]
		if !ok {
			return nil, nil, &unifhyerr.ComponentError{Phase: unifhyerr.PhaseRun, Component: a.Name, Cause: unifhyerr.NewShapeError("declared output %q missing from run() result", spec.Name)}
		}
		if err := validateField(spec.Name, v, ny, nx, mask); err != nil {
			return nil, nil, &unifhyerr.ComponentError{Phase: unifhyerr.PhaseRun, Component: a.Name, Cause: err}
		}
	}
	a.states.AdvanceAll()
	return outwards, outputs, nil
}

func validateField(name string, v []float64, ny, nx int, mask [][]bool) error {
	if len(v) != ny*nx {
		return unifhyerr.NewShapeError("%q has length %d, expected grid size %d", name, len(v), ny*nx)
	}
	if mask == nil {
		return nil
	}
	for i := 0; i < ny; i++ {
		for j := 0; j < nx; j++ {
			if mask[i][j] && math.IsNaN(v[i*nx+j]) {
				return unifhyerr.NewShapeError("%q produced NaN at valid cell (%d,%d)", name, i, j)
			}
		}
	}
	return nil
}
