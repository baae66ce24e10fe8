// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dummy provides the three arithmetic-only components used to
// exercise the coupling engine end to end: a surfacelayer
// that mixes driving data with a fed-back transfer, a subsurface that
// adds its own state to it and feeds it back, and an openwater that turns an upstream transfer
// into a recorded output. None of the three integrates anything
// physical; each advances a pair of states by a fixed increment so a
// caller can assert exact expected values after N ticks.
package dummy

import (
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/fun/dbf"
	"gonum.org/v1/gonum/floats"

	"github.com/unifhy-org/unifhy/component"
)

// cte evaluates a constant through gosl/fun's named-function factory: a
// "cte" fun.TimeSpace ignores its (t, x) arguments and always returns
// its single parameter.
func cte(value float64) float64 {
	f, err := fun.New("cte", dbf.Params{&dbf.P{N: "c", V: value}})
	if err != nil {
		return value
	}
	return f.F(0, nil)
}

// stepState advances a declared state by delta at every cell, writing
// the result into the ring's next slot and returning it.
func stepState(states *component.States, name string, delta float64) []float64 {
	st := states.Get(name)
	next := st.GetTimestep(1)
	copy(next.Elements, st.GetTimestep(0).Elements)
	floats.AddConst(delta, next.Elements)
	return next.Elements
}

// SurfaceLayer is the upstream dummy: it produces transfer_i and
// transfer_j from driving data, its own states, and the one-tick-lagged
// transfer_l fed back from Subsurface. The surfacelayer fires first in
// the tick order, so transfer_l is necessarily last tick's value, zero
// on a cold start.
func SurfaceLayer() (*component.Descriptor, component.Hooks) {
	desc := &component.Descriptor{
		Category: component.SurfaceLayer,
		Inwards: []component.TransferSpec{
			{Name: "transfer_l", Direction: component.Inward, PeerCategory: component.Subsurface, Method: component.Sum, Optional: true},
		},
		Outwards: []component.TransferSpec{
			{Name: "transfer_i", Direction: component.Outward, Method: component.Sum},
			{Name: "transfer_j", Direction: component.Outward, Method: component.Mean},
		},
		Inputs: []component.InputSpec{
			{Name: "driving_a", Kind: component.InputDynamic},
			{Name: "driving_b", Kind: component.InputDynamic},
		},
		Constants: []component.ConstantSpec{
			{Name: "ancillary_c", Default: 1},
		},
		States: []component.StateSpec{
			{Name: "state_a"},
			{Name: "state_b"},
		},
	}
	hooks := component.Hooks{
		Run: func(inwards, inputs map[string][]float64, states *component.States, parameters, constants map[string]float64) (map[string][]float64, map[string][]float64, error) {
			ancillary := cte(constants["ancillary_c"])

			newA := stepState(states, "state_a", 1)
			newB := stepState(states, "state_b", 2)

			transferI := make([]float64, len(newA))
			copy(transferI, inputs["driving_a"])
			floats.Add(transferI, inputs["driving_b"])
			floats.Add(transferI, inwards["transfer_l"])
			floats.AddScaled(transferI, ancillary, newA)

			transferJ := append([]float64(nil), newB...)

			return map[string][]float64{"transfer_i": transferI, "transfer_j": transferJ}, map[string][]float64{}, nil
		},
	}
	return desc, hooks
}

// Subsurface returns transfer_i plus its own new state_a to SurfaceLayer
// as transfer_l, advancing its own states identically to the other two
// dummies.
func Subsurface() (*component.Descriptor, component.Hooks) {
	desc := &component.Descriptor{
		Category: component.Subsurface,
		Inwards: []component.TransferSpec{
			{Name: "transfer_i", Direction: component.Inward, PeerCategory: component.SurfaceLayer, Method: component.Sum},
		},
		Outwards: []component.TransferSpec{
			{Name: "transfer_l", Direction: component.Outward, Method: component.Sum},
		},
		States: []component.StateSpec{
			{Name: "state_a"},
			{Name: "state_b"},
		},
	}
	hooks := component.Hooks{
		Run: func(inwards, inputs map[string][]float64, states *component.States, parameters, constants map[string]float64) (map[string][]float64, map[string][]float64, error) {
			newA := stepState(states, "state_a", 1)
			stepState(states, "state_b", 2)

			transferL := make([]float64, len(newA))
			copy(transferL, inwards["transfer_i"])
			floats.Add(transferL, newA)

			return map[string][]float64{"transfer_l": transferL}, map[string][]float64{}, nil
		},
	}
	return desc, hooks
}

// OpenWater consumes transfer_j and produces the recorded output_x =
// parameter_c*transfer_j + constant_c, while advancing
// its own states identically to the other two dummies.
func OpenWater() (*component.Descriptor, component.Hooks) {
	desc := &component.Descriptor{
		Category: component.OpenWater,
		Inwards: []component.TransferSpec{
			{Name: "transfer_j", Direction: component.Inward, PeerCategory: component.SurfaceLayer, Method: component.Mean},
		},
		Parameters: []component.ParameterSpec{
			{Name: "parameter_c"},
		},
		Constants: []component.ConstantSpec{
			{Name: "constant_c", Default: 0},
		},
		States: []component.StateSpec{
			{Name: "state_a"},
			{Name: "state_b"},
		},
		Outputs: []component.OutputSpec{
			{Name: "output_x"},
		},
	}
	hooks := component.Hooks{
		Run: func(inwards, inputs map[string][]float64, states *component.States, parameters, constants map[string]float64) (map[string][]float64, map[string][]float64, error) {
			stepState(states, "state_a", 1)
			stepState(states, "state_b", 2)

			parameterC := parameters["parameter_c"]
			constantC := cte(constants["constant_c"])

			outputX := append([]float64(nil), inwards["transfer_j"]...)
			floats.Scale(parameterC, outputX)
			floats.AddConst(constantC, outputX)

			return map[string][]float64{}, map[string][]float64{"output_x": outputX}, nil
		},
	}
	return desc, hooks
}

// Registry returns the three dummy classes under the keys a
// configuration's component.class field would name them by.
func Registry() map[string]func() (*component.Descriptor, component.Hooks) {
	return map[string]func() (*component.Descriptor, component.Hooks){
		"dummy.surfacelayer": SurfaceLayer,
		"dummy.subsurface":   Subsurface,
		"dummy.openwater":    OpenWater,
	}
}
