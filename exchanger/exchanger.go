// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package exchanger implements the coupling core: it buffers and
// resamples every named transfer flowing between components running on
// different space/time resolutions, enforcing the wiring, cold-start
// seeding, and one-tick-lag ordering rules of the coupled model.
package exchanger

import (
	"sort"

	"github.com/unifhy-org/unifhy/component"
	"github.com/unifhy-org/unifhy/grid"
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// Wiring is one resolved (producer -> consumer, transfer) edge.
type Wiring struct {
	Transfer string
	Producer string // component name; "" if the inward is Optional and unproduced
	Consumer string
	Method   component.AggregationMethod
}

// Exchanger holds one Buffer per resolved Wiring plus the component
// registry and cached remap weights.
type Exchanger struct {
	components map[string]*component.Adapter
	order      []string // component names in declared category order

	wirings []Wiring
	buffers map[bufferKey]*Buffer

	weightsCache map[weightsKey]*grid.Weights

	fastStep int64 // Δt_fast, seconds
}

type bufferKey struct {
	producer, consumer, transfer string
}

type weightsKey struct {
	src, dst *grid.Grid
	method   grid.Method
}

// New builds an Exchanger over the given named components, performing
// the full wiring check before returning. A WiringError aborts
// construction before any tick runs.
func New(components map[string]*component.Adapter, fastStep int64) (*Exchanger, error) {
	ex := &Exchanger{
		components:   components,
		buffers:      map[bufferKey]*Buffer{},
		weightsCache: map[weightsKey]*grid.Weights{},
		fastStep:     fastStep,
	}
	ex.order = orderedNames(components)
	if err := ex.wire(); err != nil {
		return nil, err
	}
	for _, w := range ex.wirings {
		if w.Producer == "" {
			continue
		}
		if _, err := ex.weightsFor(ex.components[w.Producer].Grid, ex.components[w.Consumer].Grid, w.Method); err != nil {
			return nil, err
		}
	}
	return ex, nil
}

// orderedNames returns component names sorted by the fixed category
// order, and alphabetically within a category (ties are not expected —
// one component per category — but a stable secondary key keeps the
// firing order reproducible regardless of Go's randomised map
// iteration).
func orderedNames(components map[string]*component.Adapter) []string {
	byCategory := map[component.Category][]string{}
	for name, a := range components {
		byCategory[a.Descriptor.Category] = append(byCategory[a.Descriptor.Category], name)
	}
	for _, names := range byCategory {
		sort.Strings(names)
	}
	var out []string
	for _, cat := range component.Order {
		out = append(out, byCategory[cat]...)
	}
	return out
}

// Order returns the fixed firing order for this model's wired
// components.
func (ex *Exchanger) Order() []string { return ex.order }

// wire resolves every declared inward against the set of components'
// outwards.
func (ex *Exchanger) wire() error {
	producersByOutward := map[string][]string{} // transfer name -> component names that produce it
	for name, a := range ex.components {
		for _, spec := range a.Descriptor.Outwards {
			if a.Descriptor.ProducesOutward(spec.Name) {
				producersByOutward[spec.Name] = append(producersByOutward[spec.Name], name)
			}
		}
	}

	for consumerName, consumer := range ex.components {
		for _, in := range consumer.Descriptor.Inwards {
			candidates := producersByOutward[in.Name]
			var matching []string
			for _, p := range candidates {
				if ex.components[p].Descriptor.Category == in.PeerCategory {
					matching = append(matching, p)
				}
			}
			switch {
			case len(matching) == 1:
				ex.addWiring(matching[0], consumerName, in)
			case len(matching) == 0:
				if in.Optional {
					ex.addWiring("", consumerName, in)
					continue
				}
				return &unifhyerr.WiringError{Kind: unifhyerr.WiringMissing, Transfer: in.Name, Consumer: consumerName, Detail: "no component of category " + string(in.PeerCategory) + " produces it"}
			default:
				return &unifhyerr.WiringError{Kind: unifhyerr.WiringAmbiguous, Transfer: in.Name, Consumer: consumerName, Detail: "multiple producers: " + joinNames(matching)}
			}
		}
	}
	return nil
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}

func (ex *Exchanger) addWiring(producer, consumer string, in component.TransferSpec) {
	ex.wirings = append(ex.wirings, Wiring{Transfer: in.Name, Producer: producer, Consumer: consumer, Method: in.Method})
	key := bufferKey{producer, consumer, in.Name}
	dstComp := ex.components[consumer]
	ny, nx := dstComp.Grid.Shape()
	ex.buffers[key] = NewBuffer(in.Method, ny*nx)
}

// weightsFor returns the cached remap Weights from src to dst for the
// given reduction method, building them on first use (New calls it
// for every wired producer/consumer pair).
func (ex *Exchanger) weightsFor(src, dst *grid.Grid, method component.AggregationMethod) (*grid.Weights, error) {
	gm := grid.AreaWeighted
	if method == component.Sum {
		gm = grid.Conservative
	}
	key := weightsKey{src, dst, gm}
	if w, ok := ex.weightsCache[key]; ok {
		return w, nil
	}
	w, err := grid.BuildWeights(src, dst, gm)
	if err != nil {
		return nil, err
	}
	ex.weightsCache[key] = w
	return w, nil
}

// Publish is called once per src component tick: it remaps value
// (on the src grid) onto every wired consumer's grid and folds it into
// that (producer,consumer,transfer) Buffer.
func (ex *Exchanger) Publish(producer, transfer string, value []float64) error {
	for _, w := range ex.wirings {
		if w.Producer != producer || w.Transfer != transfer {
			continue
		}
		srcComp := ex.components[producer]
		dstComp := ex.components[w.Consumer]
		weights, err := ex.weightsFor(srcComp.Grid, dstComp.Grid, w.Method)
		if err != nil {
			return err
		}
		remapped, err := weights.Apply(value, reduceFor(w.Method))
		if err != nil {
			return err
		}
		buf := ex.buffers[bufferKey{producer, w.Consumer, transfer}]
		buf.Fold(remapped)
	}
	return nil
}

func reduceFor(m component.AggregationMethod) grid.Reduce {
	switch m {
	case component.Sum:
		return grid.LinearReduce{NeutralIsNaN: false}
	case component.Min:
		return grid.MinMaxReduce{Max: false}
	case component.Max:
		return grid.MinMaxReduce{Max: true}
	default: // Mean, Point
		return grid.LinearReduce{NeutralIsNaN: true}
	}
}

// Read is called once per dst component tick, per declared inward. It
// returns the inward's current value, resetting the accumulator for the
// next window.
func (ex *Exchanger) Read(consumer, transfer string) ([]float64, error) {
	for _, w := range ex.wirings {
		if w.Consumer != consumer || w.Transfer != transfer {
			continue
		}
		buf := ex.buffers[bufferKey{w.Producer, consumer, transfer}]
		return buf.Read(), nil
	}
	return nil, unifhyerr.NewConfigError("no wiring found for inward %q on component %q", transfer, consumer)
}

// SeedZero seeds every buffer with a zero field of the transfer's
// units, the cold-start default: components must tolerate zero-inwards
// on the first tick of a cold start.
func (ex *Exchanger) SeedZero() {
	for key, buf := range ex.buffers {
		dstComp := ex.components[key.consumer]
		ny, nx := dstComp.Grid.Shape()
		buf.Seed(make([]float64, ny*nx))
	}
}

// SeedFrom seeds every buffer from previously saved values, e.g. an
// initial-transfers table.
func (ex *Exchanger) SeedFrom(values map[string][]float64) {
	for key, buf := range ex.buffers {
		if v, ok := values[bufferName(key)]; ok {
			buf.Seed(v)
		}
	}
}

func bufferName(key bufferKey) string {
	return key.producer + "->" + key.consumer + ":" + key.transfer
}

// Snapshot returns every buffer's current (unread) accumulator contents,
// keyed the same way SeedFrom expects, for the checkpoint subsystem.
func (ex *Exchanger) Snapshot() map[string]BufferSnapshot {
	out := map[string]BufferSnapshot{}
	for key, buf := range ex.buffers {
		out[bufferName(key)] = buf.Snapshot()
	}
	return out
}

// Restore reinstates buffer contents from a checkpoint snapshot.
func (ex *Exchanger) Restore(snap map[string]BufferSnapshot) {
	for key, buf := range ex.buffers {
		if s, ok := snap[bufferName(key)]; ok {
			buf.Restore(s)
		}
	}
}

// Wirings exposes the resolved wiring list (read-only), e.g. for
// building a model manifest.
func (ex *Exchanger) Wirings() []Wiring { return append([]Wiring(nil), ex.wirings...) }
