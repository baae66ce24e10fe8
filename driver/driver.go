// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package driver implements the Clock & Driver: it
// walks a shared simulation window at the fastest component's Δt,
// interleaves every due component's run call in the fixed category order,
// mediates inwards/outwards through the Exchanger, folds recorded
// variables into each component's Recorder, and triggers checkpoint dumps
// at a configured frequency. It also implements the distinct spin-up mode
// and resume from a checkpoint tag.
package driver

import (
	"fmt"
	"time"

	"github.com/unifhy-org/unifhy/checkpoint"
	"github.com/unifhy-org/unifhy/component"
	"github.com/unifhy-org/unifhy/dataset"
	"github.com/unifhy-org/unifhy/exchanger"
	"github.com/unifhy-org/unifhy/logging"
	"github.com/unifhy-org/unifhy/recorder"
	"github.com/unifhy-org/unifhy/timedomain"
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// ComponentRuntime bundles one component's Adapter with the driving-data
// Store it stages inputs from, the Recorder accumulating its requested
// records, and its own tick bookkeeping relative to the shared clock.
type ComponentRuntime struct {
	Adapter  *component.Adapter
	Store    dataset.Store
	Recorder *recorder.Recorder
	Specs    []recorder.Spec // the same Specs the Recorder was built from, for variable resolution

	// Ratio is Δt_component/Δt_fast: the component is
	// due every Ratio fast ticks.
	Ratio int

	// LocalTick counts this component's own ticks since the start of the
	// current window (run or spin-up cycle); it indexes dynamic driving
	// data slices and Record window closure.
	LocalTick int
}

// Driver owns every Component, the Exchanger, every component's Recorder,
// and the Clock; nothing else holds a mutable reference to any of them.
type Driver struct {
	Simulation string
	Calendar   timedomain.Calendar
	FastStep   int64

	// Start/End bound the model's main (non-spin-up) simulation window.
	Start, End timedomain.Date

	Order      []string
	Components map[string]*ComponentRuntime
	Exchanger  *exchanger.Exchanger

	CheckpointStore checkpoint.Store
	Logger          logging.Logger
	Verbose         bool

	// SavingDirectory, when set, receives the structured failure record
	// written alongside the last dump on a fatal tick error.
	SavingDirectory string

	// DumpFrequencySeconds is the frequency Resume's continuation dumps
	// at; Simulate and SpinUp take their own frequency per call.
	DumpFrequencySeconds int64
}

// New builds a Driver over already-wired components and Exchanger.
// fastStep is the fastest component's Δt (timedomain.FastestStep), and
// order the Exchanger's resolved firing order.
func New(simulation string, cal timedomain.Calendar, fastStep int64, start, end timedomain.Date, order []string, components map[string]*ComponentRuntime, ex *exchanger.Exchanger, store checkpoint.Store, log logging.Logger) *Driver {
	return &Driver{
		Simulation:      simulation,
		Calendar:        cal,
		FastStep:        fastStep,
		Start:           start,
		End:             end,
		Order:           order,
		Components:      components,
		Exchanger:       ex,
		CheckpointStore: store,
		Logger:          log,
	}
}

// Simulate runs the main window [Start,End) tagged "run".
// dumpingFrequencySeconds of 0 disables dumps.
func (d *Driver) Simulate(dumpingFrequencySeconds int64) error {
	d.DumpFrequencySeconds = dumpingFrequencySeconds
	return d.runWindow(d.Start, d.End, "run", dumpingFrequencySeconds)
}

// SpinUp runs `cycles` back-to-back copies of [start,end), carrying
// component states forward between cycles and resetting every Recorder's
// accumulators and each component's local tick count at each cycle
// boundary. Zero cycles is a no-op.
func (d *Driver) SpinUp(start, end timedomain.Date, cycles int, dumpingFrequencySeconds int64) error {
	for c := 0; c < cycles; c++ {
		tag := fmt.Sprintf("spinup-%d", c)
		if err := d.runWindow(start, end, tag, dumpingFrequencySeconds); err != nil {
			return err
		}
		for _, cr := range d.Components {
			if cr.Recorder != nil {
				cr.Recorder.ResetOnCycleBoundary()
			}
			cr.LocalTick = 0
		}
	}
	return nil
}

// Resume locates the latest CheckpointFrame tagged tag with datetime <=
// at, restores every component/exchanger/recorder from it, and continues
// ticking to End tagged "run".
func (d *Driver) Resume(tag string, at timedomain.Date) error {
	frame, ok, err := d.CheckpointStore.Latest(tag, at.String())
	if err != nil {
		return unifhyerr.NewIOError("resume: read checkpoint store", err)
	}
	if !ok {
		return unifhyerr.NewIOError("resume", fmt.Errorf("no checkpoint frame tagged %q at or before %s", tag, at))
	}

	adapters := make(map[string]*component.Adapter, len(d.Components))
	recorders := make(map[string]*recorder.Recorder, len(d.Components))
	ticks := make(map[string]int, len(d.Components))
	for name, cr := range d.Components {
		if err := cr.Adapter.Initialise(); err != nil {
			return &unifhyerr.ComponentError{Phase: unifhyerr.PhaseInitialise, Component: name, Cause: err}
		}
		adapters[name] = cr.Adapter
		if cr.Recorder != nil {
			recorders[name] = cr.Recorder
		}
	}
	if err := checkpoint.Restore(frame, adapters, ticks, d.Exchanger, recorders); err != nil {
		return err
	}
	for name, n := range ticks {
		d.Components[name].LocalTick = n
	}

	resumeFrom, err := timedomain.ParseDate(frame.Datetime)
	if err != nil {
		return err
	}
	return d.runWindow(resumeFrom, d.End, "run", d.DumpFrequencySeconds)
}

// runWindow walks [start,end) at FastStep, firing every due component in
// Order at each tick, and dumps every dumpFreqSeconds of simulated time
// when non-zero.
func (d *Driver) runWindow(start, end timedomain.Date, tag string, dumpFreqSeconds int64) error {
	clock, err := NewClock(d.Calendar, start, end, d.FastStep)
	if err != nil {
		return err
	}
	var dumpEveryTicks int64
	if dumpFreqSeconds > 0 {
		if dumpFreqSeconds%d.FastStep != 0 {
			return unifhyerr.NewConfigError("dumping frequency %ds is not an integer multiple of the fastest step %ds", dumpFreqSeconds, d.FastStep)
		}
		dumpEveryTicks = dumpFreqSeconds / d.FastStep
	}

	for t := int64(0); t < clock.NTicks(); t++ {
		now := clock.At(t)
		for _, name := range d.Order {
			cr := d.Components[name]
			if t%int64(cr.Ratio) != 0 {
				continue
			}
			if err := d.tickComponent(cr, now, tag); err != nil {
				d.onFailure(now, err)
				return err
			}
		}
		if dumpEveryTicks > 0 && (t+1)%dumpEveryTicks == 0 {
			// The frame's datetime marks the point simulation has reached
			// (the end of the tick just completed), not its start: that is
			// the correct continuation point for Resume.
			if err := d.dump(clock.At(t+1), tag); err != nil {
				d.onFailure(now, err)
				return err
			}
		}
		logging.Pf(d.Verbose, "tick %d/%d @ %s\n", t+1, clock.NTicks(), now)
	}
	return nil
}

// tickComponent performs one due component's tick: stage inputs, read
// inwards / run / publish outwards, fold recorded variables.
func (d *Driver) tickComponent(cr *ComponentRuntime, now timedomain.Date, tag string) error {
	a := cr.Adapter

	inwards := make(map[string][]float64, len(a.Descriptor.Inwards))
	for _, in := range a.Descriptor.Inwards {
		v, err := d.Exchanger.Read(a.Name, in.Name)
		if err != nil {
			return err
		}
		inwards[in.Name] = v
	}

	inputs, err := d.stageInputs(cr, now)
	if err != nil {
		return err
	}

	var mask [][]bool
	if a.Grid != nil {
		mask = a.Grid.Mask
	}

	outwards, outputs, err := a.Run(inwards, inputs, mask)
	if err != nil {
		if ce, ok := err.(*unifhyerr.ComponentError); ok {
			ce.Datetime = now.String()
		}
		return err
	}

	for _, spec := range a.Descriptor.Outwards {
		if !a.Descriptor.ProducesOutward(spec.Name) {
			continue
		}
		if err := d.Exchanger.Publish(a.Name, spec.Name, outwards[spec.Name]); err != nil {
			return err
		}
	}

	if cr.Recorder != nil {
		// the window end-time of any record this tick closes is the end
		// of the tick, not its start.
		closes := timedomain.AddSeconds(d.Calendar, now, int64(cr.Ratio)*d.FastStep)
		if err := foldRecords(cr, outwards, outputs, tag, closes.String()); err != nil {
			return err
		}
	}

	cr.LocalTick++
	return nil
}

// stageInputs assembles one tick's StagedInputs for cr, or an empty set
// if the component declares no Inputs (and so needs no Store).
func (d *Driver) stageInputs(cr *ComponentRuntime, now timedomain.Date) (component.StagedInputs, error) {
	if len(cr.Adapter.Descriptor.Inputs) == 0 {
		return component.StagedInputs{}, nil
	}
	return cr.Adapter.StageInputs(cr.Store, cr.LocalTick, d.Calendar, now)
}

// foldRecords resolves each declared record's source variable — an
// outward, an output, or a state's present timestep — and folds it into
// the component's Recorder; a record may target an outward, an output,
// or a state.
func foldRecords(cr *ComponentRuntime, outwards, outputs map[string][]float64, tag, datetime string) error {
	seen := map[string]bool{}
	for _, spec := range cr.Specs {
		if seen[spec.Variable] {
			continue
		}
		seen[spec.Variable] = true

		v, ok := outwards[spec.Variable]
		if !ok {
			v, ok = outputs[spec.Variable]
		}
		if !ok {
			v = cr.Adapter.States().Get(spec.Variable).GetTimestep(0).Elements
		}
		if err := cr.Recorder.Fold(spec.Variable, v, tag, datetime); err != nil {
			return err
		}
	}
	return nil
}

// dump captures and persists a CheckpointFrame for every component's
// current state.
func (d *Driver) dump(now timedomain.Date, tag string) error {
	adapters := make(map[string]*component.Adapter, len(d.Components))
	recorders := make(map[string]*recorder.Recorder, len(d.Components))
	ticks := make(map[string]int, len(d.Components))
	for name, cr := range d.Components {
		adapters[name] = cr.Adapter
		if cr.Recorder != nil {
			recorders[name] = cr.Recorder
		}
		ticks[name] = cr.LocalTick
	}
	frame := checkpoint.Capture(d.Simulation, tag, now.String(), adapters, ticks, d.Exchanger, recorders)
	if err := d.CheckpointStore.Write(frame); err != nil {
		return unifhyerr.NewIOError("write checkpoint frame", err)
	}
	return nil
}

// onFailure captures the failure datetime and transfer state, writes a
// best-effort dump and the structured failure record, then lets the
// caller re-raise.
func (d *Driver) onFailure(now timedomain.Date, cause error) {
	_ = d.dump(now, "failure")
	if d.Logger == nil {
		return
	}
	if d.SavingDirectory == "" {
		d.Logger.WithFields(map[string]interface{}{"datetime": now.String()}).Error(cause.Error())
		return
	}
	_ = logging.WriteFailureRecord(d.Logger, d.SavingDirectory, logging.FailureRecord{
		Taxonomy: unifhyerr.Taxonomy(cause),
		Datetime: now.String(),
		Message:  cause.Error(),
		At:       time.Now(),
	})
}

// Close finalises every component and closes every Recorder, in that
// order, flushing any remaining completed-but-unflushed record slices.
func (d *Driver) Close() error {
	var firstErr error
	for name, cr := range d.Components {
		if err := cr.Adapter.Finalise(); err != nil {
			if firstErr == nil {
				firstErr = &unifhyerr.ComponentError{Phase: unifhyerr.PhaseFinalise, Component: name, Cause: err}
			}
		}
	}
	for _, cr := range d.Components {
		if cr.Recorder == nil {
			continue
		}
		if err := cr.Recorder.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
