// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package unifhy assembles the coupling engine's subpackages (grid,
// timedomain, dataset, component, exchanger, recorder, driver,
// checkpoint) behind a single Model value: the programmatic surface
// every CLI and embedding caller drives.
package unifhy

import (
	"path/filepath"

	"github.com/unifhy-org/unifhy/checkpoint"
	"github.com/unifhy-org/unifhy/component"
	"github.com/unifhy-org/unifhy/config"
	"github.com/unifhy-org/unifhy/dataset"
	"github.com/unifhy-org/unifhy/dataset/netcdfstore"
	"github.com/unifhy-org/unifhy/driver"
	"github.com/unifhy-org/unifhy/exchanger"
	"github.com/unifhy-org/unifhy/logging"
	"github.com/unifhy-org/unifhy/recorder"
	"github.com/unifhy-org/unifhy/timedomain"
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// ComponentFactory builds a fresh Descriptor+Hooks pair for one
// component class. Registration is explicit — a caller assembles a
// Registry naming every component class its binary links in, and passes
// it to FromConfig; there is no discovery by introspection. An alias, so
// a component package's own registry map satisfies Registry without
// importing this package.
type ComponentFactory = func() (*component.Descriptor, component.Hooks)

// Registry maps a config block's `class` name to the factory that builds
// it.
type Registry map[string]ComponentFactory

// Model is the top-level value the CLI and any embedding caller drives:
// identifier and saving directory are fields of this value, never
// process-wide globals.
type Model struct {
	Identifier      string
	ConfigDirectory string
	SavingDirectory string

	doc             *config.Document
	drv             *driver.Driver
	checkpointStore checkpoint.Store
}

// FromConfig builds a Model from a YAML configuration document,
// resolving each present component block's class against registry,
// building its Grid/TimeDomain/dataset, wiring the Exchanger, and
// constructing the Driver. ConfigError/WiringError abort before any
// tick can run.
func FromConfig(path string, registry Registry, checkpointStore checkpoint.Store, log logging.Logger) (*Model, error) {
	doc, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if checkpointStore == nil {
		// durable by default so a later process can resume; tests
		// pass a MemStore explicitly.
		checkpointStore = checkpoint.NewFileStore(filepath.Join(doc.SavingDirectory, "dumps"))
	}

	adapters := map[string]*component.Adapter{}
	runtimes := map[string]*driver.ComponentRuntime{}
	tds := map[string]*timedomain.TimeDomain{}

	for name, blk := range doc.Components {
		desc, hooks, err := resolveFactory(registry, blk)
		if err != nil {
			return nil, err
		}
		g, err := blk.SpaceDomain.BuildGrid()
		if err != nil {
			return nil, err
		}
		td, err := blk.TimeDomain.BuildTimeDomain()
		if err != nil {
			return nil, err
		}
		parameters := flattenScalars(blk.Parameters)
		constants := mergeConstants(desc, blk.Constants)

		a, err := component.New(name, desc, hooks, g, td, parameters, constants)
		if err != nil {
			return nil, err
		}

		store, err := buildStore(blk.Dataset)
		if err != nil {
			return nil, err
		}

		specs, err := buildRecordSpecs(blk.Records, td)
		if err != nil {
			return nil, err
		}
		var rec *recorder.Recorder
		if len(specs) > 0 {
			dir := blk.SavingDirectory
			if dir == "" {
				dir = doc.SavingDirectory
			}
			ny, nx := g.Shape()
			rec = recorder.New(name, doc.Identifier, specs, ny*nx, fileSink{directory: dir}, blk.RecordSliceBuffer)
		}

		adapters[name] = a
		tds[name] = td
		runtimes[name] = &driver.ComponentRuntime{Adapter: a, Store: store, Recorder: rec, Specs: specs}
	}

	if len(adapters) == 0 {
		return nil, unifhyerr.NewConfigError("config %s declares no components", path)
	}
	if err := checkAlignment(tds); err != nil {
		return nil, err
	}

	var anyTD *timedomain.TimeDomain
	for _, td := range tds {
		anyTD = td
		break
	}
	fastStep := timedomain.FastestStep(tdValues(tds)...)
	for name, td := range tds {
		runtimes[name].Ratio = td.Ratio(fastStep)
	}

	ex, err := exchanger.New(adapters, fastStep)
	if err != nil {
		return nil, err
	}
	ex.SeedZero()

	order := ex.Order()
	drv := driver.New(doc.Identifier, anyTD.Calendar, fastStep, anyTD.Start, anyTD.End, order, runtimes, ex, checkpointStore, log)
	drv.SavingDirectory = doc.SavingDirectory

	for _, a := range adapters {
		if err := a.Initialise(); err != nil {
			return nil, &unifhyerr.ComponentError{Phase: unifhyerr.PhaseInitialise, Component: a.Name, Cause: err}
		}
	}

	return &Model{
		Identifier:      doc.Identifier,
		ConfigDirectory: doc.ConfigDirectory,
		SavingDirectory: doc.SavingDirectory,
		doc:             doc,
		drv:             drv,
		checkpointStore: checkpointStore,
	}, nil
}

// ToConfig round-trips the Model's configuration document back to YAML
// at path.
func (m *Model) ToConfig(path string) error {
	return config.Save(path, m.doc)
}

// SpinUp runs `cycles` copies of [start,end) back-to-back ahead of the
// main run.
func (m *Model) SpinUp(start, end timedomain.Date, cycles int, dumpingFrequencySeconds int64) error {
	return m.drv.SpinUp(start, end, cycles, dumpingFrequencySeconds)
}

// Simulate runs the model's main window.
func (m *Model) Simulate(dumpingFrequencySeconds int64) error {
	return m.drv.Simulate(dumpingFrequencySeconds)
}

// Resume restores from the latest checkpoint frame tagged tag at or
// before at, and continues to the model's End.
func (m *Model) Resume(tag string, at timedomain.Date) error {
	return m.drv.Resume(tag, at)
}

// Close finalises every component and flushes every Recorder, so a
// successful run ends with all expected record files closed.
func (m *Model) Close() error { return m.drv.Close() }

func resolveFactory(registry Registry, blk *config.ComponentBlock) (*component.Descriptor, component.Hooks, error) {
	key := blk.Class
	if key == "" {
		key = blk.Module
	}
	factory, ok := registry[key]
	if !ok {
		return nil, component.Hooks{}, unifhyerr.NewConfigError("no registered component class %q", key)
	}
	desc, hooks := factory()
	return desc, hooks, nil
}

func flattenScalars(m map[string]config.ValueUnits) map[string]float64 {
	out := make(map[string]float64, len(m))
	for name, vu := range m {
		if len(vu.Value) > 0 {
			out[name] = vu.Value[0]
		}
	}
	return out
}

// mergeConstants layers config-supplied constants over each declared
// ConstantSpec's mandatory default.
func mergeConstants(desc *component.Descriptor, configured map[string]config.ValueUnits) map[string]float64 {
	out := make(map[string]float64, len(desc.Constants))
	for _, c := range desc.Constants {
		out[c.Name] = c.Default
	}
	for name, vu := range flattenScalars(configured) {
		out[name] = vu
	}
	return out
}

func tdValues(m map[string]*timedomain.TimeDomain) []*timedomain.TimeDomain {
	out := make([]*timedomain.TimeDomain, 0, len(m))
	for _, td := range m {
		out = append(out, td)
	}
	return out
}

// checkAlignment verifies every pair of component TimeDomains may
// couple: same calendar, same start/end, integer step ratio.
func checkAlignment(tds map[string]*timedomain.TimeDomain) error {
	names := make([]string, 0, len(tds))
	for n := range tds {
		names = append(names, n)
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := tds[names[i]], tds[names[j]]
			if !a.Aligns(b) {
				return unifhyerr.NewConfigError("components %q and %q do not align: calendars and start/end must match and steps must divide", names[i], names[j])
			}
		}
	}
	return nil
}

// buildStore assembles a dataset.Store from a component's dataset config
// entries: each named field is read from its declared files via
// netcdfstore and the declared source variable selected. Declaring no
// dataset entries is valid for components with no declared Inputs.
func buildStore(entries map[string]config.DatasetEntry) (dataset.Store, error) {
	ds := dataset.New()
	for variable, entry := range entries {
		var field *dataset.Field
		// a variable split across several files concatenates along the
		// time axis, in the declared file order.
		for _, path := range entry.Files {
			store, err := netcdfstore.Open(path)
			if err != nil {
				return nil, err
			}
			f, err := store.Field(entry.Select)
			store.Close()
			if err != nil {
				return nil, err
			}
			if field == nil {
				f.Name = variable
				field = f
				continue
			}
			if f.Ny != field.Ny || f.Nx != field.Nx {
				return nil, unifhyerr.NewShapeError("dataset %q: file %s has shape (%d,%d), earlier files have (%d,%d)", variable, path, f.Ny, f.Nx, field.Ny, field.Nx)
			}
			field.Slices = append(field.Slices, f.Slices...)
		}
		if field != nil {
			ds.Add(field)
		}
	}
	return ds, nil
}

// buildRecordSpecs converts a component block's `records` map into
// recorder.Specs; every window must be a positive integer multiple of
// the component's Δt.
func buildRecordSpecs(records map[string]map[string][]string, td *timedomain.TimeDomain) ([]recorder.Spec, error) {
	var specs []recorder.Spec
	for variable, windows := range records {
		for windowLabel, methods := range windows {
			seconds, err := config.ParseWindow(windowLabel)
			if err != nil {
				return nil, err
			}
			if seconds%td.Step != 0 {
				return nil, unifhyerr.NewConfigError("record window %q for %q is not an integer multiple of the component's step", windowLabel, variable)
			}
			windowTicks := int(seconds / td.Step)
			for _, m := range methods {
				method, err := recorder.ParseMethod(m)
				if err != nil {
					return nil, err
				}
				specs = append(specs, recorder.Spec{Variable: variable, Window: windowTicks, Method: method})
			}
		}
	}
	return specs, nil
}

// fileSink is the default recorder.Sink: one file per (component,
// variable, tag, method, window). A minimal line-oriented writer stands
// in for an external gridded-field-I/O library: what it persists is the
// timeseries of reduced arrays per slice, not a full NetCDF encoding.
type fileSink struct {
	directory string
}

func (s fileSink) Flush(slices []recorder.Slice) error {
	return writeRecordSlices(s.directory, slices)
}
