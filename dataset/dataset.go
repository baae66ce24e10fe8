// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dataset implements the field store: a named collection of
// gridded, possibly time-varying numeric fields. It defines the
// interface the core consumes plus an in-memory implementation used for
// static/dynamic inputs assembled by configuration, and a netcdfstore
// subpackage with one concrete CF-convention-reading backend.
package dataset

import (
	"github.com/ctessum/unit"
	"github.com/unifhy-org/unifhy/timedomain"
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// Frequency names how a climatologic input is bucketed.
type Frequency int

const (
	FreqNone Frequency = iota
	FreqSeason
	FreqMonth
	FreqDayOfYear
)

// Field is one named gridded quantity. Static fields have len(Slices)==1;
// dynamic fields have one slice per timestep; climatologic fields have
// one slice per bucket of Frequency.
type Field struct {
	Name   string
	Units  unit.Dimensions
	Ny, Nx int
	Slices [][]float64 // each of length Ny*Nx
}

// Store is the interface the core consumes to read driving data: lookup
// by name, spatial re-indexing to a component grid (performed upstream by
// config/component wiring, not here), and temporal indexing by bucket.
type Store interface {
	// Field returns the named field in full.
	Field(name string) (*Field, error)
	// Names lists every field this store can provide.
	Names() []string
}

// DataSet is the in-memory Store implementation: a plain name->Field map,
// the concrete realisation used by the in-process dummy components and
// by tests. It deliberately has no I/O of its own — it is populated by
// config or by a netcdfstore.Store's Field calls.
type DataSet struct {
	fields map[string]*Field
}

// New returns an empty DataSet.
func New() *DataSet { return &DataSet{fields: map[string]*Field{}} }

// Add registers a field, overwriting any previous field of the same name.
func (d *DataSet) Add(f *Field) { d.fields[f.Name] = f }

// Field implements Store.
func (d *DataSet) Field(name string) (*Field, error) {
	f, ok := d.fields[name]
	if !ok {
		return nil, unifhyerr.NewConfigError("dataset has no field named %q", name)
	}
	return f, nil
}

// Names implements Store.
func (d *DataSet) Names() []string {
	names := make([]string, 0, len(d.fields))
	for n := range d.fields {
		names = append(names, n)
	}
	return names
}

// StaticSlice returns the single slice of a static field.
func (f *Field) StaticSlice() []float64 {
	unifhyerr.Invariant(len(f.Slices) == 1, "field %q is not static: has %d slices", f.Name, len(f.Slices))
	return f.Slices[0]
}

// DynamicSlice returns the slice at timestep tick (0-based), for a
// dynamic input sliced at the current timestep.
func (f *Field) DynamicSlice(tick int) []float64 {
	unifhyerr.Invariant(tick >= 0 && tick < len(f.Slices), "field %q: tick %d out of [0,%d)", f.Name, tick, len(f.Slices))
	return f.Slices[tick]
}

// ClimatologicSlice indexes a climatologic field by the appropriate
// bucket of the current datetime.
func (f *Field) ClimatologicSlice(freq Frequency, cal timedomain.Calendar, d timedomain.Date) []float64 {
	var bucket int
	switch freq {
	case FreqSeason:
		bucket = timedomain.SeasonBucket(d)
	case FreqMonth:
		bucket = timedomain.MonthBucket(d) - 1
	case FreqDayOfYear:
		bucket = timedomain.DayOfYearBucket(cal, d) - 1
	default:
		unifhyerr.Invariant(false, "ClimatologicSlice called with FreqNone")
	}
	unifhyerr.Invariant(bucket >= 0 && bucket < len(f.Slices), "field %q: climatology bucket %d out of [0,%d)", f.Name, bucket, len(f.Slices))
	return f.Slices[bucket]
}
