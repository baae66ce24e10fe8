// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package netcdfstore is the one concrete dataset.Store backend the core
// ships with, reading CF-convention gridded files
// through github.com/ctessum/cdf. It exists entirely behind the
// dataset.Store interface, keeping the specific I/O library out of the
// coupling core: nothing in exchanger, recorder, or driver imports this
// package directly.
package netcdfstore

import (
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/unit"
	"github.com/unifhy-org/unifhy/dataset"
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// Store reads named variables out of a single open NetCDF file. A
// dataset.Field's Slices are the leading (time) dimension of the
// variable; a variable with no leading time dimension is treated as
// static (one slice).
type Store struct {
	file *cdf.File
	raw  *os.File
}

// Open opens path for reading and returns a Store.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, unifhyerr.NewIOError("open "+path, err)
	}
	nc, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, unifhyerr.NewIOError("parse netcdf header "+path, err)
	}
	return &Store{file: nc, raw: f}, nil
}

// Close releases the underlying file handle.
func (s *Store) Close() error { return s.raw.Close() }

// Field implements dataset.Store, reading the whole named variable (all
// time slices) into an in-memory dataset.Field.
func (s *Store) Field(name string) (*dataset.Field, error) {
	dims := s.file.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, unifhyerr.NewConfigError("netcdf file has no variable named %q", name)
	}

	// variables with >=3 dims are treated as [time, y, x]; exactly 2 dims
	// are treated as static [y, x].
	var nSlices, ny, nx int
	if len(dims) >= 3 {
		nSlices, ny, nx = dims[0], dims[1], dims[2]
	} else {
		nSlices, ny, nx = 1, dims[0], dims[1]
	}

	f := &dataset.Field{Name: name, Units: unit.Dimensions{}, Ny: ny, Nx: nx, Slices: make([][]float64, nSlices)}
	cellCount := ny * nx
	for t := 0; t < nSlices; t++ {
		start := make([]int, len(dims))
		end := make([]int, len(dims))
		for i := range dims {
			end[i] = dims[i]
		}
		if len(dims) >= 3 {
			start[0], end[0] = t, t+1
		}
		r := s.file.Reader(name, start, end)
		buf := r.Zero(cellCount)
		if _, err := r.Read(buf); err != nil {
			return nil, unifhyerr.NewIOError("read netcdf variable "+name, err)
		}
		slice := make([]float64, cellCount)
		switch vals := buf.(type) {
		case []float64:
			copy(slice, vals)
		case []float32:
			for i, v := range vals {
				slice[i] = float64(v)
			}
		default:
			return nil, unifhyerr.NewShapeError("netcdf variable %q has unsupported element type", name)
		}
		f.Slices[t] = slice
	}
	return f, nil
}

// Names implements dataset.Store.
func (s *Store) Names() []string {
	names := make([]string, 0)
	for _, v := range s.file.Header.Variables() {
		names = append(names, v)
	}
	return names
}
