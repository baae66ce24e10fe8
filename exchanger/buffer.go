// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exchanger

import (
	"math"

	"github.com/cpmech/gosl/utl"
	"github.com/unifhy-org/unifhy/component"
)

// Buffer is one (producer, consumer, transfer)'s accumulator: it folds
// every value the producer publishes between two consumer reads into a
// single reduction, then resets on read.
//
// Remapping from the producer's grid onto the consumer's has already
// happened by the time Fold is called — values are remapped on emission,
// so the accumulation below always runs in the destination's cell
// space.
type Buffer struct {
	method component.AggregationMethod
	size   int

	acc     []float64 // running sum/min/max, or the latest point value
	count   int       // samples folded since the last Read
	lastOut []float64 // the most recently returned reduction, held steady
	// when Read is called again before a new sample arrives (dst ticking
	// faster than src)
}

// NewBuffer allocates an empty Buffer of the given cell count.
func NewBuffer(method component.AggregationMethod, size int) *Buffer {
	return &Buffer{method: method, size: size}
}

// Fold incorporates one producer-side sample, already remapped onto the
// consumer's grid.
func (b *Buffer) Fold(v []float64) {
	if b.acc == nil {
		b.acc = make([]float64, b.size)
		if b.method == component.Min || b.method == component.Max {
			seed := math.Inf(1)
			if b.method == component.Max {
				seed = math.Inf(-1)
			}
			for i := range b.acc {
				b.acc[i] = seed
			}
		}
	}
	switch b.method {
	case component.Sum, component.Mean:
		for i, x := range v {
			b.acc[i] += x
		}
	case component.Min:
		for i, x := range v {
			b.acc[i] = utl.Min(b.acc[i], x)
		}
	case component.Max:
		for i, x := range v {
			b.acc[i] = utl.Max(b.acc[i], x)
		}
	case component.Point:
		copy(b.acc, v)
	}
	b.count++
}

// Read returns the buffer's current reduction and clears the accumulator
// for the next window. If no sample has been folded since the previous
// Read, the previous reduction is returned unchanged: the destination
// simply sees the same value again until the source publishes a new
// one.
func (b *Buffer) Read() []float64 {
	if b.count == 0 {
		return b.lastOut
	}
	out := make([]float64, b.size)
	switch b.method {
	case component.Mean:
		for i, s := range b.acc {
			out[i] = s / float64(b.count)
		}
	default: // Sum, Min, Max, Point: the running accumulator is already the answer
		copy(out, b.acc)
	}
	b.lastOut = out
	b.acc = nil
	b.count = 0
	return out
}

// Seed sets the buffer's held-steady output without going through Fold,
// for spin-up boundary seeding and checkpoint restore.
func (b *Buffer) Seed(v []float64) {
	b.lastOut = append([]float64(nil), v...)
}

// BufferSnapshot is a Buffer's serializable state for checkpointing.
type BufferSnapshot struct {
	Acc     []float64
	Count   int
	LastOut []float64
}

// Snapshot captures the buffer's in-flight accumulator.
func (b *Buffer) Snapshot() BufferSnapshot {
	return BufferSnapshot{
		Acc:     append([]float64(nil), b.acc...),
		Count:   b.count,
		LastOut: append([]float64(nil), b.lastOut...),
	}
}

// Restore reinstates a buffer's in-flight accumulator from a snapshot.
func (b *Buffer) Restore(s BufferSnapshot) {
	b.acc = append([]float64(nil), s.Acc...)
	b.count = s.Count
	b.lastOut = append([]float64(nil), s.LastOut...)
}
