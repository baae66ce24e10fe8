// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package component

import (
	"github.com/ctessum/sparse"
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// State is a single declared state's sliding history: a small
// fixed-capacity ring buffer indexed by relative offset, never grown.
// Each history entry is a *sparse.DenseArray shaped
// [grid-shape..., division-axes...] — the division axes are exactly what
// sparse.DenseArray's arbitrary-rank shape is for.
type State struct {
	Spec  StateSpec
	Shape []int // grid shape followed by resolved division axes

	ring []*sparse.DenseArray // length K+1
	k    int                  // history depth K
	now  int                  // ring index currently representing offset 0 ("present")
}

// NewState allocates a ring of depth K+1 for the given resolved shape.
func NewState(spec StateSpec, shape []int) *State {
	k := spec.History
	if k == 0 {
		k = 1
	}
	s := &State{Spec: spec, Shape: shape, k: k}
	s.ring = make([]*sparse.DenseArray, k+1)
	for i := range s.ring {
		s.ring[i] = sparse.ZerosDense(shape...)
	}
	return s
}

// index maps a relative offset (-K..+1) to a ring slot.
func (s *State) index(offset int) int {
	unifhyerr.Invariant(offset >= -s.k && offset <= 1, "state %q: offset %d out of [-%d,1]", s.Spec.Name, offset, s.k)
	idx := s.now + offset
	n := len(s.ring)
	idx = ((idx % n) + n) % n
	return idx
}

// GetTimestep returns the DenseArray at relative offset: −K…0 refer to
// past..present, and +1 to the step being computed by the current run
// call.
func (s *State) GetTimestep(offset int) *sparse.DenseArray { return s.ring[s.index(offset)] }

// SetTimestep overwrites the DenseArray at relative offset.
func (s *State) SetTimestep(offset int, v *sparse.DenseArray) {
	s.ring[s.index(offset)] = v
}

// Advance slides the window: what was offset +1 becomes offset 0. Call
// once per component tick, after the run hook has written offset +1.
func (s *State) Advance() {
	s.now = (s.now + 1) % len(s.ring)
}

// Snapshot captures the ring buffer's full history window for
// checkpointing.
type StateSnapshot struct {
	Shape []int
	Ring  [][]float64 // one flattened Elements slice per ring entry, in ring order
	Now   int
}

// Snapshot returns a checkpointable copy of the ring buffer.
func (s *State) Snapshot() StateSnapshot {
	snap := StateSnapshot{Shape: append([]int(nil), s.Shape...), Now: s.now}
	snap.Ring = make([][]float64, len(s.ring))
	for i, da := range s.ring {
		snap.Ring[i] = append([]float64(nil), da.Elements...)
	}
	return snap
}

// Restore reinstates a ring buffer from a checkpoint Snapshot.
func (s *State) Restore(snap StateSnapshot) {
	s.now = snap.Now
	for i, flat := range snap.Ring {
		copy(s.ring[i].Elements, flat)
	}
}

// States is the named collection of a component's State ring buffers,
// the view presented to Hooks.Run.
type States struct {
	byName map[string]*State
}

// NewStates builds an empty collection.
func NewStates() *States { return &States{byName: map[string]*State{}} }

// Declare registers a State under its spec's name.
func (s *States) Declare(spec StateSpec, shape []int) *State {
	st := NewState(spec, shape)
	s.byName[spec.Name] = st
	return st
}

// Get returns the named State, panicking (a programmer invariant, not a
// taxonomy error: the component descriptor is fixed at registration) if
// undeclared.
func (s *States) Get(name string) *State {
	st, ok := s.byName[name]
	unifhyerr.Invariant(ok, "state %q was not declared", name)
	return st
}

// Names lists every declared state name.
func (s *States) Names() []string {
	names := make([]string, 0, len(s.byName))
	for n := range s.byName {
		names = append(names, n)
	}
	return names
}

// AdvanceAll slides every state's window by one step.
func (s *States) AdvanceAll() {
	for _, st := range s.byName {
		st.Advance()
	}
}

// Snapshot captures every declared state's ring buffer.
func (s *States) Snapshot() map[string]StateSnapshot {
	out := make(map[string]StateSnapshot, len(s.byName))
	for name, st := range s.byName {
		out[name] = st.Snapshot()
	}
	return out
}

// Restore reinstates every declared state's ring buffer from a snapshot
// map produced by Snapshot.
func (s *States) Restore(snap map[string]StateSnapshot) {
	for name, ss := range snap {
		if st, ok := s.byName[name]; ok {
			st.Restore(ss)
		}
	}
}
