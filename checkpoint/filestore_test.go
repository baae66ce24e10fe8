// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTripsFramesAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "dumps"))

	a, _ := buildAdapter(t)
	a.States().Get("state_a").GetTimestep(0).Set(5, 0, 0)
	frame := Frame{
		FormatVersion: FrameFormatVersion,
		Simulation:    "sim1",
		Tag:           "run",
		Datetime:      "2019-01-03T09:00:00",
		Components:    map[string]ComponentSnapshot{"surf": {States: a.States().Snapshot(), Tick: 2}},
	}
	if err := s.Write(frame); err != nil {
		t.Fatalf("Write: %v", err)
	}
	later := frame
	later.Datetime = "2019-01-05T09:00:00"
	later.Components = map[string]ComponentSnapshot{"surf": {States: a.States().Snapshot(), Tick: 4}}
	if err := s.Write(later); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// a fresh FileStore over the same directory models a resume in a new
	// process.
	s2 := NewFileStore(filepath.Join(dir, "dumps"))
	got, ok, err := s2.Latest("run", "2019-01-04T09:00:00")
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if got.Datetime != "2019-01-03T09:00:00" {
		t.Fatalf("Latest returned %s, want the 01-03 frame", got.Datetime)
	}
	if got.Components["surf"].Tick != 2 {
		t.Fatalf("Tick = %d, want 2", got.Components["surf"].Tick)
	}
	if got.Components["surf"].States["state_a"].Ring[0][0] != 5 {
		t.Fatalf("state contents did not survive the file round trip")
	}
}

func TestFileStoreLatestIsEmptyForUnknownTag(t *testing.T) {
	s := NewFileStore(t.TempDir())
	_, ok, err := s.Latest("spinup-0", "2019-01-01T00:00:00")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if ok {
		t.Fatalf("expected no frame for an empty store")
	}
}
