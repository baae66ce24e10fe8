// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleDoc = `
identifier: test-sim
config_directory: /cfg
saving_directory: /out
surfacelayer:
  class: dummy.surfacelayer
  timedomain:
    start: "2019-01-01T09:00:00"
    end: "2019-01-17T09:00:00"
    step: 1
    units: days
    calendar: gregorian
  spacedomain:
    class: latlon
    latitude_extent: [51, 55]
    longitude_extent: [-2, 1]
    latitude_resolution: 1
    longitude_resolution: 1
  constants:
    ancillary_c: [2, "1"]
  records:
    output_x:
      1 day: [point]
      8 days: [sum, mean, min, max]
`

func TestLoadParsesComponentBlocksAndScalars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yml")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Identifier != "test-sim" {
		t.Fatalf("Identifier = %q, want test-sim", doc.Identifier)
	}
	blk, ok := doc.Components["surfacelayer"]
	if !ok {
		t.Fatalf("surfacelayer block missing from doc.Components")
	}
	if blk.Class != "dummy.surfacelayer" {
		t.Fatalf("Class = %q", blk.Class)
	}
	if got := blk.Constants["ancillary_c"].Value[0]; got != 2 {
		t.Fatalf("ancillary_c value = %v, want 2", got)
	}
}

func TestLoadRejectsMissingIdentifier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yml")
	if err := os.WriteFile(path, []byte("saving_directory: /out\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected a ConfigError for missing identifier")
	}
}

func TestBuildTimeDomainFromBlock(t *testing.T) {
	b := TimeDomainBlock{Start: "2019-01-01T09:00:00", End: "2019-01-17T09:00:00", Step: 1, Units: "days", Calendar: "gregorian"}
	td, err := b.BuildTimeDomain()
	if err != nil {
		t.Fatalf("BuildTimeDomain: %v", err)
	}
	if td.Step != 86400 {
		t.Fatalf("Step = %d, want 86400", td.Step)
	}
	if td.N != 16 {
		t.Fatalf("N = %d, want 16", td.N)
	}
}

func TestBuildGridFromExtent(t *testing.T) {
	b := SpaceDomainBlock{
		LatitudeExtent: [2]float64{51, 55}, LongitudeExtent: [2]float64{-2, 1},
		LatitudeResolution: 1, LongitudeResolution: 1,
	}
	g, err := b.BuildGrid()
	if err != nil {
		t.Fatalf("BuildGrid: %v", err)
	}
	ny, nx := g.Shape()
	if ny != 4 || nx != 3 {
		t.Fatalf("shape = (%d,%d), want (4,3)", ny, nx)
	}
}

func TestParseWindowUnits(t *testing.T) {
	cases := map[string]int64{
		"1d":      86400,
		"8 days":  8 * 86400,
		"3600s":   3600,
		"2 hours": 7200,
		"90":      90,
	}
	for in, want := range cases {
		got, err := ParseWindow(in)
		if err != nil {
			t.Fatalf("ParseWindow(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseWindow(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseWindowRejectsGarbage(t *testing.T) {
	if _, err := ParseWindow("not-a-window"); err == nil {
		t.Fatalf("expected an error for an unparseable window")
	}
}
