// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the hierarchical configuration document: one
// top-level block of metadata plus one block per component category,
// decoded as a plain tagged-struct unmarshal (sigs.k8s.io/yaml) followed
// by conversion into an immutable value. The configuration is built once
// and threaded explicitly; there is no process-wide mutable config.
package config

import (
	"encoding/json"
	"os"
	"regexp"
	"strconv"

	"github.com/unifhy-org/unifhy/grid"
	"github.com/unifhy-org/unifhy/timedomain"
	"github.com/unifhy-org/unifhy/unifhyerr"
	"sigs.k8s.io/yaml"
)

// categoryKeys lists every top-level component block key, in the fixed
// firing order.
var categoryKeys = []string{
	"surfacelayer", "subsurface", "openwater",
	"nutrientsurfacelayer", "nutrientsubsurface", "nutrientopenwater",
}

// Document is the raw shape of the YAML configuration: decoded
// structurally, before any semantic validation or conversion to domain
// types.
type Document struct {
	Identifier      string                     `json:"identifier"`
	ConfigDirectory string                     `json:"config_directory"`
	SavingDirectory string                     `json:"saving_directory"`
	Components      map[string]*ComponentBlock `json:"-"`

	SurfaceLayer         *ComponentBlock `json:"surfacelayer,omitempty"`
	Subsurface           *ComponentBlock `json:"subsurface,omitempty"`
	OpenWater            *ComponentBlock `json:"openwater,omitempty"`
	NutrientSurfaceLayer *ComponentBlock `json:"nutrientsurfacelayer,omitempty"`
	NutrientSubsurface   *ComponentBlock `json:"nutrientsubsurface,omitempty"`
	NutrientOpenWater    *ComponentBlock `json:"nutrientopenwater,omitempty"`
}

// ComponentBlock is one component's configuration block.
type ComponentBlock struct {
	Module          string                      `json:"module,omitempty"`
	Class           string                      `json:"class,omitempty"`
	SavingDirectory string                      `json:"saving_directory"`
	TimeDomain      TimeDomainBlock             `json:"timedomain"`
	SpaceDomain     SpaceDomainBlock            `json:"spacedomain"`
	Dataset         map[string]DatasetEntry     `json:"dataset"`
	Parameters      map[string]ValueUnits       `json:"parameters"`
	Constants       map[string]ValueUnits       `json:"constants"`
	Records         map[string]map[string][]string `json:"records"` // variable -> window -> methods

	// RecordSliceBuffer is how many completed window values the Recorder
	// buffers before one atomic flush. Zero means 1.
	RecordSliceBuffer int `json:"record_slice_buffer,omitempty"`
}

// TimeDomainBlock is the `timedomain` block.
type TimeDomainBlock struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Step     int64  `json:"step"`
	Units    string `json:"units"` // "seconds", "minutes", "hours", "days"
	Calendar string `json:"calendar"`
}

// SpaceDomainBlock is the `spacedomain` block. Extents/resolutions build
// a rectilinear Grid; Mask is accepted inline (as it would already be
// decoded into memory by a real grid file reader); a production
// deployment resolves MaskFile/FlowDirectionFile through the
// gridded-field I/O layer before calling BuildGrid.
type SpaceDomainBlock struct {
	Class              string      `json:"class"`
	LatitudeExtent     [2]float64  `json:"latitude_extent"`
	LongitudeExtent    [2]float64  `json:"longitude_extent"`
	LatitudeResolution float64     `json:"latitude_resolution"`
	LongitudeResolution float64    `json:"longitude_resolution"`
	Mask               [][]bool    `json:"land_sea_mask,omitempty"`
	MaskFile           string      `json:"land_sea_mask_file,omitempty"`
	FlowDirectionFile  string      `json:"flow_direction,omitempty"`
	CellAreaFile       string      `json:"cell_area,omitempty"`
}

// DatasetEntry is the `dataset` map value: one or more source files plus
// the variable name to select from them.
type DatasetEntry struct {
	Files  []string `json:"files"`
	Select string   `json:"select"`
}

// ValueUnits is a `[value, units]` pair. Value may be a scalar or an
// array (e.g. per-division parameters); Units is documentation only here
// — the authoritative dimensions live on the component's own Descriptor,
// not reconstructed from a config string.
type ValueUnits struct {
	Value []float64
	Units string
}

// UnmarshalJSON decodes the two-element `[value, units]` array form,
// accepting either a scalar or array first element.
func (v *ValueUnits) UnmarshalJSON(data []byte) error {
	var raw [2]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw[0].(type) {
	case float64:
		v.Value = []float64{val}
	case []interface{}:
		v.Value = make([]float64, len(val))
		for i, e := range val {
			f, ok := e.(float64)
			if !ok {
				return unifhyerr.NewConfigError("value/units array element %d is not numeric", i)
			}
			v.Value[i] = f
		}
	default:
		return unifhyerr.NewConfigError("value/units first element must be a number or array of numbers")
	}
	if units, ok := raw[1].(string); ok {
		v.Units = units
	}
	return nil
}

// Load reads and parses path into a Document through sigs.k8s.io/yaml.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, unifhyerr.NewIOError("read config "+path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, unifhyerr.NewConfigError("parse config %s: %v", path, err)
	}
	doc.Components = map[string]*ComponentBlock{}
	blocks := []*ComponentBlock{
		doc.SurfaceLayer, doc.Subsurface, doc.OpenWater,
		doc.NutrientSurfaceLayer, doc.NutrientSubsurface, doc.NutrientOpenWater,
	}
	for i, blk := range blocks {
		if blk != nil {
			doc.Components[categoryKeys[i]] = blk
		}
	}
	if doc.Identifier == "" {
		return nil, unifhyerr.NewConfigError("config %s: missing required field 'identifier'", path)
	}
	return &doc, nil
}

// Save round-trips a Document back to YAML at path. The checkpoint
// manifest does not record the configuration.
func Save(path string, doc *Document) error {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return unifhyerr.NewIOError("marshal config", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return unifhyerr.NewIOError("write config "+path, err)
	}
	return nil
}

// stepSeconds converts a TimeDomainBlock's (step, units) pair to seconds.
func (b TimeDomainBlock) stepSeconds() (int64, error) {
	mult := int64(1)
	switch b.Units {
	case "", "seconds", "second":
		mult = 1
	case "minutes", "minute":
		mult = 60
	case "hours", "hour":
		mult = 3600
	case "days", "day":
		mult = 86400
	default:
		return 0, unifhyerr.NewConfigError("unknown timedomain units %q", b.Units)
	}
	return b.Step * mult, nil
}

// BuildTimeDomain converts a TimeDomainBlock into a timedomain.TimeDomain.
func (b TimeDomainBlock) BuildTimeDomain() (*timedomain.TimeDomain, error) {
	cal, err := timedomain.ParseCalendar(b.Calendar)
	if err != nil {
		return nil, err
	}
	start, err := timedomain.ParseDate(b.Start)
	if err != nil {
		return nil, unifhyerr.NewConfigError("timedomain start: %v", err)
	}
	end, err := timedomain.ParseDate(b.End)
	if err != nil {
		return nil, unifhyerr.NewConfigError("timedomain end: %v", err)
	}
	step, err := b.stepSeconds()
	if err != nil {
		return nil, err
	}
	return timedomain.New(cal, start, end, step)
}

// BuildGrid converts a SpaceDomainBlock's extents and resolutions into a
// rectilinear latitude/longitude Grid. Class is not inspected: every
// block builds that kind of grid. Mask, if present, is applied as-is. MaskFile/FlowDirectionFile/CellAreaFile
// resolution through the gridded-field I/O layer is left to the caller.
func (b SpaceDomainBlock) BuildGrid() (*grid.Grid, error) {
	if b.LatitudeResolution <= 0 || b.LongitudeResolution <= 0 {
		return nil, unifhyerr.NewConfigError("spacedomain resolution must be positive, got lat=%v lon=%v", b.LatitudeResolution, b.LongitudeResolution)
	}
	yBounds := boundsFromExtent(b.LatitudeExtent, b.LatitudeResolution)
	xBounds := boundsFromExtent(b.LongitudeExtent, b.LongitudeResolution)
	return grid.New(yBounds, xBounds, b.Mask, nil)
}

func boundsFromExtent(extent [2]float64, resolution float64) []float64 {
	lo, hi := extent[0], extent[1]
	n := int((hi-lo)/resolution + 0.5)
	bounds := make([]float64, n+1)
	for i := range bounds {
		bounds[i] = lo + float64(i)*resolution
	}
	return bounds
}

// windowPattern matches a record window label: an integer followed by
// an optional unit letter/word ("1d", "8 days", "3600s", or a bare
// integer taken as seconds).
var windowPattern = regexp.MustCompile(`^(\d+)\s*([a-zA-Z]*)$`)

// ParseWindow converts a record window label into seconds.
func ParseWindow(s string) (int64, error) {
	m := windowPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, unifhyerr.NewConfigError("cannot parse record window %q", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, unifhyerr.NewConfigError("cannot parse record window %q: %v", s, err)
	}
	switch m[2] {
	case "", "s", "sec", "second", "seconds":
		return n, nil
	case "m", "min", "minute", "minutes":
		return n * 60, nil
	case "h", "hour", "hours":
		return n * 3600, nil
	case "d", "day", "days":
		return n * 86400, nil
	default:
		return 0, unifhyerr.NewConfigError("unknown record window unit %q in %q", m[2], s)
	}
}
