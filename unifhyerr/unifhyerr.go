// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package unifhyerr defines the error taxonomy shared by every stage of a
// coupled run: construction-time errors (ConfigError, WiringError) and
// ticking-time errors (ShapeError, UnitsError, ComponentError, IOError).
// Each type renders as a terse "<kind> error: ..." message and wraps an
// optional cause so taxonomy is preserved through errors.Is/As.
package unifhyerr

import (
	"errors"
	"fmt"

	"github.com/cpmech/gosl/chk"
)

// ConfigError reports a malformed configuration document, an unknown
// component class, or an impossible time/space alignment. Raised during
// model construction, and when a run or resume starts (an invalid dump
// interval, or a frame naming an unknown component), before its first
// tick.
type ConfigError struct {
	Msg   string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error: %s: %v", e.Msg, e.Cause)
	}
	return fmt.Sprintf("config error: %s", e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// NewConfigError builds a ConfigError with chk.Err-style formatting.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// WiringErrorKind distinguishes the two ways a transfer can fail to wire.
type WiringErrorKind int

const (
	// WiringMissing means no component produces a required inward.
	WiringMissing WiringErrorKind = iota
	// WiringAmbiguous means more than one component produces it.
	WiringAmbiguous
	// WiringCategoryMismatch means the declared peer category does not
	// match the actual producer's category.
	WiringCategoryMismatch
)

func (k WiringErrorKind) String() string {
	switch k {
	case WiringMissing:
		return "missing"
	case WiringAmbiguous:
		return "ambiguous"
	case WiringCategoryMismatch:
		return "category mismatch"
	default:
		return "unknown"
	}
}

// WiringError reports a failure to pair up a declared inward with exactly
// one producing outward at model construction.
type WiringError struct {
	Kind     WiringErrorKind
	Transfer string
	Consumer string
	Detail   string
}

func (e *WiringError) Error() string {
	return fmt.Sprintf("wiring error (%s): transfer %q required by %q: %s", e.Kind, e.Transfer, e.Consumer, e.Detail)
}

// ShapeError reports a runtime array-shape mismatch when publishing a
// transfer, remapping a field, or folding a record.
type ShapeError struct {
	Msg string
}

func (e *ShapeError) Error() string { return fmt.Sprintf("shape error: %s", e.Msg) }

// NewShapeError builds a ShapeError.
func NewShapeError(format string, args ...interface{}) *ShapeError {
	return &ShapeError{Msg: fmt.Sprintf(format, args...)}
}

// UnitsError reports a units mismatch, e.g. a transfer published in units
// other than those declared at registration.
type UnitsError struct {
	Msg string
}

func (e *UnitsError) Error() string { return fmt.Sprintf("units error: %s", e.Msg) }

// NewUnitsError builds a UnitsError.
func NewUnitsError(format string, args ...interface{}) *UnitsError {
	return &UnitsError{Msg: fmt.Sprintf(format, args...)}
}

// ComponentPhase names which lifecycle hook a ComponentError occurred in.
type ComponentPhase string

const (
	PhaseInitialise ComponentPhase = "initialise"
	PhaseRun        ComponentPhase = "run"
	PhaseFinalise   ComponentPhase = "finalise"
)

// ComponentError wraps an error returned by a component hook. The
// adapter attaches the component identifier and the driver the datetime
// before re-raising.
type ComponentError struct {
	Phase     ComponentPhase
	Datetime  string
	Component string
	Cause     error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("component error: %s during %s @ %s: %v", e.Component, e.Phase, e.Datetime, e.Cause)
}

func (e *ComponentError) Unwrap() error { return e.Cause }

// IOError reports a driving-data read failure, a record write failure, or
// a dump write failure.
type IOError struct {
	Op    string
	Cause error
}

func (e *IOError) Error() string { return fmt.Sprintf("io error: %s: %v", e.Op, e.Cause) }

func (e *IOError) Unwrap() error { return e.Cause }

// NewIOError builds an IOError wrapping cause.
func NewIOError(op string, cause error) *IOError { return &IOError{Op: op, Cause: cause} }

// Taxonomy returns the taxonomy tag of err for the structured failure
// record written alongside the last dump, or "error" if err belongs to
// no taxonomy type.
func Taxonomy(err error) string {
	var (
		cfg  *ConfigError
		wir  *WiringError
		shp  *ShapeError
		uni  *UnitsError
		comp *ComponentError
		ioe  *IOError
	)
	// wrapper types first: a ComponentError carrying a ShapeError cause
	// must report as ComponentError, the outermost taxonomy entry.
	switch {
	case errors.As(err, &comp):
		return "ComponentError"
	case errors.As(err, &ioe):
		return "IOError"
	case errors.As(err, &cfg):
		return "ConfigError"
	case errors.As(err, &wir):
		return "WiringError"
	case errors.As(err, &shp):
		return "ShapeError"
	case errors.As(err, &uni):
		return "UnitsError"
	default:
		return "error"
	}
}

// Invariant panics via gosl/chk for conditions that can never be
// triggered by bad input or configuration — a violated internal
// invariant, not a taxonomy error.
func Invariant(cond bool, format string, args ...interface{}) {
	if !cond {
		chk.Panic(format, args...)
	}
}
