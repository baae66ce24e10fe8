// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging is the narrow seam the coupling engine uses to reach
// an external logger: the core only depends on the Logger interface
// below. Logrus is the default implementation and is what renders the
// structured failure record a fatal run leaves behind.
package logging

import (
	"encoding/json"
	"os"
	"time"

	"github.com/cpmech/gosl/io"
	"github.com/sirupsen/logrus"
)

// Logger is the interface the driver narrates progress and failures
// through. Fields attach structured context (phase,
// datetime, component, taxonomy tag, ...).
type Logger interface {
	Infof(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	Error(msg string)
}

// Logrus is the default Logger, backed by github.com/sirupsen/logrus.
type Logrus struct {
	entry *logrus.Entry
}

// NewLogrus returns a Logger writing structured entries to stderr.
func NewLogrus(verbose bool) *Logrus {
	l := logrus.New()
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	return &Logrus{entry: logrus.NewEntry(l)}
}

func (l *Logrus) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }

func (l *Logrus) WithFields(fields map[string]interface{}) Logger {
	return &Logrus{entry: l.entry.WithFields(fields)}
}

func (l *Logrus) Error(msg string) { l.entry.Error(msg) }

// Pf prints a verbose, gated progress line, used by driver for
// tick-by-tick narration instead of the Logger interface (which is
// reserved for structured/error-bearing events).
func Pf(showMsg bool, format string, args ...interface{}) {
	if showMsg {
		io.Pf(format, args...)
	}
}

// FailureRecord is the structured error record written to the saving
// directory alongside the last dump when a run dies.
type FailureRecord struct {
	Taxonomy string    `json:"taxonomy"`
	Datetime string    `json:"datetime"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// WriteFailureRecord writes the structured failure record to
// <savingDirectory>/failure.json using the Logger so it is observable in
// the log stream as well as on disk.
func WriteFailureRecord(log Logger, savingDirectory string, rec FailureRecord) error {
	log.WithFields(map[string]interface{}{
		"taxonomy": rec.Taxonomy,
		"datetime": rec.Datetime,
		"at":       rec.At,
	}).Error(rec.Message)

	buf, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(savingDirectory, 0o755); err != nil {
		return err
	}
	io.WriteFileSD(savingDirectory, "failure.json", string(buf))
	return nil
}
