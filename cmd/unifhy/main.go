// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command unifhy is a command-line interface driving the Model
// programmatic surface: it builds a Model from a configuration
// document and runs one of spin-up, simulate, resume, or to-config.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unifhy-org/unifhy"
	"github.com/unifhy-org/unifhy/components/dummy"
	"github.com/unifhy-org/unifhy/config"
	"github.com/unifhy-org/unifhy/logging"
	"github.com/unifhy-org/unifhy/timedomain"
)

var (
	configPath       string
	verbose          bool
	dumpingFrequency string
	spinUpCycles     int
	spinUpStart      string
	spinUpEnd        string
	resumeTag        string
	resumeAt         string
	toConfigOutput   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "unifhy",
	Short: "Run coupled hydrology component models.",
	Long: "unifhy couples independently authored surface-layer, subsurface,\n" +
		"open-water, and nutrient components into a single simulation,\n" +
		"driven by a YAML configuration document.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML configuration document (required)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "narrate tick-by-tick progress")
	rootCmd.MarkPersistentFlagRequired("config")

	simulateCmd.Flags().StringVar(&dumpingFrequency, "dump-every", "", "checkpoint frequency, e.g. \"1 day\" (default: never)")
	rootCmd.AddCommand(simulateCmd)

	spinUpCmd.Flags().IntVar(&spinUpCycles, "cycles", 1, "number of spin-up cycles")
	spinUpCmd.Flags().StringVar(&spinUpStart, "start", "", "spin-up window start, YYYY-MM-DDTHH:MM:SS (required)")
	spinUpCmd.Flags().StringVar(&spinUpEnd, "end", "", "spin-up window end, YYYY-MM-DDTHH:MM:SS (required)")
	spinUpCmd.Flags().StringVar(&dumpingFrequency, "dump-every", "", "checkpoint frequency, e.g. \"1 day\" (default: never)")
	rootCmd.AddCommand(spinUpCmd)

	resumeCmd.Flags().StringVar(&resumeTag, "tag", "run", "checkpoint tag to resume from")
	resumeCmd.Flags().StringVar(&resumeAt, "at", "", "resume at or before this datetime, YYYY-MM-DDTHH:MM:SS (required)")
	rootCmd.AddCommand(resumeCmd)

	toConfigCmd.Flags().StringVar(&toConfigOutput, "out", "", "output path for the round-tripped configuration document (required)")
	rootCmd.AddCommand(toConfigCmd)
}

// buildModel is shared by every subcommand: load the configuration,
// resolve component classes against the dummy registry (an embedding
// caller links in its own components the same way), and construct the
// Model.
func buildModel() (*unifhy.Model, error) {
	log := logging.NewLogrus(verbose)
	return unifhy.FromConfig(configPath, dummy.Registry(), nil, log)
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the model's main simulation window.",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := buildModel()
		if err != nil {
			return err
		}
		freq, err := parseDumpFrequency(dumpingFrequency)
		if err != nil {
			return err
		}
		if err := m.Simulate(freq); err != nil {
			return err
		}
		return m.Close()
	},
}

var spinUpCmd = &cobra.Command{
	Use:   "spin-up",
	Short: "Run repeated spin-up cycles ahead of the main window.",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := buildModel()
		if err != nil {
			return err
		}
		start, err := timedomain.ParseDate(spinUpStart)
		if err != nil {
			return err
		}
		end, err := timedomain.ParseDate(spinUpEnd)
		if err != nil {
			return err
		}
		freq, err := parseDumpFrequency(dumpingFrequency)
		if err != nil {
			return err
		}
		if err := m.SpinUp(start, end, spinUpCycles, freq); err != nil {
			return err
		}
		return m.Close()
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a simulation from its latest checkpoint at or before a datetime.",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := buildModel()
		if err != nil {
			return err
		}
		at, err := timedomain.ParseDate(resumeAt)
		if err != nil {
			return err
		}
		if err := m.Resume(resumeTag, at); err != nil {
			return err
		}
		return m.Close()
	},
}

var toConfigCmd = &cobra.Command{
	Use:   "to-config",
	Short: "Round-trip the loaded configuration document back to YAML.",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := buildModel()
		if err != nil {
			return err
		}
		return m.ToConfig(toConfigOutput)
	},
}

func parseDumpFrequency(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return config.ParseWindow(s)
}
