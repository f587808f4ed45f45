// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

// Command iyesmesh inspects and manipulates IMA (Iyes Mesh Array)
// files: show and verify metadata, merge and delete meshes, get and
// set the user-data blob, and import Wavefront OBJ geometry.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/iyesmesh/iyesmesh-go/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcommand := os.Args[1]
	arguments := os.Args[2:]
	switch subcommand {
	case "info":
		return runInfo(arguments)
	case "check":
		return runCheck(arguments)
	case "merge":
		return runMerge(arguments)
	case "delete":
		return runDelete(arguments)
	case "user-data":
		return runUserData(arguments)
	case "convert-obj":
		return runConvertObj(arguments)
	case "version":
		fmt.Printf("iyesmesh %s\n", version.Info())
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: iyesmesh <subcommand> [flags]

Subcommands:
  info         Show header and descriptor details for a file
  check        Verify a file's structure and checksums
  merge        Merge the meshes of several files into one
  delete       Remove one mesh record and its data from a file
  user-data    Get or set the opaque user-data blob
  convert-obj  Convert a Wavefront OBJ file to IMA
  version      Print version information

Run 'iyesmesh <subcommand> --help' for subcommand flags.
`)
}

// setupLogging installs a stderr slog handler at debug level when
// verbose is set; otherwise only warnings and errors surface.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// readInput loads an entire input file.
func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	slog.Debug("read input", "path", path, "bytes", len(data))
	return data, nil
}

// writeOutput writes a finished file, refusing to run without an
// explicit destination.
func writeOutput(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("output path required (-o)")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	slog.Debug("wrote output", "path", path, "bytes", len(data))
	return nil
}
