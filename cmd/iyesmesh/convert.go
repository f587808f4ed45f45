// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/iyesmesh/iyesmesh-go/lib/ima"
	"github.com/iyesmesh/iyesmesh-go/lib/objconv"
)

func runConvertObj(arguments []string) error {
	flags := pflag.NewFlagSet("convert-obj", pflag.ContinueOnError)
	output := flags.StringP("output", "o", "", "output file")
	level := flags.Int("level", ima.DefaultCompressionLevel, "zstd compression level (0 = strongest)")
	half := flags.Bool("half", false, "store positions, normals, and uvs as half-precision floats")
	userDataPath := flags.String("user-data", "", "file whose bytes become the user-data blob")
	verbose := flags.Bool("verbose", false, "debug logging")
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	setupLogging(*verbose)
	if flags.NArg() != 1 {
		return fmt.Errorf("convert-obj: exactly one input file required")
	}
	path := flags.Arg(0)

	input, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer input.Close()

	mesh, err := objconv.Convert(input, objconv.Options{HalfPrecision: *half})
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("converted obj", "path", path,
		"vertices", mesh.NumVertices(), "indices", mesh.NumIndices())

	builder := ima.NewBuilder()
	if *userDataPath != "" {
		blob, err := readInput(*userDataPath)
		if err != nil {
			return err
		}
		builder.SetUserData(blob)
	}
	if err := builder.AddMesh(*mesh); err != nil {
		return err
	}

	file, err := builder.Encode(*level)
	if err != nil {
		return err
	}
	return writeOutput(*output, file)
}
