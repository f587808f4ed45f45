// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/iyesmesh/iyesmesh-go/lib/ima"
)

// decodeFull opens path and runs the complete staged read.
func decodeFull(path string, verify bool) (*ima.Descriptor, *ima.Buffers, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, nil, err
	}
	options := ima.DefaultReaderOptions()
	options.VerifyData = verify
	reader, err := ima.OpenWithOptions(data, options)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	descriptor, err := reader.Descriptor()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	buffers, err := reader.Full()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return descriptor, buffers, nil
}

func runMerge(arguments []string) error {
	flags := pflag.NewFlagSet("merge", pflag.ContinueOnError)
	output := flags.StringP("output", "o", "", "output file")
	level := flags.Int("level", ima.DefaultCompressionLevel, "zstd compression level (0 = strongest)")
	upconvert := flags.Bool("upconvert-indices", false, "widen U16 indices to U32 when inputs mix formats")
	userDataFrom := flags.Int("user-data-from", 0, "index of the input whose user data is kept")
	noVerify := flags.Bool("no-verify", false, "skip data checksum verification on inputs")
	verbose := flags.Bool("verbose", false, "debug logging")
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	setupLogging(*verbose)
	if flags.NArg() < 1 {
		return fmt.Errorf("merge: at least one input file required")
	}
	inputs := flags.Args()
	if *userDataFrom < 0 || *userDataFrom >= len(inputs) {
		return fmt.Errorf("merge: --user-data-from %d out of range for %d inputs", *userDataFrom, len(inputs))
	}

	builder := ima.NewBuilderWithOptions(ima.BuilderOptions{UpconvertIndices: *upconvert})
	for inputIndex, path := range inputs {
		descriptor, buffers, err := decodeFull(path, !*noVerify)
		if err != nil {
			return err
		}
		if inputIndex == *userDataFrom {
			builder.SetUserData(buffers.UserData)
		}
		for meshIndex := range descriptor.Meshes {
			extracted, err := ima.ExtractMesh(descriptor, buffers, meshIndex)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := builder.AddMesh(extracted.MeshData(descriptor)); err != nil {
				return fmt.Errorf("%s mesh %d: %w", path, meshIndex, err)
			}
		}
		slog.Debug("merged input", "path", path, "meshes", len(descriptor.Meshes))
	}

	file, err := builder.Encode(*level)
	if err != nil {
		return err
	}
	return writeOutput(*output, file)
}

func runDelete(arguments []string) error {
	flags := pflag.NewFlagSet("delete", pflag.ContinueOnError)
	output := flags.StringP("output", "o", "", "output file")
	level := flags.Int("level", ima.DefaultCompressionLevel, "zstd compression level (0 = strongest)")
	meshIndex := flags.Int("mesh", -1, "index of the mesh record to remove")
	noVerify := flags.Bool("no-verify", false, "skip data checksum verification on the input")
	verbose := flags.Bool("verbose", false, "debug logging")
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	setupLogging(*verbose)
	if flags.NArg() != 1 {
		return fmt.Errorf("delete: exactly one input file required")
	}
	path := flags.Arg(0)

	descriptor, buffers, err := decodeFull(path, !*noVerify)
	if err != nil {
		return err
	}
	if *meshIndex < 0 || *meshIndex >= len(descriptor.Meshes) {
		return fmt.Errorf("delete: --mesh %d out of range, %s has %d meshes",
			*meshIndex, path, len(descriptor.Meshes))
	}

	builder := ima.NewBuilder()
	builder.SetUserData(buffers.UserData)
	for i := range descriptor.Meshes {
		if i == *meshIndex {
			continue
		}
		extracted, err := ima.ExtractMesh(descriptor, buffers, i)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := builder.AddMesh(extracted.MeshData(descriptor)); err != nil {
			return fmt.Errorf("%s mesh %d: %w", path, i, err)
		}
	}

	file, err := builder.Encode(*level)
	if err != nil {
		return err
	}
	return writeOutput(*output, file)
}

func runUserData(arguments []string) error {
	if len(arguments) < 1 {
		return fmt.Errorf("user-data: 'get' or 'set' required")
	}
	switch arguments[0] {
	case "get":
		return runUserDataGet(arguments[1:])
	case "set":
		return runUserDataSet(arguments[1:])
	default:
		return fmt.Errorf("user-data: unknown operation %q (want get or set)", arguments[0])
	}
}

func runUserDataGet(arguments []string) error {
	flags := pflag.NewFlagSet("user-data get", pflag.ContinueOnError)
	output := flags.StringP("output", "o", "", "write the blob here instead of stdout")
	noVerify := flags.Bool("no-verify", false, "skip data checksum verification")
	verbose := flags.Bool("verbose", false, "debug logging")
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	setupLogging(*verbose)
	if flags.NArg() != 1 {
		return fmt.Errorf("user-data get: exactly one input file required")
	}
	path := flags.Arg(0)

	data, err := readInput(path)
	if err != nil {
		return err
	}
	options := ima.DefaultReaderOptions()
	options.VerifyData = !*noVerify
	reader, err := ima.OpenWithOptions(data, options)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if _, err := reader.Descriptor(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	// Stage U: only the user-data prefix is decompressed.
	blob, err := reader.UserData()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if *output == "" {
		_, err := os.Stdout.Write(blob)
		return err
	}
	return writeOutput(*output, blob)
}

func runUserDataSet(arguments []string) error {
	flags := pflag.NewFlagSet("user-data set", pflag.ContinueOnError)
	output := flags.StringP("output", "o", "", "output file")
	dataPath := flags.String("data", "", "file whose bytes become the user data")
	level := flags.Int("level", ima.DefaultCompressionLevel, "zstd compression level (0 = strongest)")
	noVerify := flags.Bool("no-verify", false, "skip data checksum verification on the input")
	verbose := flags.Bool("verbose", false, "debug logging")
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	setupLogging(*verbose)
	if flags.NArg() != 1 {
		return fmt.Errorf("user-data set: exactly one input file required")
	}
	if *dataPath == "" {
		return fmt.Errorf("user-data set: --data required")
	}
	path := flags.Arg(0)

	blob, err := readInput(*dataPath)
	if err != nil {
		return err
	}
	if len(blob) > 0xffffffff {
		return fmt.Errorf("user-data set: blob is %d bytes, limit is 4 GiB", len(blob))
	}

	descriptor, buffers, err := decodeFull(path, !*noVerify)
	if err != nil {
		return err
	}

	// Mesh records and buffers are carried over untouched; only the
	// user-data region and its declared length change.
	updated := *descriptor
	updated.UserDataLen = uint32(len(blob))
	file, err := ima.Write(&updated, &ima.Buffers{
		UserData: blob,
		Indices:  buffers.Indices,
		Vertex:   buffers.Vertex,
	}, *level)
	if err != nil {
		return err
	}
	return writeOutput(*output, file)
}
