// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/hex"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/pflag"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/iyesmesh/iyesmesh-go/lib/ima"
)

// infoReport is the info subcommand's output document, rendered as
// text, JSON, or YAML.
type infoReport struct {
	File             string       `json:"file" yaml:"file"`
	FileSize         int64        `json:"file_size" yaml:"file_size"`
	Version          uint16       `json:"version" yaml:"version"`
	DescriptorLen    uint16       `json:"descriptor_len" yaml:"descriptor_len"`
	MetadataChecksum string       `json:"metadata_checksum" yaml:"metadata_checksum"`
	DataChecksum     string       `json:"data_checksum" yaml:"data_checksum"`
	NumVertices      uint32       `json:"n_vertices" yaml:"n_vertices"`
	UserDataLen      uint32       `json:"user_data_len" yaml:"user_data_len"`
	UncompressedLen  uint64       `json:"uncompressed_len" yaml:"uncompressed_len"`
	CompressedLen    int          `json:"compressed_len" yaml:"compressed_len"`
	Indices          *indexReport `json:"indices,omitempty" yaml:"indices,omitempty"`
	Attributes       []attrReport `json:"attributes" yaml:"attributes"`
	Meshes           []meshReport `json:"meshes" yaml:"meshes"`
	Digests          *digestsInfo `json:"digests,omitempty" yaml:"digests,omitempty"`
}

type indexReport struct {
	Count  uint32 `json:"count" yaml:"count"`
	Format string `json:"format" yaml:"format"`
}

type attrReport struct {
	Usage  string `json:"usage" yaml:"usage"`
	Format string `json:"format" yaml:"format"`
	Size   uint64 `json:"size" yaml:"size"`
}

type meshReport struct {
	FirstIndex  uint32 `json:"first_index" yaml:"first_index"`
	IndexCount  uint32 `json:"index_count" yaml:"index_count"`
	FirstVertex uint32 `json:"first_vertex" yaml:"first_vertex"`
	VertexCount uint32 `json:"vertex_count" yaml:"vertex_count"`
}

// digestsInfo carries BLAKE3 digests of the decoded buffers. These
// identify payload content independent of compression level, so two
// files encoded at different levels can still be compared.
type digestsInfo struct {
	UserData string   `json:"user_data,omitempty" yaml:"user_data,omitempty"`
	Indices  string   `json:"indices,omitempty" yaml:"indices,omitempty"`
	Vertex   []string `json:"vertex" yaml:"vertex"`
}

func runInfo(arguments []string) error {
	flags := pflag.NewFlagSet("info", pflag.ContinueOnError)
	output := flags.StringP("output", "o", "text", "output format: text, json, or yaml")
	digests := flags.Bool("digests", false, "decode the payload and print BLAKE3 buffer digests")
	noVerify := flags.Bool("no-verify", false, "skip data checksum verification")
	verbose := flags.Bool("verbose", false, "debug logging")
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	setupLogging(*verbose)
	if flags.NArg() != 1 {
		return fmt.Errorf("info: exactly one input file required")
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
		return err
	}
	descriptor, err := reader.Descriptor()
	if err != nil {
		return err
	}
	totalLen, err := descriptor.TotalLen()
	if err != nil {
		return err
	}

	header := reader.Header()
	report := infoReport{
		File:             path,
		FileSize:         int64(len(data)),
		Version:          header.Version,
		DescriptorLen:    header.DescriptorLen,
		MetadataChecksum: fmt.Sprintf("%016x", header.MetadataChecksum),
		DataChecksum:     fmt.Sprintf("%016x", header.DataChecksum),
		NumVertices:      descriptor.NumVertices,
		UserDataLen:      descriptor.UserDataLen,
		UncompressedLen:  totalLen,
		CompressedLen:    len(data) - ima.HeaderSize - int(header.DescriptorLen),
	}
	if descriptor.Indices != nil {
		report.Indices = &indexReport{
			Count:  descriptor.Indices.NumIndices,
			Format: descriptor.Indices.Format.String(),
		}
	}
	for _, attr := range descriptor.Attributes {
		report.Attributes = append(report.Attributes, attrReport{
			Usage:  attr.Usage.String(),
			Format: attr.Format.String(),
			Size:   uint64(descriptor.NumVertices) * uint64(attr.Format.Size()),
		})
	}
	for _, mesh := range descriptor.Meshes {
		report.Meshes = append(report.Meshes, meshReport(mesh))
	}

	if *digests {
		buffers, err := reader.Full()
		if err != nil {
			return err
		}
		report.Digests = digestBuffers(buffers)
	} else if !*noVerify {
		if err := reader.VerifyData(); err != nil {
			return err
		}
	}

	return renderReport(&report, *output)
}

func digestBuffers(buffers *ima.Buffers) *digestsInfo {
	digests := &digestsInfo{Vertex: make([]string, len(buffers.Vertex))}
	if len(buffers.UserData) > 0 {
		sum := blake3.Sum256(buffers.UserData)
		digests.UserData = hex.EncodeToString(sum[:])
	}
	if buffers.Indices != nil {
		sum := blake3.Sum256(buffers.Indices)
		digests.Indices = hex.EncodeToString(sum[:])
	}
	for i, vertex := range buffers.Vertex {
		sum := blake3.Sum256(vertex)
		digests.Vertex[i] = hex.EncodeToString(sum[:])
	}
	return digests
}

func renderReport(report *infoReport, format string) error {
	switch format {
	case "json":
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		fmt.Println(string(encoded))
		return nil
	case "yaml":
		encoded, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		os.Stdout.Write(encoded)
		return nil
	case "text":
		printTextReport(report)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json, or yaml)", format)
	}
}

func printTextReport(report *infoReport) {
	fmt.Printf("%s: IMA version %d, %d bytes\n", report.File, report.Version, report.FileSize)
	fmt.Printf("  descriptor:   %d bytes, metadata checksum %s\n", report.DescriptorLen, report.MetadataChecksum)
	fmt.Printf("  payload:      %d bytes compressed, %d uncompressed, data checksum %s\n",
		report.CompressedLen, report.UncompressedLen, report.DataChecksum)
	fmt.Printf("  user data:    %d bytes\n", report.UserDataLen)
	if report.Indices != nil {
		fmt.Printf("  indices:      %d x %s\n", report.Indices.Count, report.Indices.Format)
	} else {
		fmt.Printf("  indices:      none\n")
	}
	fmt.Printf("  vertices:     %d\n", report.NumVertices)
	for i, attr := range report.Attributes {
		fmt.Printf("  attribute %d:  %s %s (%d bytes)\n", i, attr.Usage, attr.Format, attr.Size)
	}
	for i, mesh := range report.Meshes {
		fmt.Printf("  mesh %d:       vertices %d+%d, indices %d+%d\n",
			i, mesh.FirstVertex, mesh.VertexCount, mesh.FirstIndex, mesh.IndexCount)
	}
	if report.Digests != nil {
		if report.Digests.UserData != "" {
			fmt.Printf("  user-data digest: %s\n", report.Digests.UserData)
		}
		if report.Digests.Indices != "" {
			fmt.Printf("  index digest:     %s\n", report.Digests.Indices)
		}
		for i, digest := range report.Digests.Vertex {
			fmt.Printf("  vertex %d digest:  %s\n", i, digest)
		}
	}
}

func runCheck(arguments []string) error {
	flags := pflag.NewFlagSet("check", pflag.ContinueOnError)
	verbose := flags.Bool("verbose", false, "debug logging")
	if err := flags.Parse(arguments); err != nil {
		return err
	}
	setupLogging(*verbose)
	if flags.NArg() != 1 {
		return fmt.Errorf("check: exactly one input file required")
	}
	path := flags.Arg(0)

	data, err := readInput(path)
	if err != nil {
		return err
	}
	if err := ima.Verify(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Printf("%s: OK\n", path)
	return nil
}
