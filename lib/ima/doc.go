// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

// Package ima implements the IMA (Iyes Mesh Array) container format:
// GPU-ready mesh data — one or more mutually compatible meshes
// concatenated into shared vertex and index buffers — plus an opaque
// user-data blob, stored compressed behind a checksummed header.
//
// A file is Header ‖ DescriptorBytes ‖ CompressedData. The 24-byte
// header carries the magic, format version, descriptor length, and two
// rapidhash checksums. The descriptor (deterministic CBOR) declares
// the total vertex count, the mesh draw-range records, the index
// format, and the ordered vertex attributes; from it alone the exact
// uncompressed payload length is computable, which is why the zstd
// frame is stored raw with no content size of its own.
//
// The package is organized in layers, each usable independently:
//
//   - Descriptor: the typed metadata root with enumerated vertex
//     usages and formats, its deterministic encoding, and the
//     structural invariants every encode and decode enforces.
//
//   - Layout: per-buffer sizes derived from the descriptor, the
//     ordered region map of the uncompressed payload, and the
//     zero-copy split into user-data, index, and vertex views.
//
//   - Compression: a raw zstd frame (magic stripped, frame CRC off,
//     content size pledged from the descriptor) with the decoder
//     driven to exactly the descriptor-implied length.
//
//   - Checksums: rapidhash over the compressed payload, and over the
//     descriptor bytes plus selected header fields, so either kind of
//     corruption is caught before data is exposed.
//
//   - Reader/Writer: a staged reader (header → descriptor → verify →
//     user data or full payload) that validates before exposing any
//     view and poisons itself on the first error, and a writer that
//     assembles the file in memory so partial output never validates.
//
//   - Builder: the multi-mesh entry point — validates source meshes
//     for mutual compatibility, concatenates their buffers, generates
//     the MeshInfo records, and optionally up-converts U16 indices to
//     U32 when sources mix formats.
//
// The codec holds no global mutable state and performs no logging;
// distinct operations on disjoint inputs are safe to run in parallel.
// MeshInfo records map directly onto multi-draw-indirect per-draw
// parameters: a loader can upload the decoded buffers verbatim and
// issue one indirect draw per record.
package ima
