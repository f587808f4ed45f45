// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

// Package rapidhash implements the rapidhash 64-bit non-cryptographic
// hash function (version 1 constants).
//
// The IMA container format uses rapidhash with the algorithm's default
// seed for both of its checksums: the data checksum over the compressed
// payload and the metadata checksum over the encoded descriptor plus
// selected header fields. The algorithm identity is a wire-format
// constant — two independent implementations of the format must agree
// on every 64-bit output, so the function is implemented here rather
// than substituted with a different fast hash.
//
// The API surface is two entry points:
//
//   - [Sum64] -- one-shot hash of a byte slice with the default seed
//   - [Digest] -- an io.Writer-style accumulator for hashing several
//     non-contiguous regions as if they were concatenated
//
// A Digest produces the identical value as Sum64 over the concatenation
// of everything written, regardless of how the writes were chunked.
package rapidhash
