// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

import (
	"errors"
	"fmt"
)

// ErrorKind identifies one failure site in the codec. Every error the
// codec produces carries exactly one kind; errors are never recovered
// internally, so the kind pinpoints where an operation aborted.
type ErrorKind uint8

const (
	// Structural errors from the fixed-size header.

	// TooShort: the input ends before the 24-byte header is complete.
	TooShort ErrorKind = iota + 1
	// BadMagic: the input does not start with the "IyMA" signature.
	BadMagic
	// UnsupportedVersion: the header's version field is not a version
	// this codec implements.
	UnsupportedVersion
	// DescriptorTooLarge: the encoded descriptor exceeds the 16-bit
	// header length field. Writer only.
	DescriptorTooLarge

	// Descriptor errors.

	// TruncatedDescriptor: the descriptor region ends before the
	// encoding is complete.
	TruncatedDescriptor
	// TrailingDescriptorBytes: bytes remain in the descriptor region
	// after the encoding decoded to completion.
	TrailingDescriptorBytes
	// UnknownVariantTag: a vertex usage, vertex format, or index
	// format tag is not recognized at this format version, or a
	// variant is structurally malformed.
	UnknownVariantTag
	// InvalidUtf8: a custom usage name is not valid UTF-8.
	InvalidUtf8
	// InvalidDescriptor: a decoded or caller-supplied descriptor
	// violates a structural invariant (duplicate attribute identity,
	// index records without an index buffer, or a mesh range outside
	// its buffer).
	InvalidDescriptor
	// DescriptorSizeOverflow: the descriptor's buffer sizes overflow
	// 64-bit arithmetic.
	DescriptorSizeOverflow

	// Checksum errors.

	// MetadataChecksumMismatch: the header's metadata checksum does
	// not match the recomputed hash over the descriptor bytes,
	// descriptor length, and data checksum.
	MetadataChecksumMismatch
	// DataChecksumMismatch: the header's data checksum does not match
	// the hash of the compressed payload.
	DataChecksumMismatch

	// Payload errors.

	// ShortDecompressedStream: the compressed payload produced fewer
	// bytes than the descriptor promises.
	ShortDecompressedStream
	// LongDecompressedStream: the compressed payload produced more
	// bytes than the descriptor promises.
	LongDecompressedStream
	// ZstdError: the compression layer failed; the underlying zstd
	// error is wrapped and reachable via errors.Unwrap.
	ZstdError
	// BufferSizeMismatch: a buffer handed to the writer or the Builder,
	// or a payload handed to Split, does not match the size the
	// descriptor requires for it.
	BufferSizeMismatch

	// Reader state errors.

	// ReaderPoisoned: a previous operation on this reader failed; the
	// reader is terminally unusable.
	ReaderPoisoned
	// StageOutOfOrder: a read stage was invoked out of sequence (for
	// example user data before the descriptor).
	StageOutOfOrder
)

var errorKindNames = map[ErrorKind]string{
	TooShort:                 "file too short",
	BadMagic:                 "bad magic bytes",
	UnsupportedVersion:       "unsupported format version",
	DescriptorTooLarge:       "descriptor too large",
	TruncatedDescriptor:      "truncated descriptor",
	TrailingDescriptorBytes:  "trailing descriptor bytes",
	UnknownVariantTag:        "unknown variant tag",
	InvalidUtf8:              "invalid utf-8",
	InvalidDescriptor:        "invalid descriptor",
	DescriptorSizeOverflow:   "descriptor size overflow",
	MetadataChecksumMismatch: "metadata checksum mismatch",
	DataChecksumMismatch:     "data checksum mismatch",
	ShortDecompressedStream:  "short decompressed stream",
	LongDecompressedStream:   "long decompressed stream",
	ZstdError:                "zstd error",
	BufferSizeMismatch:       "buffer size mismatch",
	ReaderPoisoned:           "reader poisoned",
	StageOutOfOrder:          "read stage out of order",
}

// String returns the single-line human message for the kind. This is
// what the CLI prints, one line per failure.
func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown error kind (%d)", k)
}

// Error is the codec's error type: a kind plus contextual detail
// (offsets, computed vs expected checksums, the offending tag).
type Error struct {
	Kind   ErrorKind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

// Unwrap exposes the underlying cause (set for ZstdError).
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports kind equality, so errors.Is(err, &ima.Error{Kind: k})
// matches any error of that kind regardless of detail.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == e.Kind
}

// Kind extracts the ErrorKind from err, or zero if err did not come
// from this codec.
func Kind(err error) ErrorKind {
	var codecErr *Error
	if errors.As(err, &codecErr) {
		return codecErr.Kind
	}
	return 0
}

// errf builds an *Error with formatted detail.
func errf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// wrapf builds an *Error with formatted detail and an underlying
// cause.
func wrapf(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), cause: cause}
}
