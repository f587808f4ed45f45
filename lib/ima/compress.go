// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

import (
	"bytes"
	"errors"
	"io"

	"github.com/klauspost/compress/zstd"
)

// The payload is a raw zstd frame: no magic bytes, no frame checksum,
// no dictionary id, no content size. The zstd magic is stripped after
// encoding and re-prepended before decoding; the frame checksum is
// disabled (the container carries its own rapidhash over the
// compressed bytes); the content size is implicit in the descriptor,
// which pledges the exact uncompressed length on both sides.
var zstdFrameMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// compressionWindow is the encoder window size. The format wants
// long-distance matching so identical geometry far apart in the
// concatenated buffers still folds together; the Go zstd
// implementation has no discrete LDM toggle, so an enlarged window
// serves that role.
const compressionWindow = 8 << 20

// DefaultCompressionLevel selects the encoder's strongest setting.
// The level is an encoder parameter only — it is not recorded in the
// file, and decoders never depend on it.
const DefaultCompressionLevel = 0

func encoderLevel(level int) zstd.EncoderLevel {
	if level <= 0 {
		return zstd.SpeedBestCompression
	}
	return zstd.EncoderLevelFromZstd(level)
}

// compressPayload streams the payload regions (user data, indices,
// vertex buffers, in order) through the zstd encoder and returns the
// raw frame.
func compressPayload(regions [][]byte, level int) ([]byte, error) {
	var frame bytes.Buffer
	encoder, err := zstd.NewWriter(&frame,
		zstd.WithEncoderLevel(encoderLevel(level)),
		zstd.WithEncoderCRC(false),
		zstd.WithWindowSize(compressionWindow),
		zstd.WithEncoderConcurrency(1),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		return nil, wrapf(ZstdError, err, "creating encoder")
	}
	for _, region := range regions {
		if _, err := encoder.Write(region); err != nil {
			encoder.Close()
			return nil, wrapf(ZstdError, err, "compressing payload")
		}
	}
	if err := encoder.Close(); err != nil {
		return nil, wrapf(ZstdError, err, "finishing frame")
	}

	// Strip the 4-byte zstd magic; the container stores the frame raw.
	encoded := frame.Bytes()
	if len(encoded) < len(zstdFrameMagic) || !bytes.Equal(encoded[:4], zstdFrameMagic) {
		return nil, errf(ZstdError, "encoder produced no frame header")
	}
	return encoded[4:], nil
}

// newPayloadDecoder opens a streaming decoder over a raw frame,
// re-prepending the stripped magic. Concurrency is 1 so the decoder
// consumes compressed bytes strictly on demand — reading a prefix of
// the output touches only a prefix of the input.
func newPayloadDecoder(compressed []byte) (*zstd.Decoder, error) {
	decoder, err := zstd.NewReader(
		io.MultiReader(bytes.NewReader(zstdFrameMagic), bytes.NewReader(compressed)),
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		return nil, wrapf(ZstdError, err, "creating decoder")
	}
	return decoder, nil
}

// decompressPrefix produces exactly n leading bytes of the
// uncompressed payload without decompressing the rest.
func decompressPrefix(compressed []byte, n uint64) ([]byte, error) {
	decoder, err := newPayloadDecoder(compressed)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	out := make([]byte, n)
	if _, err := io.ReadFull(decoder, out); err != nil {
		return nil, mapDecompressError(err, n)
	}
	return out, nil
}

// decompressAll produces the full uncompressed payload, which must be
// exactly total bytes: fewer is ShortDecompressedStream, more is
// LongDecompressedStream.
func decompressAll(compressed []byte, total uint64) ([]byte, error) {
	decoder, err := newPayloadDecoder(compressed)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	out := make([]byte, total)
	if _, err := io.ReadFull(decoder, out); err != nil {
		return nil, mapDecompressError(err, total)
	}

	// The stream must end exactly here.
	var probe [1]byte
	for {
		n, err := decoder.Read(probe[:])
		if n > 0 {
			return nil, errf(LongDecompressedStream, "payload continues past %d bytes", total)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, wrapf(ZstdError, err, "decompressing payload")
		}
	}
}

func mapDecompressError(err error, want uint64) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return errf(ShortDecompressedStream, "payload ends before %d bytes", want)
	}
	return wrapf(ZstdError, err, "decompressing payload")
}
