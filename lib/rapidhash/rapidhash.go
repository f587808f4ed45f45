// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package rapidhash

import (
	"encoding/binary"
	"math/bits"
)

// DefaultSeed is the rapidhash default seed (RAPID_SEED in the
// reference implementation). Both IMA checksums use it.
const DefaultSeed uint64 = 0xbdd89aa982704029

// The three secret constants from the reference implementation.
// Protocol constants — changing them changes every hash value.
const (
	secret0 uint64 = 0x2d358dccaa6c78a5
	secret1 uint64 = 0x8bb84b93962eacc9
	secret2 uint64 = 0x4b33a62ed433d4a3
)

// Sum64 returns the rapidhash of data with the default seed.
func Sum64(data []byte) uint64 {
	return sum64(data, DefaultSeed)
}

// mum is the 64x64→128 multiply-and-split primitive: returns the low
// and high halves of a*b.
func mum(a, b uint64) (uint64, uint64) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi
}

// mix folds the 128-bit product of a and b into 64 bits.
func mix(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return lo ^ hi
}

func read32(p []byte) uint64 {
	return uint64(binary.LittleEndian.Uint32(p))
}

func read64(p []byte) uint64 {
	return binary.LittleEndian.Uint64(p)
}

// sum64 is rapidhash_internal from the reference, operating on a
// complete input with a caller-supplied seed.
func sum64(p []byte, seed uint64) uint64 {
	n := uint64(len(p))
	seed ^= mix(seed^secret0, secret1) ^ n

	var a, b uint64
	if n <= 16 {
		switch {
		case n >= 4:
			last := n - 4
			a = read32(p)<<32 | read32(p[last:])
			// delta selects the middle words: 0 for 4..7 byte
			// inputs, 4 for 8..16 byte inputs.
			delta := (n & 24) >> (n >> 3)
			b = read32(p[delta:])<<32 | read32(p[last-delta:])
		case n > 0:
			a = uint64(p[0])<<56 | uint64(p[n>>1])<<32 | uint64(p[n-1])
		}
	} else {
		i := n
		var off uint64
		if i > 48 {
			see1, see2 := seed, seed
			for i >= 48 {
				seed = mix(read64(p[off:])^secret0, read64(p[off+8:])^seed)
				see1 = mix(read64(p[off+16:])^secret1, read64(p[off+24:])^see1)
				see2 = mix(read64(p[off+32:])^secret2, read64(p[off+40:])^see2)
				off += 48
				i -= 48
			}
			seed ^= see1 ^ see2
		}
		if i > 16 {
			seed = mix(read64(p[off:])^secret2, read64(p[off+8:])^seed^secret1)
			if i > 32 {
				seed = mix(read64(p[off+16:])^secret2, read64(p[off+24:])^seed)
			}
		}
		// The final 16 bytes of the input, which may reach back into
		// an already-consumed block.
		a = read64(p[off+i-16:])
		b = read64(p[off+i-8:])
	}

	a ^= secret1
	b ^= seed
	a, b = mum(a, b)
	return mix(a^secret0^n, b^secret1)
}

// Digest accumulates bytes for a single rapidhash computation. Sum64
// hashes everything written so far as one contiguous input, so the
// result is independent of write chunking.
//
// The digest buffers its input until Sum64 is called: the rapidhash
// finalizer needs the total length and the final 16 bytes, and IMA
// only ever streams small bounded regions through it (the encoded
// descriptor is at most 64 KiB).
type Digest struct {
	seed uint64
	buf  []byte
}

// New returns a Digest seeded with DefaultSeed.
func New() *Digest {
	return &Digest{seed: DefaultSeed}
}

// Write appends p to the pending input. It never fails; the error
// return satisfies io.Writer.
func (d *Digest) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	return len(p), nil
}

// Sum64 returns the hash of everything written since the last Reset.
// The digest remains usable: further writes extend the same input.
func (d *Digest) Sum64() uint64 {
	return sum64(d.buf, d.seed)
}

// Reset discards all pending input.
func (d *Digest) Reset() {
	d.buf = d.buf[:0]
}
