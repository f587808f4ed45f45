// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

import (
	"encoding/binary"

	"github.com/iyesmesh/iyesmesh-go/lib/rapidhash"
)

// dataChecksum hashes the compressed payload as stored in the file.
func dataChecksum(compressed []byte) uint64 {
	return rapidhash.Sum64(compressed)
}

// metadataChecksum hashes the encoded descriptor followed by the
// little-endian descriptor length and data checksum, exactly as they
// appear in the header.
func metadataChecksum(descriptorBytes []byte, descriptorLen uint16, dataSum uint64) uint64 {
	digest := rapidhash.New()
	digest.Write(descriptorBytes)
	var tail [10]byte
	binary.LittleEndian.PutUint16(tail[0:2], descriptorLen)
	binary.LittleEndian.PutUint64(tail[2:10], dataSum)
	digest.Write(tail[:])
	return digest.Sum64()
}
