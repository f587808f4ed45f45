// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

import "encoding/binary"

// Format constants. An IMA file is Header ‖ DescriptorBytes ‖
// CompressedData; the compressed length is implicit (everything after
// the descriptor).
const (
	// Magic is the 4-byte file signature at offset 0.
	Magic = "IyMA"

	// FormatVersion is the container version this codec reads and
	// writes. The header's 16-bit version field gates future
	// revisions; version 1 rejects anything it does not recognize.
	FormatVersion = 1

	// HeaderSize is the fixed header: 4-byte magic + 2-byte version +
	// 2-byte descriptor length + 8-byte metadata checksum + 8-byte
	// data checksum. All integers little-endian.
	HeaderSize = 24

	// maxDescriptorLen is the largest encodable descriptor; the
	// header's descriptor_len field is 16 bits.
	maxDescriptorLen = 65535
)

// Header is the decoded fixed-size file header.
type Header struct {
	Version          uint16
	DescriptorLen    uint16
	MetadataChecksum uint64
	DataChecksum     uint64
}

// appendHeader serializes h onto dst in the fixed little-endian
// layout.
func appendHeader(dst []byte, h Header) []byte {
	dst = append(dst, Magic...)
	dst = binary.LittleEndian.AppendUint16(dst, h.Version)
	dst = binary.LittleEndian.AppendUint16(dst, h.DescriptorLen)
	dst = binary.LittleEndian.AppendUint64(dst, h.MetadataChecksum)
	dst = binary.LittleEndian.AppendUint64(dst, h.DataChecksum)
	return dst
}

// parseHeader validates and decodes the fixed header at the start of
// file.
func parseHeader(file []byte) (Header, error) {
	if len(file) < HeaderSize {
		return Header{}, errf(TooShort, "got %d bytes, header needs %d", len(file), HeaderSize)
	}
	if string(file[0:4]) != Magic {
		return Header{}, errf(BadMagic, "got % x", file[0:4])
	}
	header := Header{
		Version:          binary.LittleEndian.Uint16(file[4:6]),
		DescriptorLen:    binary.LittleEndian.Uint16(file[6:8]),
		MetadataChecksum: binary.LittleEndian.Uint64(file[8:16]),
		DataChecksum:     binary.LittleEndian.Uint64(file[16:24]),
	}
	if header.Version != FormatVersion {
		return Header{}, errf(UnsupportedVersion, "version %d, this codec implements %d",
			header.Version, FormatVersion)
	}
	return header, nil
}

// SniffMagic reports whether data begins with the IMA file signature.
// A cheap probe for format dispatch; it validates nothing else.
func SniffMagic(data []byte) bool {
	return len(data) >= 4 && string(data[0:4]) == Magic
}
