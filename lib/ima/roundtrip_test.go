// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// readAll opens a file with default options and runs it through the
// full staged read.
func readAll(t *testing.T, file []byte) (*Descriptor, *Buffers) {
	t.Helper()
	reader, err := Open(file)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	descriptor, err := reader.Descriptor()
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	buffers, err := reader.Full()
	if err != nil {
		t.Fatalf("Full: %v", err)
	}
	return descriptor, buffers
}

func TestMinimumFile(t *testing.T) {
	// S1: empty descriptor, no buffers.
	descriptor := &Descriptor{}
	file, err := Write(descriptor, &Buffers{}, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	header, err := parseHeader(file)
	if err != nil {
		t.Fatalf("parseHeader: %v", err)
	}
	// Header, then the descriptor, then a (non-empty) empty frame.
	if want := HeaderSize + int(header.DescriptorLen); len(file) <= want {
		t.Fatalf("file is %d bytes, expected compressed data after offset %d", len(file), want)
	}

	decoded, buffers := readAll(t, file)
	if decoded.NumVertices != 0 || decoded.UserDataLen != 0 ||
		len(decoded.Meshes) != 0 || decoded.Indices != nil || len(decoded.Attributes) != 0 {
		t.Errorf("decoded descriptor is not empty: %+v", decoded)
	}
	if len(buffers.UserData) != 0 || buffers.Indices != nil || len(buffers.Vertex) != 0 {
		t.Errorf("decoded buffers are not empty")
	}

	if err := Verify(file); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestUserDataOnlyFile(t *testing.T) {
	// S2: four bytes of user data, nothing else.
	userData := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	descriptor := &Descriptor{UserDataLen: 4}
	file, err := Write(descriptor, &Buffers{UserData: userData}, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	reader, err := Open(file)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := reader.Descriptor(); err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	got, err := reader.UserData()
	if err != nil {
		t.Fatalf("UserData: %v", err)
	}
	if !bytes.Equal(got, userData) {
		t.Errorf("UserData = % x, want % x", got, userData)
	}

	// Flipping the first descriptor byte must break the metadata
	// checksum.
	corrupted := append([]byte(nil), file...)
	corrupted[HeaderSize] ^= 0x01
	corruptedReader, err := Open(corrupted)
	if err != nil {
		t.Fatalf("Open(corrupted): %v", err)
	}
	if _, err := corruptedReader.Descriptor(); Kind(err) != MetadataChecksumMismatch {
		t.Errorf("corrupted descriptor byte: got %v, want MetadataChecksumMismatch", err)
	}
}

func TestSingleTriangleNoIndices(t *testing.T) {
	// S3: three vertices, one position attribute, one mesh record.
	vertexData := make([]byte, 36)
	for i := range vertexData {
		vertexData[i] = byte(i)
	}
	descriptor := &Descriptor{
		NumVertices: 3,
		Meshes:      []MeshInfo{{FirstVertex: 0, VertexCount: 3}},
		Attributes:  []VertexAttribute{{Usage: Position, Format: Float32x3}},
	}
	file, err := Write(descriptor, &Buffers{Vertex: [][]byte{vertexData}}, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	decoded, buffers := readAll(t, file)
	if len(decoded.Meshes) != 1 || decoded.Meshes[0].VertexCount != 3 {
		t.Errorf("decoded mesh = %+v, want vertex_count 3", decoded.Meshes)
	}
	if !bytes.Equal(buffers.Vertex[0], vertexData) {
		t.Error("vertex bytes do not round-trip")
	}
}

func TestTwoMeshesSharedBuffers(t *testing.T) {
	// S4: two meshes partitioning one vertex buffer and one U16 index
	// buffer.
	vertexData := make([]byte, 8*12)
	for i := range vertexData {
		vertexData[i] = byte(i * 3)
	}
	indexData := make([]byte, 12*2)
	for i := 0; i < 12; i++ {
		binary.LittleEndian.PutUint16(indexData[i*2:], uint16(i%4))
	}
	descriptor := &Descriptor{
		NumVertices: 8,
		Indices:     &IndicesInfo{NumIndices: 12, Format: IndexU16},
		Meshes: []MeshInfo{
			{FirstIndex: 0, IndexCount: 6, FirstVertex: 0, VertexCount: 4},
			{FirstIndex: 6, IndexCount: 6, FirstVertex: 4, VertexCount: 4},
		},
		Attributes: []VertexAttribute{{Usage: Position, Format: Float32x3}},
	}
	file, err := Write(descriptor, &Buffers{Indices: indexData, Vertex: [][]byte{vertexData}}, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	decoded, buffers := readAll(t, file)
	if !bytes.Equal(buffers.Indices, indexData) || !bytes.Equal(buffers.Vertex[0], vertexData) {
		t.Fatal("shared buffers do not round-trip")
	}

	// Extract each mesh and compare against the pre-encode partition.
	first, err := ExtractMesh(decoded, buffers, 0)
	if err != nil {
		t.Fatalf("ExtractMesh(0): %v", err)
	}
	second, err := ExtractMesh(decoded, buffers, 1)
	if err != nil {
		t.Fatalf("ExtractMesh(1): %v", err)
	}
	if !bytes.Equal(first.Indices, indexData[0:12]) || !bytes.Equal(second.Indices, indexData[12:24]) {
		t.Error("extracted index ranges mismatch")
	}
	if !bytes.Equal(first.Vertex[0], vertexData[0:48]) || !bytes.Equal(second.Vertex[0], vertexData[48:96]) {
		t.Error("extracted vertex ranges mismatch")
	}
}

func TestCustomAttributeRoundtrip(t *testing.T) {
	// S5: a custom attribute with id and name.
	vertexData := make([]byte, 2*8)
	descriptor := &Descriptor{
		NumVertices: 2,
		Attributes:  []VertexAttribute{{Usage: Custom(7, "foo"), Format: Uint16x4}},
	}
	file, err := Write(descriptor, &Buffers{Vertex: [][]byte{vertexData}}, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	decoded, _ := readAll(t, file)
	usage := decoded.Attributes[0].Usage
	if usage.Kind != UsageCustom || usage.CustomID != 7 || usage.CustomName != "foo" {
		t.Errorf("decoded usage = %+v", usage)
	}

	// A second attribute with the same id but a different name is
	// rejected at encode.
	dup := &Descriptor{
		NumVertices: 2,
		Attributes: []VertexAttribute{
			{Usage: Custom(7, "foo"), Format: Uint16x4},
			{Usage: Custom(7, "other"), Format: Uint16x4},
		},
	}
	_, err = Write(dup, &Buffers{Vertex: [][]byte{vertexData, vertexData}}, DefaultCompressionLevel)
	if Kind(err) != InvalidDescriptor {
		t.Fatalf("duplicate custom id: got %v, want InvalidDescriptor", err)
	}

	// A distinct id is accepted.
	dup.Attributes[1].Usage = Custom(8, "other")
	if _, err := Write(dup, &Buffers{Vertex: [][]byte{vertexData, vertexData}}, DefaultCompressionLevel); err != nil {
		t.Fatalf("distinct custom ids: %v", err)
	}
}

func TestTruncationSweep(t *testing.T) {
	// S6: every truncation point maps to the right error class.
	file := encodeFixtureFile(t)
	header, err := parseHeader(file)
	if err != nil {
		t.Fatalf("parseHeader: %v", err)
	}
	descriptorEnd := HeaderSize + int(header.DescriptorLen)

	for cut := 0; cut < len(file); cut++ {
		truncated := file[:cut]
		var kind ErrorKind
		if reader, err := Open(truncated); err != nil {
			kind = Kind(err)
		} else if _, err := reader.Descriptor(); err != nil {
			kind = Kind(err)
		} else if err := reader.VerifyData(); err != nil {
			kind = Kind(err)
		}

		switch {
		case cut < HeaderSize:
			if kind != TooShort {
				t.Fatalf("cut %d: got %v, want TooShort", cut, kind)
			}
		case cut < descriptorEnd:
			if kind != TruncatedDescriptor {
				t.Fatalf("cut %d: got %v, want TruncatedDescriptor", cut, kind)
			}
		default:
			if kind != DataChecksumMismatch {
				t.Fatalf("cut %d: got %v, want DataChecksumMismatch", cut, kind)
			}
		}
	}
}

func TestDescriptorRegionBitFlips(t *testing.T) {
	// Property 3: any single-bit flip in the descriptor region is
	// caught by the metadata checksum (it covers every descriptor
	// byte, so no flip can slip past to the decoder).
	file := encodeFixtureFile(t)
	header, err := parseHeader(file)
	if err != nil {
		t.Fatalf("parseHeader: %v", err)
	}
	descriptorEnd := HeaderSize + int(header.DescriptorLen)

	for offset := HeaderSize; offset < descriptorEnd; offset++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte(nil), file...)
			corrupted[offset] ^= 1 << bit
			reader, err := Open(corrupted)
			if err != nil {
				t.Fatalf("offset %d bit %d: Open: %v", offset, bit, err)
			}
			if _, err := reader.Descriptor(); Kind(err) != MetadataChecksumMismatch {
				t.Fatalf("offset %d bit %d: got %v, want MetadataChecksumMismatch", offset, bit, err)
			}
		}
	}
}

func TestPayloadBitFlips(t *testing.T) {
	// Property 4: any single-bit flip in the compressed payload is
	// caught by the data checksum.
	file := encodeFixtureFile(t)
	header, err := parseHeader(file)
	if err != nil {
		t.Fatalf("parseHeader: %v", err)
	}
	payloadStart := HeaderSize + int(header.DescriptorLen)

	for offset := payloadStart; offset < len(file); offset++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte(nil), file...)
			corrupted[offset] ^= 1 << bit
			if err := Verify(corrupted); Kind(err) != DataChecksumMismatch {
				t.Fatalf("offset %d bit %d: got %v, want DataChecksumMismatch", offset, bit, err)
			}
		}
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	first := encodeFixtureFile(t)
	second := encodeFixtureFile(t)
	if !bytes.Equal(first, second) {
		t.Fatal("two writes of the same input differ")
	}
}

func TestReencodeReproducesFile(t *testing.T) {
	// Decoding a file and re-encoding descriptor and buffers at the
	// same level reproduces it byte for byte.
	file := encodeFixtureFile(t)
	descriptor, buffers := readAll(t, file)
	again, err := Write(descriptor, buffers, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(file, again) {
		t.Fatal("re-encoded file differs from the original")
	}
}

func TestWriteRejectsMismatchedBuffers(t *testing.T) {
	descriptor := &Descriptor{
		NumVertices: 3,
		UserDataLen: 2,
		Attributes:  []VertexAttribute{{Usage: Position, Format: Float32x3}},
	}

	cases := []struct {
		name    string
		buffers Buffers
	}{
		{"wrong user data length", Buffers{UserData: []byte{1}, Vertex: [][]byte{make([]byte, 36)}}},
		{"missing vertex buffer", Buffers{UserData: []byte{1, 2}}},
		{"wrong vertex buffer size", Buffers{UserData: []byte{1, 2}, Vertex: [][]byte{make([]byte, 35)}}},
		{"unexpected index buffer", Buffers{UserData: []byte{1, 2}, Indices: []byte{0, 0}, Vertex: [][]byte{make([]byte, 36)}}},
	}
	for _, c := range cases {
		if _, err := Write(descriptor, &c.buffers, DefaultCompressionLevel); Kind(err) != BufferSizeMismatch {
			t.Errorf("%s: got %v, want BufferSizeMismatch", c.name, err)
		}
	}
}

func TestWriteVariousLevels(t *testing.T) {
	// Any valid zstd level produces a readable file; the level itself
	// is not recorded.
	descriptor := &Descriptor{
		NumVertices: 64,
		Attributes:  []VertexAttribute{{Usage: Position, Format: Float32x3}},
	}
	vertexData := bytes.Repeat([]byte{1, 2, 3, 4, 5, 6}, 128)
	for _, level := range []int{DefaultCompressionLevel, 1, 3, 19} {
		file, err := Write(descriptor, &Buffers{Vertex: [][]byte{vertexData}}, level)
		if err != nil {
			t.Fatalf("level %d: Write: %v", level, err)
		}
		_, buffers := readAll(t, file)
		if !bytes.Equal(buffers.Vertex[0], vertexData) {
			t.Errorf("level %d: payload does not round-trip", level)
		}
	}
}

// encodeFixtureFile writes a small indexed two-attribute file with
// user data; several tests corrupt or truncate it.
func encodeFixtureFile(t *testing.T) []byte {
	t.Helper()
	vertexPositions := make([]byte, 8*12)
	vertexUvs := make([]byte, 8*4)
	for i := range vertexPositions {
		vertexPositions[i] = byte(i * 5)
	}
	for i := range vertexUvs {
		vertexUvs[i] = byte(i * 11)
	}
	indexData := make([]byte, 12*2)
	for i := 0; i < 12; i++ {
		binary.LittleEndian.PutUint16(indexData[i*2:], uint16(i%4))
	}
	descriptor := &Descriptor{
		NumVertices: 8,
		UserDataLen: 5,
		Indices:     &IndicesInfo{NumIndices: 12, Format: IndexU16},
		Meshes: []MeshInfo{
			{FirstIndex: 0, IndexCount: 6, FirstVertex: 0, VertexCount: 4},
			{FirstIndex: 6, IndexCount: 6, FirstVertex: 4, VertexCount: 4},
		},
		Attributes: []VertexAttribute{
			{Usage: Position, Format: Float32x3},
			{Usage: Uv, Format: Float16x2},
		},
	}
	buffers := &Buffers{
		UserData: []byte("hello"),
		Indices:  indexData,
		Vertex:   [][]byte{vertexPositions, vertexUvs},
	}
	file, err := Write(descriptor, buffers, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("Write fixture: %v", err)
	}
	return file
}
