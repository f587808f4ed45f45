// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

import (
	"bytes"
	"testing"
)

func TestVertexFormatSizes(t *testing.T) {
	// Spot-check the stride table against the format definition.
	cases := []struct {
		format VertexFormat
		want   int
	}{
		{Float16, 2},
		{Float32, 4},
		{Float64, 8},
		{Float32x3, 12},
		{Float64x4, 32},
		{Sint8, 1},
		{Sint32x3, 12},
		{Snorm16x4, 8},
		{Uint8x4, 4},
		{Uint16x4, 8},
		{Unorm8x4Bgra, 4},
		{Unorm1010102, 4},
		{Unorm16x2, 4},
	}
	for _, c := range cases {
		if got := c.format.Size(); got != c.want {
			t.Errorf("%s.Size() = %d, want %d", c.format, got, c.want)
		}
	}

	// Every variant must have a positive stride and a name.
	for format := VertexFormat(0); format < vertexFormatCount; format++ {
		if format.Size() <= 0 {
			t.Errorf("%s has stride %d", format, format.Size())
		}
		if vertexFormatNames[format] == "" {
			t.Errorf("format %d has no name", format)
		}
	}
}

func TestIndexFormatSizes(t *testing.T) {
	if got := IndexU16.Size(); got != 2 {
		t.Errorf("IndexU16.Size() = %d, want 2", got)
	}
	if got := IndexU32.Size(); got != 4 {
		t.Errorf("IndexU32.Size() = %d, want 4", got)
	}
}

func TestUsageIdentity(t *testing.T) {
	// The custom name is informational: two customs with the same id
	// share an identity regardless of name.
	if Custom(7, "foo").Identity() != Custom(7, "bar").Identity() {
		t.Error("custom usages with the same id should share identity")
	}
	if Custom(7, "foo").Identity() == Custom(8, "foo").Identity() {
		t.Error("custom usages with different ids should differ")
	}
	if Position.Identity() == Normal.Identity() {
		t.Error("distinct built-in usages should differ")
	}
}

func TestValidateAcceptsTypicalDescriptor(t *testing.T) {
	descriptor := &Descriptor{
		NumVertices: 8,
		Indices:     &IndicesInfo{NumIndices: 12, Format: IndexU16},
		Meshes: []MeshInfo{
			{FirstIndex: 0, IndexCount: 6, FirstVertex: 0, VertexCount: 4},
			{FirstIndex: 6, IndexCount: 6, FirstVertex: 4, VertexCount: 4},
		},
		Attributes: []VertexAttribute{
			{Usage: Position, Format: Float32x3},
			{Usage: Normal, Format: Float32x3},
			{Usage: Custom(1, "lightmap-uv"), Format: Float32x2},
		},
	}
	if err := descriptor.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsDuplicateUsage(t *testing.T) {
	descriptor := &Descriptor{
		NumVertices: 4,
		Attributes: []VertexAttribute{
			{Usage: Position, Format: Float32x3},
			{Usage: Position, Format: Float16x4},
		},
	}
	if kind := Kind(descriptor.Validate()); kind != InvalidDescriptor {
		t.Fatalf("duplicate usage: got kind %v, want InvalidDescriptor", kind)
	}
}

func TestValidateRejectsDuplicateCustomID(t *testing.T) {
	// Same id, different names: still the same identity.
	descriptor := &Descriptor{
		NumVertices: 2,
		Attributes: []VertexAttribute{
			{Usage: Custom(7, "foo"), Format: Uint16x4},
			{Usage: Custom(7, "bar"), Format: Uint16x4},
		},
	}
	if kind := Kind(descriptor.Validate()); kind != InvalidDescriptor {
		t.Fatalf("duplicate custom id: got kind %v, want InvalidDescriptor", kind)
	}

	// Distinct ids coexist.
	descriptor.Attributes[1].Usage = Custom(8, "bar")
	if err := descriptor.Validate(); err != nil {
		t.Fatalf("distinct custom ids: %v", err)
	}
}

func TestValidateRejectsIndexRangeWithoutIndices(t *testing.T) {
	descriptor := &Descriptor{
		NumVertices: 3,
		Meshes:      []MeshInfo{{FirstIndex: 0, IndexCount: 3, VertexCount: 3}},
		Attributes:  []VertexAttribute{{Usage: Position, Format: Float32x3}},
	}
	if kind := Kind(descriptor.Validate()); kind != InvalidDescriptor {
		t.Fatalf("index range without indices: got kind %v, want InvalidDescriptor", kind)
	}

	// first_index must also be zero.
	descriptor.Meshes[0] = MeshInfo{FirstIndex: 1, VertexCount: 3}
	if kind := Kind(descriptor.Validate()); kind != InvalidDescriptor {
		t.Fatalf("nonzero first_index without indices: got kind %v, want InvalidDescriptor", kind)
	}
}

func TestValidateRejectsOutOfBoundsRanges(t *testing.T) {
	descriptor := &Descriptor{
		NumVertices: 4,
		Indices:     &IndicesInfo{NumIndices: 6, Format: IndexU32},
		Meshes:      []MeshInfo{{FirstIndex: 3, IndexCount: 4, FirstVertex: 0, VertexCount: 4}},
		Attributes:  []VertexAttribute{{Usage: Position, Format: Float32x3}},
	}
	if kind := Kind(descriptor.Validate()); kind != InvalidDescriptor {
		t.Fatalf("index overrun: got kind %v, want InvalidDescriptor", kind)
	}

	descriptor.Meshes[0] = MeshInfo{FirstIndex: 0, IndexCount: 6, FirstVertex: 2, VertexCount: 3}
	if kind := Kind(descriptor.Validate()); kind != InvalidDescriptor {
		t.Fatalf("vertex overrun: got kind %v, want InvalidDescriptor", kind)
	}

	// Ranges that touch the end exactly are fine.
	descriptor.Meshes[0] = MeshInfo{FirstIndex: 0, IndexCount: 6, FirstVertex: 0, VertexCount: 4}
	if err := descriptor.Validate(); err != nil {
		t.Fatalf("exact-fit ranges: %v", err)
	}
}

func TestValidateAcceptsBuffersWithoutMeshRecords(t *testing.T) {
	// A file with buffers but no draw-range records is legal.
	descriptor := &Descriptor{
		NumVertices: 16,
		Indices:     &IndicesInfo{NumIndices: 24, Format: IndexU16},
		Attributes:  []VertexAttribute{{Usage: Position, Format: Float32x3}},
	}
	if err := descriptor.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDescriptorCodecRoundtrip(t *testing.T) {
	original := &Descriptor{
		NumVertices: 8,
		UserDataLen: 32,
		Indices:     &IndicesInfo{NumIndices: 12, Format: IndexU16},
		Meshes: []MeshInfo{
			{FirstIndex: 0, IndexCount: 6, FirstVertex: 0, VertexCount: 4},
			{FirstIndex: 6, IndexCount: 6, FirstVertex: 4, VertexCount: 4},
		},
		Attributes: []VertexAttribute{
			{Usage: Position, Format: Float32x3},
			{Usage: Uv, Format: Float32x2},
			{Usage: Custom(3, "wind-weights"), Format: Unorm8x4},
		},
	}

	encoded, err := encodeDescriptor(original)
	if err != nil {
		t.Fatalf("encodeDescriptor: %v", err)
	}

	// Deterministic: same value, same bytes.
	again, err := encodeDescriptor(original)
	if err != nil {
		t.Fatalf("encodeDescriptor (second): %v", err)
	}
	if !bytes.Equal(encoded, again) {
		t.Fatal("encoding is not deterministic")
	}

	decoded, err := decodeDescriptor(encoded)
	if err != nil {
		t.Fatalf("decodeDescriptor: %v", err)
	}
	assertDescriptorsEqual(t, original, decoded)
}

func TestDescriptorCodecNoIndices(t *testing.T) {
	original := &Descriptor{
		NumVertices: 3,
		Meshes:      []MeshInfo{{VertexCount: 3}},
		Attributes:  []VertexAttribute{{Usage: Position, Format: Float32x3}},
	}
	encoded, err := encodeDescriptor(original)
	if err != nil {
		t.Fatalf("encodeDescriptor: %v", err)
	}
	decoded, err := decodeDescriptor(encoded)
	if err != nil {
		t.Fatalf("decodeDescriptor: %v", err)
	}
	if decoded.Indices != nil {
		t.Error("decoded descriptor has indices, original had none")
	}
	assertDescriptorsEqual(t, original, decoded)
}

func TestDecodeDescriptorTruncated(t *testing.T) {
	encoded, err := encodeDescriptor(&Descriptor{
		NumVertices: 3,
		Attributes:  []VertexAttribute{{Usage: Position, Format: Float32x3}},
	})
	if err != nil {
		t.Fatalf("encodeDescriptor: %v", err)
	}
	for cut := 0; cut < len(encoded); cut++ {
		_, err := decodeDescriptor(encoded[:cut])
		if Kind(err) != TruncatedDescriptor {
			t.Fatalf("cut at %d: got %v, want TruncatedDescriptor", cut, err)
		}
	}
}

func TestDecodeDescriptorTrailingBytes(t *testing.T) {
	encoded, err := encodeDescriptor(&Descriptor{UserDataLen: 1})
	if err != nil {
		t.Fatalf("encodeDescriptor: %v", err)
	}
	_, err = decodeDescriptor(append(append([]byte(nil), encoded...), 0x00))
	if Kind(err) != TrailingDescriptorBytes {
		t.Fatalf("got %v, want TrailingDescriptorBytes", err)
	}
}

func TestDecodeDescriptorUnknownTags(t *testing.T) {
	// An out-of-range vertex format tag.
	badFormat := descriptorWire{
		NumVertices: 1,
		Attributes: []attributeWire{
			{Usage: usageWire{usage: Position}, Format: 200},
		},
	}
	encoded, err := descEncMode.Marshal(badFormat)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := decodeDescriptor(encoded); Kind(err) != UnknownVariantTag {
		t.Fatalf("bad vertex format: got %v, want UnknownVariantTag", err)
	}

	// An out-of-range index format tag.
	badIndex := descriptorWire{
		Indices: &indicesInfoWire{NumIndices: 3, Format: 9},
	}
	encoded, err = descEncMode.Marshal(badIndex)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := decodeDescriptor(encoded); Kind(err) != UnknownVariantTag {
		t.Fatalf("bad index format: got %v, want UnknownVariantTag", err)
	}

	// A bare usage tag in the custom range must travel as the custom
	// array form; as a bare tag it is unrecognized.
	type rawAttribute struct {
		_      struct{} `cbor:",toarray"`
		Usage  uint64
		Format uint64
	}
	type rawDescriptor struct {
		_           struct{} `cbor:",toarray"`
		NumVertices uint32
		UserDataLen uint32
		Meshes      []meshInfoWire
		Indices     *indicesInfoWire
		Attributes  []rawAttribute
	}
	encoded, err = descEncMode.Marshal(rawDescriptor{
		NumVertices: 1,
		Attributes:  []rawAttribute{{Usage: 7, Format: uint64(Float32)}},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := decodeDescriptor(encoded); Kind(err) != UnknownVariantTag {
		t.Fatalf("bare custom tag: got %v, want UnknownVariantTag", err)
	}
}

func TestDecodeDescriptorInvalidUtf8Name(t *testing.T) {
	type rawAttribute struct {
		_      struct{} `cbor:",toarray"`
		Usage  customUsageWire
		Format uint64
	}
	type rawDescriptor struct {
		_           struct{} `cbor:",toarray"`
		NumVertices uint32
		UserDataLen uint32
		Meshes      []meshInfoWire
		Indices     *indicesInfoWire
		Attributes  []rawAttribute
	}
	encoded, err := descEncMode.Marshal(rawDescriptor{
		NumVertices: 1,
		Attributes: []rawAttribute{{
			Usage:  customUsageWire{Tag: uint64(UsageCustom), ID: 9, Name: []byte{0xff, 0xfe}},
			Format: uint64(Float32),
		}},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := decodeDescriptor(encoded); Kind(err) != InvalidUtf8 {
		t.Fatalf("invalid name: got %v, want InvalidUtf8", err)
	}
}

// assertDescriptorsEqual compares two descriptors field by field with
// useful failure output.
func assertDescriptorsEqual(t *testing.T, want, got *Descriptor) {
	t.Helper()
	if got.NumVertices != want.NumVertices {
		t.Errorf("NumVertices = %d, want %d", got.NumVertices, want.NumVertices)
	}
	if got.UserDataLen != want.UserDataLen {
		t.Errorf("UserDataLen = %d, want %d", got.UserDataLen, want.UserDataLen)
	}
	if len(got.Meshes) != len(want.Meshes) {
		t.Fatalf("len(Meshes) = %d, want %d", len(got.Meshes), len(want.Meshes))
	}
	for i := range want.Meshes {
		if got.Meshes[i] != want.Meshes[i] {
			t.Errorf("Meshes[%d] = %+v, want %+v", i, got.Meshes[i], want.Meshes[i])
		}
	}
	if (got.Indices == nil) != (want.Indices == nil) {
		t.Fatalf("Indices presence = %v, want %v", got.Indices != nil, want.Indices != nil)
	}
	if want.Indices != nil && *got.Indices != *want.Indices {
		t.Errorf("Indices = %+v, want %+v", *got.Indices, *want.Indices)
	}
	if len(got.Attributes) != len(want.Attributes) {
		t.Fatalf("len(Attributes) = %d, want %d", len(got.Attributes), len(want.Attributes))
	}
	for i := range want.Attributes {
		if got.Attributes[i] != want.Attributes[i] {
			t.Errorf("Attributes[%d] = %+v, want %+v", i, got.Attributes[i], want.Attributes[i])
		}
	}
}
