// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

import (
	"errors"
	"io"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
)

// The descriptor travels as CBOR with Core Deterministic Encoding
// (RFC 8949 §4.2): smallest integer widths, definite lengths, no
// float shortening surprises. Same descriptor value, same bytes, on
// every encode. Wire structs use `toarray`, so the encoding is
// positional and carries no field names.
var (
	descEncMode cbor.EncMode
	descDecMode cbor.DecMode
)

func init() {
	var err error
	descEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ima: CBOR encoder initialization failed: " + err.Error())
	}
	descDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("ima: CBOR decoder initialization failed: " + err.Error())
	}
}

// Wire form of the descriptor. Field order is the format; reordering
// or retyping a field is a format break.
type descriptorWire struct {
	_           struct{} `cbor:",toarray"`
	NumVertices uint32
	UserDataLen uint32
	Meshes      []meshInfoWire
	Indices     *indicesInfoWire
	Attributes  []attributeWire
}

type meshInfoWire struct {
	_           struct{} `cbor:",toarray"`
	FirstIndex  uint32
	IndexCount  uint32
	FirstVertex uint32
	VertexCount uint32
}

type indicesInfoWire struct {
	_          struct{} `cbor:",toarray"`
	NumIndices uint32
	Format     uint64
}

type attributeWire struct {
	_      struct{} `cbor:",toarray"`
	Usage  usageWire
	Format uint64
}

// usageWire encodes a VertexUsage as either a bare unsigned tag
// (built-in usages) or the array [customTag, id, name-bytes]. The name
// travels as a CBOR byte string so UTF-8 validation happens here, at a
// single site, rather than inside the CBOR library.
type usageWire struct {
	usage VertexUsage
}

type customUsageWire struct {
	_    struct{} `cbor:",toarray"`
	Tag  uint64
	ID   uint32
	Name []byte
}

func (w usageWire) MarshalCBOR() ([]byte, error) {
	if w.usage.Kind != UsageCustom {
		return descEncMode.Marshal(uint64(w.usage.Kind))
	}
	return descEncMode.Marshal(customUsageWire{
		Tag:  uint64(UsageCustom),
		ID:   w.usage.CustomID,
		Name: []byte(w.usage.CustomName),
	})
}

func (w *usageWire) UnmarshalCBOR(data []byte) error {
	var tag uint64
	if err := descDecMode.Unmarshal(data, &tag); err == nil {
		if tag >= uint64(UsageCustom) {
			return errf(UnknownVariantTag, "vertex usage tag %d", tag)
		}
		w.usage = VertexUsage{Kind: UsageKind(tag)}
		return nil
	}

	var custom customUsageWire
	if err := descDecMode.Unmarshal(data, &custom); err != nil {
		return errf(UnknownVariantTag, "malformed vertex usage: %v", err)
	}
	if custom.Tag != uint64(UsageCustom) {
		return errf(UnknownVariantTag, "vertex usage tag %d", custom.Tag)
	}
	if !utf8.Valid(custom.Name) {
		return errf(InvalidUtf8, "custom usage %d name is not valid UTF-8", custom.ID)
	}
	w.usage = Custom(custom.ID, string(custom.Name))
	return nil
}

// encodeDescriptor serializes d and enforces the 16-bit length limit
// of the header's descriptor_len field.
func encodeDescriptor(d *Descriptor) ([]byte, error) {
	wire := descriptorWire{
		NumVertices: d.NumVertices,
		UserDataLen: d.UserDataLen,
		Meshes:      make([]meshInfoWire, len(d.Meshes)),
		Attributes:  make([]attributeWire, len(d.Attributes)),
	}
	for i, mesh := range d.Meshes {
		wire.Meshes[i] = meshInfoWire{
			FirstIndex:  mesh.FirstIndex,
			IndexCount:  mesh.IndexCount,
			FirstVertex: mesh.FirstVertex,
			VertexCount: mesh.VertexCount,
		}
	}
	if d.Indices != nil {
		wire.Indices = &indicesInfoWire{
			NumIndices: d.Indices.NumIndices,
			Format:     uint64(d.Indices.Format),
		}
	}
	for i, attr := range d.Attributes {
		wire.Attributes[i] = attributeWire{
			Usage:  usageWire{usage: attr.Usage},
			Format: uint64(attr.Format),
		}
	}

	encoded, err := descEncMode.Marshal(wire)
	if err != nil {
		return nil, errf(InvalidDescriptor, "encoding descriptor: %v", err)
	}
	if len(encoded) > maxDescriptorLen {
		return nil, errf(DescriptorTooLarge, "encoded descriptor is %d bytes, limit %d",
			len(encoded), maxDescriptorLen)
	}
	return encoded, nil
}

// decodeDescriptor deserializes exactly len(data) descriptor bytes.
// The result is structurally range-checked (variant tags) but NOT yet
// validated against the §3 invariants; callers run Validate next.
func decodeDescriptor(data []byte) (*Descriptor, error) {
	var wire descriptorWire
	if err := descDecMode.Unmarshal(data, &wire); err != nil {
		return nil, mapDescriptorDecodeError(err)
	}

	descriptor := &Descriptor{
		NumVertices: wire.NumVertices,
		UserDataLen: wire.UserDataLen,
		Meshes:      make([]MeshInfo, len(wire.Meshes)),
		Attributes:  make([]VertexAttribute, len(wire.Attributes)),
	}
	for i, mesh := range wire.Meshes {
		descriptor.Meshes[i] = MeshInfo{
			FirstIndex:  mesh.FirstIndex,
			IndexCount:  mesh.IndexCount,
			FirstVertex: mesh.FirstVertex,
			VertexCount: mesh.VertexCount,
		}
	}
	if wire.Indices != nil {
		if wire.Indices.Format >= uint64(indexFormatCount) {
			return nil, errf(UnknownVariantTag, "index format tag %d", wire.Indices.Format)
		}
		descriptor.Indices = &IndicesInfo{
			NumIndices: wire.Indices.NumIndices,
			Format:     IndexFormat(wire.Indices.Format),
		}
	}
	for i, attr := range wire.Attributes {
		if attr.Format >= uint64(vertexFormatCount) {
			return nil, errf(UnknownVariantTag, "attribute %d: vertex format tag %d", i, attr.Format)
		}
		descriptor.Attributes[i] = VertexAttribute{
			Usage:  attr.Usage.usage,
			Format: VertexFormat(attr.Format),
		}
	}
	return descriptor, nil
}

// mapDescriptorDecodeError classifies a CBOR decode failure into the
// format's error taxonomy. Errors raised by our own UnmarshalCBOR
// hooks pass through with their kind intact. Truncation surfaces from
// the CBOR layer as unexpected EOF; leftover bytes as
// ExtraneousDataError. Everything else is a malformed encoding, which
// this positional schema cannot distinguish from an unrecognized
// variant shape.
func mapDescriptorDecodeError(err error) error {
	var codecErr *Error
	if errors.As(err, &codecErr) {
		return codecErr
	}
	var extraneous *cbor.ExtraneousDataError
	if errors.As(err, &extraneous) {
		return errf(TrailingDescriptorBytes, "%v", extraneous)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return errf(TruncatedDescriptor, "descriptor ends mid-encoding")
	}
	return errf(UnknownVariantTag, "malformed descriptor: %v", err)
}
