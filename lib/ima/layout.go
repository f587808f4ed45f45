// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

import "math/bits"

// RegionKind identifies one region of the uncompressed payload.
type RegionKind uint8

const (
	RegionUserData RegionKind = iota
	RegionIndices
	RegionVertex
)

func (k RegionKind) String() string {
	switch k {
	case RegionUserData:
		return "user-data"
	case RegionIndices:
		return "indices"
	case RegionVertex:
		return "vertex"
	default:
		return "unknown"
	}
}

// Region is one span of the uncompressed payload: the user data, the
// index buffer, or one vertex buffer.
type Region struct {
	Kind RegionKind

	// Attribute is the index into Descriptor.Attributes for a
	// RegionVertex region, -1 otherwise.
	Attribute int

	Offset uint64
	Length uint64
}

// Buffers are the split views over an uncompressed payload: the user
// data, the optional index buffer, and one vertex buffer per
// descriptor attribute, in attribute order. All slices borrow from the
// backing payload; they are invalidated when it is released.
type Buffers struct {
	UserData []byte
	Indices  []byte
	Vertex   [][]byte
}

// Regions computes the ordered payload layout for d: user data, then
// indices (when present), then one region per attribute. All
// arithmetic is 64-bit and overflow-checked.
func (d *Descriptor) Regions() ([]Region, error) {
	regions := make([]Region, 0, 2+len(d.Attributes))
	var offset uint64

	place := func(kind RegionKind, attribute int, length uint64) bool {
		regions = append(regions, Region{Kind: kind, Attribute: attribute, Offset: offset, Length: length})
		var carry uint64
		offset, carry = bits.Add64(offset, length, 0)
		return carry == 0
	}

	if !place(RegionUserData, -1, uint64(d.UserDataLen)) {
		return nil, errf(DescriptorSizeOverflow, "user data")
	}
	if d.Indices != nil {
		overflow, length := bits.Mul64(uint64(d.Indices.NumIndices), uint64(d.Indices.Format.Size()))
		if overflow != 0 || !place(RegionIndices, -1, length) {
			return nil, errf(DescriptorSizeOverflow, "index buffer")
		}
	}
	for i, attr := range d.Attributes {
		overflow, length := bits.Mul64(uint64(d.NumVertices), uint64(attr.Format.Size()))
		if overflow != 0 || !place(RegionVertex, i, length) {
			return nil, errf(DescriptorSizeOverflow, "vertex buffer %d", i)
		}
	}
	return regions, nil
}

// TotalLen returns the exact uncompressed payload length the
// descriptor implies: user data + index buffer + every vertex buffer.
// This is the length the compressed stream must decompress to.
func (d *Descriptor) TotalLen() (uint64, error) {
	regions, err := d.Regions()
	if err != nil {
		return 0, err
	}
	last := regions[len(regions)-1]
	return last.Offset + last.Length, nil
}

// Split partitions an uncompressed payload into borrowed per-buffer
// views according to d. The payload length must equal d.TotalLen()
// exactly.
func Split(payload []byte, d *Descriptor) (*Buffers, error) {
	regions, err := d.Regions()
	if err != nil {
		return nil, err
	}
	total := regions[len(regions)-1].Offset + regions[len(regions)-1].Length
	if uint64(len(payload)) != total {
		return nil, errf(BufferSizeMismatch, "payload is %d bytes, descriptor implies %d",
			len(payload), total)
	}

	buffers := &Buffers{Vertex: make([][]byte, len(d.Attributes))}
	for _, region := range regions {
		view := payload[region.Offset : region.Offset+region.Length]
		switch region.Kind {
		case RegionUserData:
			buffers.UserData = view
		case RegionIndices:
			buffers.Indices = view
		case RegionVertex:
			buffers.Vertex[region.Attribute] = view
		}
	}
	return buffers, nil
}
