// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

import "fmt"

// IndexFormat is the element type of the shared index buffer.
type IndexFormat uint8

const (
	IndexU16 IndexFormat = iota
	IndexU32

	indexFormatCount
)

// Size returns the byte stride of one index element.
func (f IndexFormat) Size() int {
	if f == IndexU16 {
		return 2
	}
	return 4
}

func (f IndexFormat) valid() bool {
	return f < indexFormatCount
}

func (f IndexFormat) String() string {
	switch f {
	case IndexU16:
		return "u16"
	case IndexU32:
		return "u32"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

// VertexFormat is the element type of one vertex buffer. The numeric
// values are the variant tags in the encoded descriptor — protocol
// constants; new formats require a format version bump.
type VertexFormat uint8

const (
	Float16 VertexFormat = iota
	Float32
	Float64
	Float16x2
	Float16x4
	Float32x2
	Float32x3
	Float32x4
	Float64x2
	Float64x3
	Float64x4
	Sint8
	Sint8x2
	Sint8x4
	Sint16
	Sint32
	Sint16x2
	Sint16x4
	Sint32x2
	Sint32x3
	Sint32x4
	Snorm8
	Snorm8x2
	Snorm8x4
	Snorm16
	Snorm16x2
	Snorm16x4
	Uint8
	Uint8x2
	Uint8x4
	Uint16
	Uint32
	Uint16x2
	Uint16x4
	Uint32x2
	Uint32x3
	Uint32x4
	Unorm8
	Unorm8x2
	Unorm8x4
	Unorm8x4Bgra
	Unorm16
	Unorm1010102
	Unorm16x2
	Unorm16x4

	vertexFormatCount
)

// vertexFormatSizes is the stride table: bytes per vertex element,
// keyed by variant. Scalar size times lane count; the packed formats
// (Unorm8x4Bgra, Unorm1010102) occupy 4 bytes.
var vertexFormatSizes = [vertexFormatCount]int{
	Float16:      2,
	Float32:      4,
	Float64:      8,
	Float16x2:    4,
	Float16x4:    8,
	Float32x2:    8,
	Float32x3:    12,
	Float32x4:    16,
	Float64x2:    16,
	Float64x3:    24,
	Float64x4:    32,
	Sint8:        1,
	Sint8x2:      2,
	Sint8x4:      4,
	Sint16:       2,
	Sint32:       4,
	Sint16x2:     4,
	Sint16x4:     8,
	Sint32x2:     8,
	Sint32x3:     12,
	Sint32x4:     16,
	Snorm8:       1,
	Snorm8x2:     2,
	Snorm8x4:     4,
	Snorm16:      2,
	Snorm16x2:    4,
	Snorm16x4:    8,
	Uint8:        1,
	Uint8x2:      2,
	Uint8x4:      4,
	Uint16:       2,
	Uint32:       4,
	Uint16x2:     4,
	Uint16x4:     8,
	Uint32x2:     8,
	Uint32x3:     12,
	Uint32x4:     16,
	Unorm8:       1,
	Unorm8x2:     2,
	Unorm8x4:     4,
	Unorm8x4Bgra: 4,
	Unorm16:      2,
	Unorm1010102: 4,
	Unorm16x2:    4,
	Unorm16x4:    8,
}

var vertexFormatNames = [vertexFormatCount]string{
	Float16:      "float16",
	Float32:      "float32",
	Float64:      "float64",
	Float16x2:    "float16x2",
	Float16x4:    "float16x4",
	Float32x2:    "float32x2",
	Float32x3:    "float32x3",
	Float32x4:    "float32x4",
	Float64x2:    "float64x2",
	Float64x3:    "float64x3",
	Float64x4:    "float64x4",
	Sint8:        "sint8",
	Sint8x2:      "sint8x2",
	Sint8x4:      "sint8x4",
	Sint16:       "sint16",
	Sint32:       "sint32",
	Sint16x2:     "sint16x2",
	Sint16x4:     "sint16x4",
	Sint32x2:     "sint32x2",
	Sint32x3:     "sint32x3",
	Sint32x4:     "sint32x4",
	Snorm8:       "snorm8",
	Snorm8x2:     "snorm8x2",
	Snorm8x4:     "snorm8x4",
	Snorm16:      "snorm16",
	Snorm16x2:    "snorm16x2",
	Snorm16x4:    "snorm16x4",
	Uint8:        "uint8",
	Uint8x2:      "uint8x2",
	Uint8x4:      "uint8x4",
	Uint16:       "uint16",
	Uint32:       "uint32",
	Uint16x2:     "uint16x2",
	Uint16x4:     "uint16x4",
	Uint32x2:     "uint32x2",
	Uint32x3:     "uint32x3",
	Uint32x4:     "uint32x4",
	Unorm8:       "unorm8",
	Unorm8x2:     "unorm8x2",
	Unorm8x4:     "unorm8x4",
	Unorm8x4Bgra: "unorm8x4-bgra",
	Unorm16:      "unorm16",
	Unorm1010102: "unorm10-10-10-2",
	Unorm16x2:    "unorm16x2",
	Unorm16x4:    "unorm16x4",
}

// Size returns the byte stride of one vertex element in this format.
func (f VertexFormat) Size() int {
	if !f.valid() {
		return 0
	}
	return vertexFormatSizes[f]
}

func (f VertexFormat) valid() bool {
	return f < vertexFormatCount
}

func (f VertexFormat) String() string {
	if !f.valid() {
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
	return vertexFormatNames[f]
}

// UsageKind is the discriminant of a VertexUsage. The numeric values
// are the variant tags in the encoded descriptor.
type UsageKind uint8

const (
	UsagePosition UsageKind = iota
	UsageNormal
	UsageTangent
	UsageColor
	UsageUv
	UsageJointIndex
	UsageJointWeight
	UsageCustom

	usageKindCount
)

var usageKindNames = [usageKindCount]string{
	UsagePosition:    "position",
	UsageNormal:      "normal",
	UsageTangent:     "tangent",
	UsageColor:       "color",
	UsageUv:          "uv",
	UsageJointIndex:  "joint-index",
	UsageJointWeight: "joint-weight",
	UsageCustom:      "custom",
}

// VertexUsage declares the role of one vertex buffer. Built-in usages
// carry only their kind; a custom usage additionally carries a numeric
// id (its identity) and a free-form name (informational only).
type VertexUsage struct {
	Kind UsageKind

	// CustomID distinguishes custom usages from each other. Two custom
	// attributes in one descriptor must have different ids.
	CustomID uint32

	// CustomName is a human-readable label for a custom usage. It is
	// not part of the usage's identity: readers must not key on it.
	CustomName string
}

// Built-in usages.
var (
	Position    = VertexUsage{Kind: UsagePosition}
	Normal      = VertexUsage{Kind: UsageNormal}
	Tangent     = VertexUsage{Kind: UsageTangent}
	Color       = VertexUsage{Kind: UsageColor}
	Uv          = VertexUsage{Kind: UsageUv}
	JointIndex  = VertexUsage{Kind: UsageJointIndex}
	JointWeight = VertexUsage{Kind: UsageJointWeight}
)

// Custom returns a custom usage with the given id and name.
func Custom(id uint32, name string) VertexUsage {
	return VertexUsage{Kind: UsageCustom, CustomID: id, CustomName: name}
}

// Identity strips the informational name, leaving the comparable
// identity of the usage. Descriptor validation and mesh-compatibility
// checks key on this value.
func (u VertexUsage) Identity() VertexUsage {
	u.CustomName = ""
	return u
}

func (u VertexUsage) valid() bool {
	return u.Kind < usageKindCount
}

func (u VertexUsage) String() string {
	if !u.valid() {
		return fmt.Sprintf("unknown(%d)", uint8(u.Kind))
	}
	if u.Kind == UsageCustom {
		if u.CustomName != "" {
			return fmt.Sprintf("custom(%d, %q)", u.CustomID, u.CustomName)
		}
		return fmt.Sprintf("custom(%d)", u.CustomID)
	}
	return usageKindNames[u.Kind]
}

// VertexAttribute declares one vertex buffer: its role and element
// type. The order of attributes in a descriptor is semantic — it is
// the order of the vertex buffers in the data stream.
type VertexAttribute struct {
	Usage  VertexUsage
	Format VertexFormat
}

// IndicesInfo describes the shared index buffer.
type IndicesInfo struct {
	NumIndices uint32
	Format     IndexFormat
}

// MeshInfo is one mesh record: a sub-range of the shared buffers,
// mapping directly to the per-draw parameters of an indirect draw.
// Index values within the range are relative to FirstVertex (the
// draw's base vertex).
type MeshInfo struct {
	FirstIndex  uint32
	IndexCount  uint32
	FirstVertex uint32
	VertexCount uint32
}

// Descriptor is the metadata root of an IMA file: total sizes, mesh
// records, and the layout of the concatenated buffers. A descriptor is
// immutable once handed to the writer; readers construct one by
// decoding and validating.
type Descriptor struct {
	// NumVertices is the total vertex count across all meshes. Every
	// vertex buffer holds exactly this many elements.
	NumVertices uint32

	// UserDataLen is the byte length of the opaque user-data region at
	// the start of the uncompressed payload.
	UserDataLen uint32

	// Meshes are the draw-range records. A descriptor with buffers but
	// no mesh records is legal.
	Meshes []MeshInfo

	// Indices describes the shared index buffer, or nil if the file
	// has none.
	Indices *IndicesInfo

	// Attributes declare the vertex buffers, in data-stream order.
	Attributes []VertexAttribute
}

// Validate checks the descriptor's structural invariants: attribute
// identities are unique, mesh index records require an index buffer,
// formats and usages are in range, and every mesh sub-range lies
// within its buffer. Returns an InvalidDescriptor (or
// UnknownVariantTag) error describing the first violation.
func (d *Descriptor) Validate() error {
	seen := make(map[VertexUsage]int, len(d.Attributes))
	for i, attr := range d.Attributes {
		if !attr.Usage.valid() {
			return errf(UnknownVariantTag, "attribute %d: usage tag %d", i, attr.Usage.Kind)
		}
		if !attr.Format.valid() {
			return errf(UnknownVariantTag, "attribute %d: vertex format tag %d", i, attr.Format)
		}
		identity := attr.Usage.Identity()
		if prev, dup := seen[identity]; dup {
			return errf(InvalidDescriptor, "attributes %d and %d share usage %s", prev, i, identity)
		}
		seen[identity] = i
	}

	if d.Indices != nil && !d.Indices.Format.valid() {
		return errf(UnknownVariantTag, "index format tag %d", d.Indices.Format)
	}

	for i, mesh := range d.Meshes {
		if d.Indices == nil {
			if mesh.FirstIndex != 0 || mesh.IndexCount != 0 {
				return errf(InvalidDescriptor,
					"mesh %d has index range %d+%d but the descriptor has no indices",
					i, mesh.FirstIndex, mesh.IndexCount)
			}
		} else if uint64(mesh.FirstIndex)+uint64(mesh.IndexCount) > uint64(d.Indices.NumIndices) {
			return errf(InvalidDescriptor,
				"mesh %d index range %d+%d exceeds %d indices",
				i, mesh.FirstIndex, mesh.IndexCount, d.Indices.NumIndices)
		}
		if uint64(mesh.FirstVertex)+uint64(mesh.VertexCount) > uint64(d.NumVertices) {
			return errf(InvalidDescriptor,
				"mesh %d vertex range %d+%d exceeds %d vertices",
				i, mesh.FirstVertex, mesh.VertexCount, d.NumVertices)
		}
	}
	return nil
}
