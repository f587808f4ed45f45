// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

import "encoding/binary"

// MeshAttribute is one vertex buffer of a single source mesh handed
// to the Builder.
type MeshAttribute struct {
	Usage  VertexUsage
	Format VertexFormat
	Data   []byte
}

// MeshData is one source mesh: its own index buffer (optional) and
// vertex buffers. All meshes added to a Builder must be mutually
// compatible — the same attribute identities with the same formats —
// so they can share the file's concatenated buffers.
type MeshData struct {
	// IndexFormat is meaningful only when Indices is non-nil.
	IndexFormat IndexFormat
	Indices     []byte
	Attributes  []MeshAttribute
}

// NumVertices derives the mesh's vertex count from its first
// attribute buffer.
func (m *MeshData) NumVertices() int {
	if len(m.Attributes) == 0 {
		return 0
	}
	first := m.Attributes[0]
	return len(first.Data) / first.Format.Size()
}

// NumIndices derives the index count, or 0 when the mesh has no
// indices.
func (m *MeshData) NumIndices() int {
	if m.Indices == nil {
		return 0
	}
	return len(m.Indices) / m.IndexFormat.Size()
}

// validate checks that every buffer is whole elements and that all
// attribute buffers agree on the vertex count.
func (m *MeshData) validate() error {
	if len(m.Attributes) == 0 {
		return errf(BufferSizeMismatch, "mesh has no attributes")
	}
	numVertices := m.NumVertices()
	for i, attr := range m.Attributes {
		size := attr.Format.Size()
		if size == 0 {
			return errf(UnknownVariantTag, "attribute %d: vertex format tag %d", i, attr.Format)
		}
		if len(attr.Data)%size != 0 || len(attr.Data)/size != numVertices {
			return errf(BufferSizeMismatch, "attribute %s is %d bytes, want %d vertices of %s",
				attr.Usage, len(attr.Data), numVertices, attr.Format)
		}
	}
	if m.Indices != nil && len(m.Indices)%m.IndexFormat.Size() != 0 {
		return errf(BufferSizeMismatch, "index buffer is %d bytes, not whole %s elements",
			len(m.Indices), m.IndexFormat)
	}
	return nil
}

// BuilderOptions tune the Builder.
type BuilderOptions struct {
	// UpconvertIndices widens U16 index buffers to U32 when the source
	// meshes mix formats. Off, mixing formats is an error.
	UpconvertIndices bool
}

// Builder accumulates source meshes and user data, then encodes them
// as one IMA file: buffers concatenated, one MeshInfo record per
// source mesh. This is the multi-mesh entry point; single pre-laid-out
// buffer sets go directly through Write.
type Builder struct {
	options  BuilderOptions
	userData []byte
	meshes   []MeshData
}

// NewBuilder returns a Builder with default options.
func NewBuilder() *Builder {
	return &Builder{}
}

// NewBuilderWithOptions returns a Builder with explicit options.
func NewBuilderWithOptions(options BuilderOptions) *Builder {
	return &Builder{options: options}
}

// SetUserData sets the opaque user-data blob. Nil clears it.
func (b *Builder) SetUserData(data []byte) {
	b.userData = data
}

// AddMesh appends one source mesh after shape validation.
// Compatibility across meshes is checked at Encode, when the full set
// is known.
func (b *Builder) AddMesh(mesh MeshData) error {
	if err := mesh.validate(); err != nil {
		return err
	}
	b.meshes = append(b.meshes, mesh)
	return nil
}

// Encode builds the descriptor and concatenated buffers from the
// accumulated meshes and writes the complete file. A builder with no
// meshes encodes a user-data-only file.
func (b *Builder) Encode(level int) ([]byte, error) {
	if len(b.meshes) == 0 {
		descriptor := &Descriptor{UserDataLen: uint32(len(b.userData))}
		return Write(descriptor, &Buffers{UserData: b.userData}, level)
	}

	indexFormat, hasIndices, err := b.resolveIndexFormat()
	if err != nil {
		return nil, err
	}
	attributes, err := b.resolveAttributes()
	if err != nil {
		return nil, err
	}

	var totalVertices, totalIndices uint64
	for _, mesh := range b.meshes {
		totalVertices += uint64(mesh.NumVertices())
		totalIndices += uint64(mesh.NumIndices())
	}
	if totalVertices > 0xffffffff {
		return nil, errf(InvalidDescriptor, "%d vertices exceed the 32-bit total", totalVertices)
	}
	if totalIndices > 0xffffffff {
		return nil, errf(InvalidDescriptor, "%d indices exceed the 32-bit total", totalIndices)
	}

	descriptor := &Descriptor{
		NumVertices: uint32(totalVertices),
		UserDataLen: uint32(len(b.userData)),
		Meshes:      b.meshInfos(hasIndices),
		Attributes:  attributes,
	}
	if hasIndices {
		descriptor.Indices = &IndicesInfo{NumIndices: uint32(totalIndices), Format: indexFormat}
	}

	buffers := &Buffers{
		UserData: b.userData,
		Vertex:   make([][]byte, len(attributes)),
	}
	if hasIndices {
		buffers.Indices = b.concatIndices(indexFormat, totalIndices)
	}
	for i, attr := range attributes {
		buffers.Vertex[i] = b.concatAttribute(attr.Usage)
	}

	return Write(descriptor, buffers, level)
}

// resolveIndexFormat unifies the source meshes' index formats. Either
// every mesh has indices or none does; U16 and U32 mix only when
// up-conversion is enabled, widening the result to U32.
func (b *Builder) resolveIndexFormat() (IndexFormat, bool, error) {
	hasIndices := b.meshes[0].Indices != nil
	format := b.meshes[0].IndexFormat
	for i, mesh := range b.meshes[1:] {
		if (mesh.Indices != nil) != hasIndices {
			return 0, false, errf(InvalidDescriptor,
				"mesh %d and mesh 0 disagree on having indices", i+1)
		}
		if !hasIndices || mesh.IndexFormat == format {
			continue
		}
		if !b.options.UpconvertIndices {
			return 0, false, errf(InvalidDescriptor,
				"mesh %d has %s indices, mesh 0 has %s (up-conversion disabled)",
				i+1, mesh.IndexFormat, format)
		}
		format = IndexU32
	}
	return format, hasIndices, nil
}

// resolveAttributes takes the first mesh's attribute order as the file
// order and checks that every other mesh carries the same identity set
// with the same formats.
func (b *Builder) resolveAttributes() ([]VertexAttribute, error) {
	first := b.meshes[0]
	attributes := make([]VertexAttribute, len(first.Attributes))
	formats := make(map[VertexUsage]VertexFormat, len(first.Attributes))
	for i, attr := range first.Attributes {
		identity := attr.Usage.Identity()
		if _, dup := formats[identity]; dup {
			return nil, errf(InvalidDescriptor, "mesh 0 repeats usage %s", identity)
		}
		attributes[i] = VertexAttribute{Usage: attr.Usage, Format: attr.Format}
		formats[identity] = attr.Format
	}
	for i, mesh := range b.meshes[1:] {
		if len(mesh.Attributes) != len(attributes) {
			return nil, errf(InvalidDescriptor,
				"mesh %d has %d attributes, mesh 0 has %d", i+1, len(mesh.Attributes), len(attributes))
		}
		seen := make(map[VertexUsage]bool, len(mesh.Attributes))
		for _, attr := range mesh.Attributes {
			identity := attr.Usage.Identity()
			if seen[identity] {
				return nil, errf(InvalidDescriptor, "mesh %d repeats usage %s", i+1, identity)
			}
			seen[identity] = true
			format, ok := formats[identity]
			if !ok {
				return nil, errf(InvalidDescriptor,
					"mesh %d has usage %s that mesh 0 lacks", i+1, attr.Usage)
			}
			if format != attr.Format {
				return nil, errf(InvalidDescriptor,
					"mesh %d stores %s as %s, mesh 0 as %s", i+1, attr.Usage, attr.Format, format)
			}
		}
	}
	return attributes, nil
}

// meshInfos lays the source meshes end to end and records their
// ranges.
func (b *Builder) meshInfos(hasIndices bool) []MeshInfo {
	infos := make([]MeshInfo, len(b.meshes))
	var firstIndex, firstVertex uint32
	for i, mesh := range b.meshes {
		info := MeshInfo{
			FirstVertex: firstVertex,
			VertexCount: uint32(mesh.NumVertices()),
		}
		if hasIndices {
			info.FirstIndex = firstIndex
			info.IndexCount = uint32(mesh.NumIndices())
			firstIndex += info.IndexCount
		}
		firstVertex += info.VertexCount
		infos[i] = info
	}
	return infos
}

// concatIndices joins the per-mesh index buffers, widening U16 data to
// U32 where the unified format requires it.
func (b *Builder) concatIndices(format IndexFormat, totalIndices uint64) []byte {
	out := make([]byte, 0, totalIndices*uint64(format.Size()))
	for _, mesh := range b.meshes {
		if mesh.IndexFormat == format {
			out = append(out, mesh.Indices...)
			continue
		}
		// U16 source into a U32 file.
		for off := 0; off+2 <= len(mesh.Indices); off += 2 {
			value := uint32(binary.LittleEndian.Uint16(mesh.Indices[off:]))
			out = binary.LittleEndian.AppendUint32(out, value)
		}
	}
	return out
}

// concatAttribute joins the per-mesh buffers for one usage, in mesh
// order.
func (b *Builder) concatAttribute(usage VertexUsage) []byte {
	identity := usage.Identity()
	var out []byte
	for _, mesh := range b.meshes {
		for _, attr := range mesh.Attributes {
			if attr.Usage.Identity() == identity {
				out = append(out, attr.Data...)
				break
			}
		}
	}
	return out
}
