// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

// MeshBuffers are one mesh's borrowed sub-slices of the decoded shared
// buffers: its index range and its slice of each vertex buffer, in
// descriptor attribute order. Index values are relative to the mesh's
// FirstVertex, so the views are self-contained.
type MeshBuffers struct {
	Indices []byte
	Vertex  [][]byte
}

// ExtractMesh borrows mesh record i's sub-ranges out of decoded
// buffers. The descriptor must be the one the buffers were split with;
// the ranges are already bounds-checked by descriptor validation.
func ExtractMesh(descriptor *Descriptor, buffers *Buffers, i int) (*MeshBuffers, error) {
	if i < 0 || i >= len(descriptor.Meshes) {
		return nil, errf(InvalidDescriptor, "mesh %d out of range [0, %d)", i, len(descriptor.Meshes))
	}
	mesh := descriptor.Meshes[i]

	out := &MeshBuffers{Vertex: make([][]byte, len(descriptor.Attributes))}
	if descriptor.Indices != nil {
		stride := descriptor.Indices.Format.Size()
		start := int(mesh.FirstIndex) * stride
		end := start + int(mesh.IndexCount)*stride
		out.Indices = buffers.Indices[start:end]
	}
	for a, attr := range descriptor.Attributes {
		stride := attr.Format.Size()
		start := int(mesh.FirstVertex) * stride
		end := start + int(mesh.VertexCount)*stride
		out.Vertex[a] = buffers.Vertex[a][start:end]
	}
	return out, nil
}

// MeshData converts an extracted mesh back into Builder input, pairing
// each vertex slice with its attribute declaration. Used by tools that
// re-encode a subset of a file's meshes.
func (m *MeshBuffers) MeshData(descriptor *Descriptor) MeshData {
	data := MeshData{
		Attributes: make([]MeshAttribute, len(descriptor.Attributes)),
	}
	if descriptor.Indices != nil {
		data.IndexFormat = descriptor.Indices.Format
		data.Indices = m.Indices
	}
	for i, attr := range descriptor.Attributes {
		data.Attributes[i] = MeshAttribute{
			Usage:  attr.Usage,
			Format: attr.Format,
			Data:   m.Vertex[i],
		}
	}
	return data
}
