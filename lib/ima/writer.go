// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

// Write encodes a complete IMA file: header, descriptor, compressed
// payload. The caller supplies the descriptor and the matching
// buffers; level is the zstd compression level (DefaultCompressionLevel
// selects the encoder's strongest setting).
//
// Preconditions: the descriptor validates, buffers.UserData is exactly
// descriptor.UserDataLen bytes, buffers.Indices is present iff
// descriptor.Indices is and has the implied size, and buffers.Vertex
// holds one correctly-sized slice per attribute, in attribute order.
//
// The file is assembled entirely in memory and returned only once both
// checksums are final, so an aborted Write never leaves bytes behind
// that would pass validation.
func Write(descriptor *Descriptor, buffers *Buffers, level int) ([]byte, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}
	regions, err := checkBuffers(descriptor, buffers)
	if err != nil {
		return nil, err
	}

	descriptorBytes, err := encodeDescriptor(descriptor)
	if err != nil {
		return nil, err
	}

	compressed, err := compressPayload(regions, level)
	if err != nil {
		return nil, err
	}

	header := Header{
		Version:       FormatVersion,
		DescriptorLen: uint16(len(descriptorBytes)),
		DataChecksum:  dataChecksum(compressed),
	}
	header.MetadataChecksum = metadataChecksum(descriptorBytes, header.DescriptorLen, header.DataChecksum)

	file := make([]byte, 0, HeaderSize+len(descriptorBytes)+len(compressed))
	file = appendHeader(file, header)
	file = append(file, descriptorBytes...)
	file = append(file, compressed...)
	return file, nil
}

// checkBuffers verifies that the supplied buffers match the layout the
// descriptor implies, and returns them as the ordered region slices to
// feed the compressor.
func checkBuffers(descriptor *Descriptor, buffers *Buffers) ([][]byte, error) {
	layout, err := descriptor.Regions()
	if err != nil {
		return nil, err
	}

	if uint64(len(buffers.UserData)) != uint64(descriptor.UserDataLen) {
		return nil, errf(BufferSizeMismatch, "user data is %d bytes, descriptor declares %d",
			len(buffers.UserData), descriptor.UserDataLen)
	}
	if descriptor.Indices == nil && buffers.Indices != nil {
		return nil, errf(BufferSizeMismatch, "index buffer supplied but descriptor has no indices")
	}
	if len(buffers.Vertex) != len(descriptor.Attributes) {
		return nil, errf(BufferSizeMismatch, "%d vertex buffers for %d attributes",
			len(buffers.Vertex), len(descriptor.Attributes))
	}

	ordered := make([][]byte, 0, len(layout))
	for _, region := range layout {
		var buffer []byte
		switch region.Kind {
		case RegionUserData:
			buffer = buffers.UserData
		case RegionIndices:
			if buffers.Indices == nil {
				return nil, errf(BufferSizeMismatch, "descriptor declares indices but no index buffer supplied")
			}
			buffer = buffers.Indices
		case RegionVertex:
			buffer = buffers.Vertex[region.Attribute]
		}
		if uint64(len(buffer)) != region.Length {
			return nil, errf(BufferSizeMismatch, "%s buffer is %d bytes, descriptor implies %d",
				regionName(region, descriptor), len(buffer), region.Length)
		}
		ordered = append(ordered, buffer)
	}
	return ordered, nil
}

func regionName(region Region, descriptor *Descriptor) string {
	if region.Kind == RegionVertex {
		return descriptor.Attributes[region.Attribute].Usage.String()
	}
	return region.Kind.String()
}
