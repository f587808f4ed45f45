// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

// Package objconv imports Wavefront OBJ geometry as IMA mesh data.
//
// The importer reads positions, texture coordinates, and normals,
// triangulates polygonal faces as fans, deduplicates identical
// (position, uv, normal) corners, and emits a single mesh with U32
// indices ready for the ima Builder. Materials, groups, smoothing
// state, and free-form geometry are ignored.
package objconv

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/x448/float16"

	"github.com/iyesmesh/iyesmesh-go/lib/ima"
)

// Options tune the conversion.
type Options struct {
	// HalfPrecision stores positions and normals as Float16x4 and
	// texture coordinates as Float16x2 instead of full floats. Halves
	// the vertex data at the cost of precision.
	HalfPrecision bool
}

// corner identifies one face corner by its (0-based) position, uv,
// and normal indices; -1 marks an absent component.
type corner struct {
	position int
	uv       int
	normal   int
}

// Convert parses OBJ text from r and returns one mesh. The mesh
// carries a Position attribute always, plus Uv and Normal attributes
// when any face references them.
func Convert(r io.Reader, options Options) (*ima.MeshData, error) {
	var (
		positions [][3]float32
		uvs       [][2]float32
		normals   [][3]float32

		order   []corner
		dedup   = make(map[corner]uint32)
		indices []byte

		hasUvs, hasNormals bool
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			vertex, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: vertex position: %w", lineNumber, err)
			}
			positions = append(positions, vertex)

		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: texture coordinate needs 2 components", lineNumber)
			}
			u, err := parseFloat(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: texture coordinate: %w", lineNumber, err)
			}
			v, err := parseFloat(fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: texture coordinate: %w", lineNumber, err)
			}
			uvs = append(uvs, [2]float32{u, v})

		case "vn":
			normal, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: vertex normal: %w", lineNumber, err)
			}
			normals = append(normals, normal)

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 corners", lineNumber)
			}
			face := make([]uint32, 0, len(fields)-1)
			for _, token := range fields[1:] {
				c, err := parseCorner(token, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNumber, err)
				}
				if c.uv >= 0 {
					hasUvs = true
				}
				if c.normal >= 0 {
					hasNormals = true
				}
				index, known := dedup[c]
				if !known {
					index = uint32(len(order))
					dedup[c] = index
					order = append(order, c)
				}
				face = append(face, index)
			}
			// Triangulate the polygon as a fan around its first
			// corner.
			for i := 1; i+1 < len(face); i++ {
				indices = binary.LittleEndian.AppendUint32(indices, face[0])
				indices = binary.LittleEndian.AppendUint32(indices, face[i])
				indices = binary.LittleEndian.AppendUint32(indices, face[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ input: %w", err)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("OBJ input has no faces")
	}

	mesh := &ima.MeshData{
		IndexFormat: ima.IndexU32,
		Indices:     indices,
	}
	mesh.Attributes = append(mesh.Attributes,
		buildVec3Attribute(ima.Position, order, options.HalfPrecision, func(c corner) [3]float32 {
			return positions[c.position]
		}))
	if hasNormals {
		mesh.Attributes = append(mesh.Attributes,
			buildVec3Attribute(ima.Normal, order, options.HalfPrecision, func(c corner) [3]float32 {
				if c.normal < 0 {
					return [3]float32{}
				}
				return normals[c.normal]
			}))
	}
	if hasUvs {
		mesh.Attributes = append(mesh.Attributes, buildUvAttribute(order, options.HalfPrecision, uvs))
	}
	return mesh, nil
}

// buildVec3Attribute packs one 3-component value per deduplicated
// corner: Float32x3, or Float16x4 with a zero w lane when half
// precision is selected (there is no 3-lane half format).
func buildVec3Attribute(usage ima.VertexUsage, order []corner, half bool, value func(corner) [3]float32) ima.MeshAttribute {
	if half {
		data := make([]byte, 0, len(order)*8)
		for _, c := range order {
			v := value(c)
			for _, component := range v {
				data = binary.LittleEndian.AppendUint16(data, float16.Fromfloat32(component).Bits())
			}
			data = binary.LittleEndian.AppendUint16(data, 0)
		}
		return ima.MeshAttribute{Usage: usage, Format: ima.Float16x4, Data: data}
	}
	data := make([]byte, 0, len(order)*12)
	for _, c := range order {
		v := value(c)
		for _, component := range v {
			data = binary.LittleEndian.AppendUint32(data, math.Float32bits(component))
		}
	}
	return ima.MeshAttribute{Usage: usage, Format: ima.Float32x3, Data: data}
}

func buildUvAttribute(order []corner, half bool, uvs [][2]float32) ima.MeshAttribute {
	uvFor := func(c corner) [2]float32 {
		if c.uv < 0 {
			return [2]float32{}
		}
		return uvs[c.uv]
	}
	if half {
		data := make([]byte, 0, len(order)*4)
		for _, c := range order {
			uv := uvFor(c)
			data = binary.LittleEndian.AppendUint16(data, float16.Fromfloat32(uv[0]).Bits())
			data = binary.LittleEndian.AppendUint16(data, float16.Fromfloat32(uv[1]).Bits())
		}
		return ima.MeshAttribute{Usage: ima.Uv, Format: ima.Float16x2, Data: data}
	}
	data := make([]byte, 0, len(order)*8)
	for _, c := range order {
		uv := uvFor(c)
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(uv[0]))
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(uv[1]))
	}
	return ima.MeshAttribute{Usage: ima.Uv, Format: ima.Float32x2, Data: data}
}

// parseCorner resolves one face token (`v`, `v/vt`, `v//vn`, or
// `v/vt/vn`) into 0-based indices. OBJ indices are 1-based; negative
// values count back from the current end of the respective list.
func parseCorner(token string, numPositions, numUvs, numNormals int) (corner, error) {
	parts := strings.Split(token, "/")
	if len(parts) > 3 {
		return corner{}, fmt.Errorf("malformed face corner %q", token)
	}

	resolve := func(text string, count int, what string) (int, error) {
		if text == "" {
			return -1, nil
		}
		raw, err := strconv.Atoi(text)
		if err != nil {
			return 0, fmt.Errorf("face corner %q: %w", token, err)
		}
		index := raw
		if index < 0 {
			index = count + index
		} else {
			index--
		}
		if index < 0 || index >= count {
			return 0, fmt.Errorf("face corner %q: %s index %d out of range (have %d)", token, what, raw, count)
		}
		return index, nil
	}

	c := corner{uv: -1, normal: -1}
	var err error
	if c.position, err = resolve(parts[0], numPositions, "position"); err != nil {
		return corner{}, err
	}
	if c.position < 0 {
		return corner{}, fmt.Errorf("face corner %q has no position index", token)
	}
	if len(parts) > 1 {
		if c.uv, err = resolve(parts[1], numUvs, "uv"); err != nil {
			return corner{}, err
		}
	}
	if len(parts) > 2 {
		if c.normal, err = resolve(parts[2], numNormals, "normal"); err != nil {
			return corner{}, err
		}
	}
	return c, nil
}

func parseFloat(text string) (float32, error) {
	value, err := strconv.ParseFloat(text, 32)
	if err != nil {
		return 0, err
	}
	return float32(value), nil
}

func parseFloats3(fields []string) ([3]float32, error) {
	if len(fields) < 3 {
		return [3]float32{}, fmt.Errorf("need 3 components, have %d", len(fields))
	}
	var out [3]float32
	for i := 0; i < 3; i++ {
		value, err := parseFloat(fields[i])
		if err != nil {
			return [3]float32{}, err
		}
		out[i] = value
	}
	return out, nil
}
