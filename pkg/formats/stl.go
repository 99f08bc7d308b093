package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ungerik/go3d/float64/vec3"

	"github.com/Faultbox/trimesh/pkg/trimesh"
)

// STL format errors.
var (
	ErrTruncatedSTL = errors.New("truncated STL data")
	ErrMalformedSTL = errors.New("malformed STL data")
)

// Binary STL layout: an 80-byte header, a uint32 triangle count, then
// 50 bytes per triangle (normal, three vertices, attribute word).
const (
	stlHeaderSize = 84
	stlRecordSize = 50
)

// DecodeSTL parses STL bytes, binary or ASCII, into a mesh. The result
// is a pure triangle soup: every triangle gets its own three vertices
// and no connectivity is reconstructed. For binary files the declared
// triangle count in the header is ignored in favor of the actual
// payload length, which some exporters get wrong.
func DecodeSTL(data []byte) (*trimesh.Mesh, error) {
	if isASCIISTL(data) {
		return decodeASCIISTL(data)
	}
	if len(data) < stlHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedSTL, len(data))
	}

	header := strings.TrimSpace(strings.TrimRight(string(data[:80]), "\x00"))

	body := data[stlHeaderSize:]
	if len(body)%stlRecordSize != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after triangle records", ErrMalformedSTL, len(body)%stlRecordSize)
	}

	count := len(body) / stlRecordSize
	vertices := make([]vec3.T, 0, count*3)
	faces := make([]trimesh.Face, 0, count)
	for i := 0; i < count; i++ {
		record := body[i*stlRecordSize:]
		// skip the 12-byte normal; it is recomputed on demand
		for v := 0; v < 3; v++ {
			off := 12 + v*12
			vertices = append(vertices, vec3.T{
				float64(readFloat32(record[off:])),
				float64(readFloat32(record[off+4:])),
				float64(readFloat32(record[off+8:])),
			})
		}
		faces = append(faces, trimesh.Face{i * 3, i*3 + 1, i*3 + 2})
	}

	m := trimesh.New(vertices, faces)
	m.Source = trimesh.Source{Format: "stl", Header: header}
	return m, nil
}

// EncodeSTL serializes a mesh as binary STL. Face normals are written
// from the mesh's computed normals; degenerate faces get a zero normal.
func EncodeSTL(m *trimesh.Mesh) []byte {
	buf := new(bytes.Buffer)

	var header [80]byte
	copy(header[:], m.Source.Header)
	buf.Write(header[:])
	binary.Write(buf, binary.LittleEndian, uint32(len(m.Faces)))

	normals := m.FaceNormals()
	for i, f := range m.Faces {
		n := normals[i]
		for axis := 0; axis < 3; axis++ {
			if math.IsNaN(n[axis]) {
				n[axis] = 0
			}
		}
		binary.Write(buf, binary.LittleEndian, [3]float32{float32(n[0]), float32(n[1]), float32(n[2])})
		for _, vi := range f {
			p := m.Vertices[vi]
			binary.Write(buf, binary.LittleEndian, [3]float32{float32(p[0]), float32(p[1]), float32(p[2])})
		}
		binary.Write(buf, binary.LittleEndian, uint16(0))
	}

	return buf.Bytes()
}

// isASCIISTL sniffs for the ASCII variant: a "solid" prefix with a
// "facet" keyword near the start. Binary files that happen to begin
// with "solid" in their header text do exist, so the prefix alone is
// not enough.
func isASCIISTL(data []byte) bool {
	if !bytes.HasPrefix(data, []byte("solid")) {
		return false
	}
	window := data
	if len(window) > 512 {
		window = window[:512]
	}
	return bytes.Contains(window, []byte("facet"))
}

// decodeASCIISTL parses the "solid ... facet ... vertex" text variant.
// Only the vertex lines matter; facet normals are recomputed on demand
// like in the binary reader. Every three vertex lines form one
// triangle.
func decodeASCIISTL(data []byte) (*trimesh.Mesh, error) {
	var (
		header   string
		vertices []vec3.T
	)

	for lineno, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid":
			if header == "" && len(fields) > 1 {
				header = strings.Join(fields[1:], " ")
			}
		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrMalformedSTL, lineno+1)
			}
			var p vec3.T
			for axis := 0; axis < 3; axis++ {
				val, err := strconv.ParseFloat(fields[axis+1], 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedSTL, lineno+1, err)
				}
				p[axis] = val
			}
			vertices = append(vertices, p)
		case "facet", "outer", "endloop", "endfacet", "endsolid":
			// structural keywords carry no geometry
		}
	}

	if len(vertices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d vertices do not form whole triangles", ErrMalformedSTL, len(vertices))
	}

	faces := make([]trimesh.Face, len(vertices)/3)
	for i := range faces {
		faces[i] = trimesh.Face{i * 3, i*3 + 1, i*3 + 2}
	}

	m := trimesh.New(vertices, faces)
	m.Source = trimesh.Source{Format: "stl", Header: header}
	return m, nil
}

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
