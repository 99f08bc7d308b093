package formats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ungerik/go3d/float64/vec3"

	"github.com/Faultbox/trimesh/pkg/trimesh"
)

// OBJ format errors.
var (
	ErrMalformedOBJ = errors.New("malformed OBJ data")
)

// DecodeOBJ parses Wavefront OBJ text into a mesh. Vertex positions
// and faces are kept; normals, texture coordinates, per-vertex colors,
// groups and material references are parsed and discarded. Quads are
// split along their first diagonal and larger polygons are fan
// triangulated.
//
// Face references of the forms 1, 1/2, 1//3 and 1/2/3 are accepted.
// Negative indices count back from the most recent vertex.
func DecodeOBJ(data []byte) (*trimesh.Mesh, error) {
	var (
		vertices []vec3.T
		faces    []trimesh.Face
	)

	for lineno, line := range strings.Split(string(data), "\n") {
		// anything after a comment marker is noise
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrMalformedOBJ, lineno+1)
			}
			var p vec3.T
			for axis := 0; axis < 3; axis++ {
				val, err := strconv.ParseFloat(fields[axis+1], 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedOBJ, lineno+1, err)
				}
				p[axis] = val
			}
			// fields beyond z are vertex colors from some exporters
			vertices = append(vertices, p)

		case "f":
			polygon := make([]int, 0, len(fields)-1)
			for _, field := range fields[1:] {
				vi, err := parseOBJIndex(field, len(vertices))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedOBJ, lineno+1, err)
				}
				polygon = append(polygon, vi)
			}
			tris, err := triangulatePolygon(polygon)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedOBJ, lineno+1, err)
			}
			faces = append(faces, tris...)

		case "vn", "vt", "o", "g", "s", "usemtl", "mtllib":
			// parsed by richer importers; irrelevant for geometry

		default:
			// unknown directives are ignored, like everyone else does
		}
	}

	m := trimesh.New(vertices, faces)
	m.Source = trimesh.Source{Format: "obj"}
	return m, nil
}

// parseOBJIndex resolves one face vertex reference ("7", "7/1", "7//2",
// "7/1/2", "-1") to a zero-based vertex index.
func parseOBJIndex(field string, vertexCount int) (int, error) {
	ref := field
	if i := strings.IndexByte(ref, '/'); i >= 0 {
		ref = ref[:i]
	}
	idx, err := strconv.Atoi(ref)
	if err != nil {
		return 0, fmt.Errorf("face reference %q: %v", field, err)
	}

	switch {
	case idx > 0:
		idx--
	case idx < 0:
		idx = vertexCount + idx
	default:
		return 0, fmt.Errorf("face reference %q: indices are 1-based", field)
	}
	if idx < 0 || idx >= vertexCount {
		return 0, fmt.Errorf("face reference %q out of range of %d vertices", field, vertexCount)
	}
	return idx, nil
}

func triangulatePolygon(polygon []int) ([]trimesh.Face, error) {
	switch {
	case len(polygon) < 3:
		return nil, fmt.Errorf("face with %d vertices", len(polygon))
	case len(polygon) == 3:
		return []trimesh.Face{{polygon[0], polygon[1], polygon[2]}}, nil
	case len(polygon) == 4:
		return []trimesh.Face{
			{polygon[0], polygon[1], polygon[2]},
			{polygon[0], polygon[2], polygon[3]},
		}, nil
	}
	return trimesh.TriangulateFan(polygon), nil
}

// EncodeOBJ serializes a mesh's positions and faces as OBJ text.
func EncodeOBJ(m *trimesh.Mesh) []byte {
	var sb strings.Builder
	for _, p := range m.Vertices {
		sb.WriteString("v ")
		sb.WriteString(strconv.FormatFloat(p[0], 'g', -1, 64))
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(p[1], 'g', -1, 64))
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(p[2], 'g', -1, 64))
		sb.WriteByte('\n')
	}
	for _, f := range m.Faces {
		fmt.Fprintf(&sb, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1)
	}
	return []byte(sb.String())
}
