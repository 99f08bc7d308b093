package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/ungerik/go3d/float64/vec3"

	"github.com/Faultbox/trimesh/pkg/trimesh"
)

// createTestSTL builds a binary STL file with the given header text
// and triangles, each triangle being nine coordinates.
func createTestSTL(header string, triangles [][9]float32) []byte {
	buf := new(bytes.Buffer)

	var h [80]byte
	copy(h[:], header)
	buf.Write(h[:])

	binary.Write(buf, binary.LittleEndian, uint32(len(triangles)))

	for _, tri := range triangles {
		// normal, unused by the reader
		binary.Write(buf, binary.LittleEndian, [3]float32{0, 0, 1})
		binary.Write(buf, binary.LittleEndian, tri)
		binary.Write(buf, binary.LittleEndian, uint16(0))
	}

	return buf.Bytes()
}

func TestDecodeSTL(t *testing.T) {
	data := createTestSTL("test solid", [][9]float32{
		{0, 0, 0, 1, 0, 0, 0, 1, 0},
		{1, 0, 0, 1, 1, 0, 0, 1, 0},
	})

	m, err := DecodeSTL(data)
	if err != nil {
		t.Fatalf("DecodeSTL failed: %v", err)
	}

	// triangle soup: three fresh vertices per triangle
	if len(m.Vertices) != 6 {
		t.Errorf("expected 6 vertices, got %d", len(m.Vertices))
	}
	if len(m.Faces) != 2 {
		t.Errorf("expected 2 faces, got %d", len(m.Faces))
	}
	if m.Faces[1] != (trimesh.Face{3, 4, 5}) {
		t.Errorf("expected face {3 4 5}, got %v", m.Faces[1])
	}
	if m.Vertices[3] != (vec3.T{1, 0, 0}) {
		t.Errorf("expected vertex (1,0,0), got %v", m.Vertices[3])
	}

	if m.Source.Format != "stl" {
		t.Errorf("expected source format stl, got %q", m.Source.Format)
	}
	if m.Source.Header != "test solid" {
		t.Errorf("expected header %q, got %q", "test solid", m.Source.Header)
	}
}

func TestDecodeSTL_TooShort(t *testing.T) {
	if _, err := DecodeSTL(make([]byte, 83)); !errors.Is(err, ErrTruncatedSTL) {
		t.Errorf("expected ErrTruncatedSTL, got %v", err)
	}
}

func TestDecodeSTL_PartialRecord(t *testing.T) {
	data := createTestSTL("", [][9]float32{{0, 0, 0, 1, 0, 0, 0, 1, 0}})
	if _, err := DecodeSTL(data[:len(data)-7]); !errors.Is(err, ErrMalformedSTL) {
		t.Errorf("expected ErrMalformedSTL, got %v", err)
	}
}

func TestDecodeSTL_IgnoresDeclaredCount(t *testing.T) {
	data := createTestSTL("", [][9]float32{
		{0, 0, 0, 1, 0, 0, 0, 1, 0},
		{1, 0, 0, 1, 1, 0, 0, 1, 0},
	})
	// lie about the triangle count; the payload wins
	binary.LittleEndian.PutUint32(data[80:84], 9000)

	m, err := DecodeSTL(data)
	if err != nil {
		t.Fatalf("DecodeSTL failed: %v", err)
	}
	if len(m.Faces) != 2 {
		t.Errorf("expected 2 faces, got %d", len(m.Faces))
	}
}

func TestDecodeSTL_ASCII(t *testing.T) {
	ascii := []byte(`solid square
 facet normal 0 0 1
  outer loop
   vertex 0 0 0
   vertex 1 0 0
   vertex 0 1 0
  endloop
 endfacet
 facet normal 0 0 1
  outer loop
   vertex 1 0 0
   vertex 1 1 0
   vertex 0 1 0
  endloop
 endfacet
endsolid square
`)

	m, err := DecodeSTL(ascii)
	if err != nil {
		t.Fatalf("DecodeSTL failed: %v", err)
	}
	if len(m.Vertices) != 6 {
		t.Errorf("expected 6 vertices, got %d", len(m.Vertices))
	}
	if len(m.Faces) != 2 {
		t.Errorf("expected 2 faces, got %d", len(m.Faces))
	}
	if m.Vertices[4] != (vec3.T{1, 1, 0}) {
		t.Errorf("expected vertex (1,1,0), got %v", m.Vertices[4])
	}
	if m.Source.Header != "square" {
		t.Errorf("expected header %q, got %q", "square", m.Source.Header)
	}
}

func TestDecodeSTL_ASCIIMalformed(t *testing.T) {
	cases := []string{
		"solid s\n facet normal 0 0 1\n vertex 0 0\n",        // short vertex
		"solid s\n facet\n vertex a b c\n",                   // junk coordinates
		"solid s\n facet\n vertex 0 0 0\n vertex 1 0 0\n",    // dangling vertices
	}
	for _, in := range cases {
		if _, err := DecodeSTL([]byte(in)); !errors.Is(err, ErrMalformedSTL) {
			t.Errorf("input %q: expected ErrMalformedSTL, got %v", in, err)
		}
	}
}

func TestDecodeSTL_BinaryWithSolidHeader(t *testing.T) {
	// binary files whose header text starts with "solid" must still
	// parse as binary
	data := createTestSTL("solid exported-by-something", [][9]float32{
		{0, 0, 0, 1, 0, 0, 0, 1, 0},
	})

	m, err := DecodeSTL(data)
	if err != nil {
		t.Fatalf("DecodeSTL failed: %v", err)
	}
	if len(m.Faces) != 1 {
		t.Errorf("expected 1 face, got %d", len(m.Faces))
	}
}

func TestEncodeSTLRoundTrip(t *testing.T) {
	box := trimesh.Box([3]float64{2, 2, 2})
	box.Source.Header = "unit box"

	data := EncodeSTL(box)
	if want := 84 + 12*50; len(data) != want {
		t.Fatalf("expected %d bytes, got %d", want, len(data))
	}

	m, err := DecodeSTL(data)
	if err != nil {
		t.Fatalf("DecodeSTL failed: %v", err)
	}
	if len(m.Vertices) != 36 {
		t.Errorf("expected 36 soup vertices, got %d", len(m.Vertices))
	}
	if len(m.Faces) != 12 {
		t.Errorf("expected 12 faces, got %d", len(m.Faces))
	}
	if m.Source.Header != "unit box" {
		t.Errorf("expected header round trip, got %q", m.Source.Header)
	}

	// soup positions must match the original corner coordinates
	for fi, f := range box.Faces {
		for c := 0; c < 3; c++ {
			want := box.Vertices[f[c]]
			got := m.Vertices[fi*3+c]
			if got != want {
				t.Errorf("face %d corner %d: got %v, want %v", fi, c, got, want)
			}
		}
	}
}
