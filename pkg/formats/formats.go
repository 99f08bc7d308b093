// Package formats loads and saves triangle meshes in common
// interchange formats.
package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/trimesh/pkg/trimesh"
)

// Format identifies a mesh interchange format.
type Format int

// Supported formats.
const (
	// STL is a binary or ASCII format carrying a pure triangle soup.
	FormatSTL Format = iota
	// OBJ is an ASCII format with a lot of extra junk.
	FormatOBJ
	// PLY is a binary format with an ASCII header.
	FormatPLY
)

var ErrUnsupportedFormat = errors.New("unsupported mesh format")

// String returns the conventional lowercase file extension.
func (f Format) String() string {
	switch f {
	case FormatSTL:
		return "stl"
	case FormatOBJ:
		return "obj"
	case FormatPLY:
		return "ply"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// ParseFormat maps a format name or file extension to a Format. It
// accepts sloppy input: "stl", ".stl", "  .StL " all resolve to the
// same format.
func ParseFormat(s string) (Format, error) {
	clean := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "."))
	switch clean {
	case "stl":
		return FormatSTL, nil
	case "obj":
		return FormatOBJ, nil
	case "ply":
		return FormatPLY, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, clean)
}

// Load decodes raw file bytes in the given format into a mesh.
func Load(data []byte, format Format) (*trimesh.Mesh, error) {
	switch format {
	case FormatSTL:
		return DecodeSTL(data)
	case FormatOBJ:
		return DecodeOBJ(data)
	case FormatPLY:
		return nil, fmt.Errorf("%w: ply loading is not implemented", ErrUnsupportedFormat)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
}

// LoadFile reads a mesh file from disk, guessing the format from the
// file extension.
func LoadFile(path string) (*trimesh.Mesh, error) {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mesh file: %w", err)
	}
	return Load(data, format)
}

// Save encodes a mesh in the given format.
func Save(m *trimesh.Mesh, format Format) ([]byte, error) {
	switch format {
	case FormatSTL:
		return EncodeSTL(m), nil
	case FormatOBJ:
		return EncodeOBJ(m), nil
	case FormatPLY:
		return nil, fmt.Errorf("%w: ply saving is not implemented", ErrUnsupportedFormat)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
}

// SaveFile writes a mesh to disk, guessing the format from the file
// extension.
func SaveFile(path string, m *trimesh.Mesh) error {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}
	data, err := Save(m, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing mesh file: %w", err)
	}
	return nil
}
