// Package trimesh implements triangle meshes with lazily cached
// derived geometry and quadric-error-metric simplification.
package trimesh

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ungerik/go3d/float64/vec3"
)

// Face is a triangle described by three indices into a mesh's vertex
// list. The index order determines the outward orientation used for
// normal computation.
type Face [3]int

// Query errors.
var (
	ErrNoVertices       = errors.New("mesh has no vertices")
	ErrDegenerateBounds = errors.New("all vertices are the same")
	ErrBadVertexSlice   = errors.New("vertex slice length must be a multiple of 3")
	ErrBadFaceSlice     = errors.New("face slice length must be a multiple of 3")
)

// Source records where a mesh came from, when known. Format loaders
// fill it in; meshes built in memory leave it zero.
type Source struct {
	Format string
	Header string
}

// Mesh is a triangle mesh: vertex positions plus face connectivity.
// Derived quantities (cross products, normals, areas, edges,
// adjacency) are computed on first access and memoized per instance.
// Meshes produced by Simplify or Clone always start with an empty
// cache of their own.
type Mesh struct {
	Vertices []vec3.T
	Faces    []Face

	Source Source

	mu    sync.RWMutex
	cache meshCache
}

// meshCache holds the lazily computed derived attributes. A nil slot
// means not computed yet. Slots are populated at most once under mu;
// two goroutines racing on the same empty slot may both compute the
// (pure, deterministic) value, and the first write wins.
type meshCache struct {
	facesCross          []vec3.T
	faceNormals         []vec3.T
	facesArea           []float64
	area                *float64
	edges               [][2]int
	faceAdjacency       [][2]int
	faceAdjacencyAngles []float64
}

// New creates a mesh from explicit vertex and face lists. The slices
// are owned by the mesh afterwards.
func New(vertices []vec3.T, faces []Face) *Mesh {
	return &Mesh{Vertices: vertices, Faces: faces}
}

// FromSlice creates a mesh from flat buffers: vertex coordinates in
// triples and face indices in triples.
func FromSlice(vertices []float64, faces []int) (*Mesh, error) {
	if len(vertices)%3 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBadVertexSlice, len(vertices))
	}
	if len(faces)%3 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBadFaceSlice, len(faces))
	}

	v := make([]vec3.T, len(vertices)/3)
	for i := range v {
		v[i] = vec3.T{vertices[i*3], vertices[i*3+1], vertices[i*3+2]}
	}

	f := make([]Face, len(faces)/3)
	for i := range f {
		f[i] = Face{faces[i*3], faces[i*3+1], faces[i*3+2]}
	}

	return New(v, f), nil
}

// Clone returns a deep copy of the mesh with an empty cache.
func (m *Mesh) Clone() *Mesh {
	vertices := make([]vec3.T, len(m.Vertices))
	copy(vertices, m.Vertices)
	faces := make([]Face, len(m.Faces))
	copy(faces, m.Faces)
	c := New(vertices, faces)
	c.Source = m.Source
	return c
}

// FacesCross returns the non-normalized cross product of each face's
// two edge vectors taken from its first vertex.
func (m *Mesh) FacesCross() []vec3.T {
	m.mu.RLock()
	cached := m.cache.facesCross
	m.mu.RUnlock()
	if cached != nil {
		return cached
	}

	out := make([]vec3.T, len(m.Faces))
	forEachFace(len(m.Faces), func(i int) {
		f := m.Faces[i]
		e1 := vec3.Sub(&m.Vertices[f[1]], &m.Vertices[f[0]])
		e2 := vec3.Sub(&m.Vertices[f[2]], &m.Vertices[f[0]])
		out[i] = vec3.Cross(&e1, &e2)
	})

	m.mu.Lock()
	if m.cache.facesCross == nil {
		m.cache.facesCross = out
	}
	out = m.cache.facesCross
	m.mu.Unlock()
	return out
}

// FaceNormals returns the unit normal of each face. Zero-area faces
// produce NaN components; callers feeding degenerate geometry get
// exactly what they asked for.
func (m *Mesh) FaceNormals() []vec3.T {
	m.mu.RLock()
	cached := m.cache.faceNormals
	m.mu.RUnlock()
	if cached != nil {
		return cached
	}

	cross := m.FacesCross()
	out := make([]vec3.T, len(cross))
	forEachFace(len(cross), func(i int) {
		c := cross[i]
		out[i] = c.Scaled(1 / c.Length())
	})

	m.mu.Lock()
	if m.cache.faceNormals == nil {
		m.cache.faceNormals = out
	}
	out = m.cache.faceNormals
	m.mu.Unlock()
	return out
}

// FacesArea returns the area of each face.
func (m *Mesh) FacesArea() []float64 {
	m.mu.RLock()
	cached := m.cache.facesArea
	m.mu.RUnlock()
	if cached != nil {
		return cached
	}

	cross := m.FacesCross()
	out := make([]float64, len(cross))
	forEachFace(len(cross), func(i int) {
		out[i] = cross[i].Length() / 2
	})

	m.mu.Lock()
	if m.cache.facesArea == nil {
		m.cache.facesArea = out
	}
	out = m.cache.facesArea
	m.mu.Unlock()
	return out
}

// Area returns the summed area of every face.
func (m *Mesh) Area() float64 {
	m.mu.RLock()
	cached := m.cache.area
	m.mu.RUnlock()
	if cached != nil {
		return *cached
	}

	total := 0.0
	for _, a := range m.FacesArea() {
		total += a
	}

	m.mu.Lock()
	if m.cache.area == nil {
		m.cache.area = &total
	}
	total = *m.cache.area
	m.mu.Unlock()
	return total
}

// Edges returns the three directed edges of every face, in face order:
// entries 3i, 3i+1, 3i+2 belong to face i.
func (m *Mesh) Edges() [][2]int {
	m.mu.RLock()
	cached := m.cache.edges
	m.mu.RUnlock()
	if cached != nil {
		return cached
	}

	out := make([][2]int, len(m.Faces)*3)
	forEachFace(len(m.Faces), func(i int) {
		f := m.Faces[i]
		out[i*3] = [2]int{f[0], f[1]}
		out[i*3+1] = [2]int{f[1], f[2]}
		out[i*3+2] = [2]int{f[2], f[0]}
	})

	m.mu.Lock()
	if m.cache.edges == nil {
		m.cache.edges = out
	}
	out = m.cache.edges
	m.mu.Unlock()
	return out
}

// FaceAdjacency returns the pairs of face indices that share an edge.
// An edge shared by more than two faces only pairs its first two
// occurrences; further incidences are dropped, so non-manifold input
// yields an incomplete adjacency.
func (m *Mesh) FaceAdjacency() [][2]int {
	m.mu.RLock()
	cached := m.cache.faceAdjacency
	m.mu.RUnlock()
	if cached != nil {
		return cached
	}

	edges := m.Edges()
	seen := make(map[[2]int]int, len(edges))
	adjacency := make([][2]int, 0, len(edges)/2)
	for i, e := range edges {
		face := i / 3
		key := [2]int{e[0], e[1]}
		if key[0] > key[1] {
			key[0], key[1] = key[1], key[0]
		}
		first, ok := seen[key]
		switch {
		case !ok:
			seen[key] = face
		case first >= 0:
			adjacency = append(adjacency, [2]int{first, face})
			seen[key] = -1
		}
	}

	m.mu.Lock()
	if m.cache.faceAdjacency == nil {
		m.cache.faceAdjacency = adjacency
	}
	adjacency = m.cache.faceAdjacency
	m.mu.Unlock()
	return adjacency
}

// FaceAdjacencyAngles returns the angle in radians between the normals
// of each adjacent face pair, in FaceAdjacency order.
func (m *Mesh) FaceAdjacencyAngles() []float64 {
	m.mu.RLock()
	cached := m.cache.faceAdjacencyAngles
	m.mu.RUnlock()
	if cached != nil {
		return cached
	}

	adjacency := m.FaceAdjacency()
	normals := m.FaceNormals()
	out := make([]float64, len(adjacency))
	forEachFace(len(adjacency), func(i int) {
		d := vec3.Dot(&normals[adjacency[i][0]], &normals[adjacency[i][1]])
		out[i] = math.Acos(math.Max(-1, math.Min(1, d)))
	})

	m.mu.Lock()
	if m.cache.faceAdjacencyAngles == nil {
		m.cache.faceAdjacencyAngles = out
	}
	out = m.cache.faceAdjacencyAngles
	m.mu.Unlock()
	return out
}

// Bounds returns the axis-aligned bounding box of the mesh. It fails
// with ErrNoVertices on an empty mesh and with ErrDegenerateBounds
// when every vertex has the same position.
func (m *Mesh) Bounds() (lower, upper vec3.T, err error) {
	if len(m.Vertices) == 0 {
		return vec3.Zero, vec3.Zero, ErrNoVertices
	}

	lower, upper = m.Vertices[0], m.Vertices[0]
	for i := 1; i < len(m.Vertices); i++ {
		lower = vec3.Min(&lower, &m.Vertices[i])
		upper = vec3.Max(&upper, &m.Vertices[i])
	}

	if lower == upper {
		return lower, upper, ErrDegenerateBounds
	}
	return lower, upper, nil
}

// Simplify reduces the mesh to at most targetCount faces and returns
// the result as a new mesh with an empty cache. See SimplifyMesh.
func (m *Mesh) Simplify(targetCount int, aggressiveness float64) (*Mesh, error) {
	vertices, faces, err := SimplifyMesh(m.Vertices, m.Faces, targetCount, aggressiveness, false)
	if err != nil {
		return nil, err
	}
	return New(vertices, faces), nil
}
