package trimesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ungerik/go3d/float64/vec3"
)

// checkMeshValid asserts the structural invariants every simplifier
// output must satisfy: in-range indices, no orphan vertices, no NaN
// positions.
func checkMeshValid(t *testing.T, vertices []vec3.T, faces []Face) {
	t.Helper()

	referenced := make([]bool, len(vertices))
	for fi, f := range faces {
		for _, vi := range f {
			require.GreaterOrEqual(t, vi, 0, "face %d", fi)
			require.Less(t, vi, len(vertices), "face %d", fi)
			referenced[vi] = true
		}
	}
	if len(faces) > 0 {
		for vi, used := range referenced {
			assert.True(t, used, "orphan vertex %d", vi)
		}
	}
	for vi, p := range vertices {
		for axis := 0; axis < 3; axis++ {
			assert.False(t, math.IsNaN(p[axis]), "vertex %d axis %d", vi, axis)
		}
	}
}

func TestSimplifyBox(t *testing.T) {
	m := Box([3]float64{2, 2, 2})

	vertices, faces, err := SimplifyMesh(m.Vertices, m.Faces, 6, 7.0, false)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(faces), 6)
	assert.Less(t, len(faces), len(m.Faces))
	assert.LessOrEqual(t, len(vertices), len(m.Vertices))
	checkMeshValid(t, vertices, faces)
}

func TestSimplifySphere(t *testing.T) {
	m := uvSphere(8, 12)

	vertices, faces, err := SimplifyMesh(m.Vertices, m.Faces, 60, 5.0, false)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(faces), 60)
	checkMeshValid(t, vertices, faces)

	// decimated vertices stay near the unit sphere
	for vi, p := range vertices {
		assert.InDelta(t, 1.0, p.Length(), 0.35, "vertex %d", vi)
	}
}

func TestSimplifyTargetAtOrAboveInput(t *testing.T) {
	m := Box([3]float64{1, 1, 1})

	for _, target := range []int{12, 13, 1000} {
		for _, agg := range []float64{0, 3, 7, 20} {
			vertices, faces, err := SimplifyMesh(m.Vertices, m.Faces, target, agg, false)
			require.NoError(t, err)
			assert.Equal(t, m.Vertices, vertices, "target=%d agg=%v", target, agg)
			assert.Equal(t, m.Faces, faces, "target=%d agg=%v", target, agg)
		}
	}
}

func TestSimplifyZeroTarget(t *testing.T) {
	m := Box([3]float64{1, 1, 1})

	vertices, faces, err := SimplifyMesh(m.Vertices, m.Faces, 0, 7.0, false)
	require.NoError(t, err)
	assert.Empty(t, vertices)
	assert.Empty(t, faces)
}

func TestSimplifyTrivialInputs(t *testing.T) {
	// no faces: nothing to do regardless of target
	verts := []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	outV, outF, err := SimplifyMesh(verts, nil, 0, 7.0, false)
	require.NoError(t, err)
	assert.Equal(t, verts, outV)
	assert.Empty(t, outF)

	// fewer than three vertices: input passes through
	two := []vec3.T{{0, 0, 0}, {1, 0, 0}}
	badFaces := []Face{{0, 1, 1}}
	outV, outF, err = SimplifyMesh(two, badFaces, 0, 7.0, false)
	require.NoError(t, err)
	assert.Equal(t, two, outV)
	assert.Equal(t, badFaces, outF)
}

func TestSimplifyInputUntouched(t *testing.T) {
	m := Box([3]float64{1, 1, 1})
	origVerts := make([]vec3.T, len(m.Vertices))
	copy(origVerts, m.Vertices)
	origFaces := make([]Face, len(m.Faces))
	copy(origFaces, m.Faces)

	_, _, err := SimplifyMesh(m.Vertices, m.Faces, 4, 7.0, false)
	require.NoError(t, err)
	assert.Equal(t, origVerts, m.Vertices)
	assert.Equal(t, origFaces, m.Faces)
}

func TestSimplifyBorderMismatchBlocksCollapse(t *testing.T) {
	// Square pyramid without its base: the apex is interior, the four
	// base vertices sit on the open boundary. Every interior/boundary
	// edge is rejected and boundary/boundary edges never become
	// candidates, so the mesh survives untouched.
	vertices := []vec3.T{
		{1, 1, 0}, {-1, 1, 0}, {-1, -1, 0}, {1, -1, 0},
		{0, 0, 1},
	}
	faces := []Face{{4, 0, 1}, {4, 1, 2}, {4, 2, 3}, {4, 3, 0}}

	outV, outF, err := SimplifyMesh(vertices, faces, 2, 7.0, false)
	require.NoError(t, err)
	assert.Equal(t, vertices, outV)
	assert.Equal(t, faces, outF)
}

func TestSimplifyOpenPatchUntouched(t *testing.T) {
	// A fan with a sliver hanging off it. Every vertex is on the
	// boundary, so no edge is ever seeded as a candidate and the sliver
	// edge in particular is never collapsed.
	vertices := []vec3.T{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {-1, 0, 0},
		{3, 0.2, 0},
	}
	faces := []Face{{0, 1, 2}, {0, 2, 3}, {0, 1, 4}}

	outV, outF, err := SimplifyMesh(vertices, faces, 2, 7.0, false)
	require.NoError(t, err)
	assert.Equal(t, vertices, outV)
	assert.Equal(t, faces, outF)
}

func TestFlippedGuard(t *testing.T) {
	vertices := []vec3.T{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {-1, 0, 0},
		{3, 0.2, 0},
	}
	faces := []Face{{0, 1, 2}, {0, 2, 3}, {0, 1, 4}}

	s := newSimplifier(vertices, faces)
	s.rebuild(0)

	flags := make([]bool, s.vertices[0].tcount)

	// Dragging vertex 0 out to vertex 4's position swings the fan
	// triangles' normals past the fold limit.
	assert.True(t, s.flipped(vertices[4], 0, 4, flags))

	// Leaving vertex 0 in place folds nothing; the triangle carrying
	// the collapsing edge itself is flagged for deletion instead.
	flags = resizeFlags(flags, s.vertices[0].tcount)
	assert.False(t, s.flipped(vertices[0], 0, 4, flags))
	assert.True(t, flags[2], "edge-bearing triangle must be flagged deleted")
}

func TestBorderClassification(t *testing.T) {
	// closed box: no borders anywhere
	box := Box([3]float64{1, 1, 1})
	s := newSimplifier(box.Vertices, box.Faces)
	s.rebuild(0)
	for vi, v := range s.vertices {
		assert.False(t, v.border, "vertex %d", vi)
	}

	// open pyramid: base ring is border, apex is not
	vertices := []vec3.T{
		{1, 1, 0}, {-1, 1, 0}, {-1, -1, 0}, {1, -1, 0},
		{0, 0, 1},
	}
	faces := []Face{{4, 0, 1}, {4, 1, 2}, {4, 2, 3}, {4, 3, 0}}
	s = newSimplifier(vertices, faces)
	s.rebuild(0)
	for vi := 0; vi < 4; vi++ {
		assert.True(t, s.vertices[vi].border, "base vertex %d", vi)
	}
	assert.False(t, s.vertices[4].border, "apex")
}

func TestCompactDropsOrphans(t *testing.T) {
	// vertex 3 is never referenced and must be renumbered away
	vertices := []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {9, 9, 9}, {1, 1, 0}}
	faces := []Face{{0, 1, 2}, {1, 4, 2}}

	s := newSimplifier(vertices, faces)
	require.NoError(t, s.compact())

	outV, outF := s.result()
	require.Len(t, outV, 4)
	assert.Equal(t, []Face{{0, 1, 2}, {1, 3, 2}}, outF)
	assert.NotContains(t, outV, vec3.T{9, 9, 9})
}

func TestCompactOutOfRangeIndex(t *testing.T) {
	vertices := []vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	faces := []Face{{0, 1, 7}}

	s := newSimplifier(vertices, faces)
	err := s.compact()
	require.ErrorIs(t, err, ErrInternal)
}

// uvSphere builds a latitude/longitude unit sphere with pole fans.
func uvSphere(rings, segments int) *Mesh {
	vertices := []vec3.T{{0, 0, 1}}
	for r := 1; r < rings; r++ {
		phi := math.Pi * float64(r) / float64(rings)
		for sgm := 0; sgm < segments; sgm++ {
			theta := 2 * math.Pi * float64(sgm) / float64(segments)
			vertices = append(vertices, vec3.T{
				math.Sin(phi) * math.Cos(theta),
				math.Sin(phi) * math.Sin(theta),
				math.Cos(phi),
			})
		}
	}
	south := len(vertices)
	vertices = append(vertices, vec3.T{0, 0, -1})

	ringStart := func(r int) int { return 1 + (r-1)*segments }

	var faces []Face
	for sgm := 0; sgm < segments; sgm++ {
		next := (sgm + 1) % segments
		faces = append(faces, Face{0, ringStart(1) + sgm, ringStart(1) + next})
	}
	for r := 1; r < rings-1; r++ {
		for sgm := 0; sgm < segments; sgm++ {
			next := (sgm + 1) % segments
			a := ringStart(r) + sgm
			b := ringStart(r) + next
			c := ringStart(r+1) + sgm
			d := ringStart(r+1) + next
			faces = append(faces, Face{a, c, b}, Face{b, c, d})
		}
	}
	last := rings - 1
	for sgm := 0; sgm < segments; sgm++ {
		next := (sgm + 1) % segments
		faces = append(faces, Face{ringStart(last) + sgm, south, ringStart(last) + next})
	}

	return New(vertices, faces)
}
