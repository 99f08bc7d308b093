package trimesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ungerik/go3d/float64/vec3"
)

func TestPlaneQuadricEval(t *testing.T) {
	// plane z = 0
	q := PlaneQuadric(0, 0, 1, 0)

	assert.InDelta(t, 0, q.Eval(vec3.T{5, -2, 0}), 1e-12)
	assert.InDelta(t, 4, q.Eval(vec3.T{1, 2, 2}), 1e-12)
	assert.InDelta(t, 4, q.Eval(vec3.T{0, 0, -2}), 1e-12)
}

func TestPlaneQuadricOffsetPlane(t *testing.T) {
	// plane x = 1, i.e. x - 1 = 0
	q := PlaneQuadric(1, 0, 0, -1)

	assert.InDelta(t, 0, q.Eval(vec3.T{1, 7, -3}), 1e-12)
	// squared distance to the plane
	assert.InDelta(t, 4, q.Eval(vec3.T{3, 0, 0}), 1e-12)
	assert.InDelta(t, 9, q.Eval(vec3.T{-2, 1, 1}), 1e-12)
}

func TestQuadricAdd(t *testing.T) {
	a := PlaneQuadric(0, 0, 1, 0)
	b := PlaneQuadric(1, 0, 0, -1)

	sum := a.Add(b)
	assert.Equal(t, b.Add(a), sum)

	// evaluation distributes over accumulation
	p := vec3.T{3, 1, 2}
	assert.InDelta(t, a.Eval(p)+b.Eval(p), sum.Eval(p), 1e-12)

	// adding must not mutate the operands
	assert.Equal(t, PlaneQuadric(0, 0, 1, 0), a)
	assert.Equal(t, PlaneQuadric(1, 0, 0, -1), b)
}

func TestQuadricZero(t *testing.T) {
	var q Quadric
	assert.Equal(t, 0.0, q.Eval(vec3.T{1, 2, 3}))

	a := PlaneQuadric(0, 1, 0, 2)
	assert.Equal(t, a, q.Add(a))
}
