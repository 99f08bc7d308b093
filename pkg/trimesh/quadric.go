package trimesh

import "github.com/ungerik/go3d/float64/vec3"

// Quadric is a symmetric 4x4 error matrix stored as its 10 upper
// triangular coefficients. Accumulated from the supporting planes of a
// vertex's incident faces, it scores the squared distance of a point
// to all of those planes at once.
type Quadric [10]float64

// PlaneQuadric builds a quadric from the plane ax + by + cz + d = 0 as
// the outer product of [a b c d] with itself.
func PlaneQuadric(a, b, c, d float64) Quadric {
	return Quadric{
		a * a, a * b, a * c, a * d,
		b * b, b * c, b * d,
		c * c, c * d,
		d * d,
	}
}

// Add returns the elementwise sum of two quadrics. Addition is
// commutative and associative, so quadrics from any number of planes
// can be merged in any order.
func (q Quadric) Add(o Quadric) Quadric {
	for i := range q {
		q[i] += o[i]
	}
	return q
}

// Eval computes the quadratic form [x y z 1] Q [x y z 1]^T. The result
// is zero for a point on every contributing plane and grows
// quadratically with deviation.
func (q Quadric) Eval(p vec3.T) float64 {
	x, y, z := p[0], p[1], p[2]
	return q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
}

// det returns the determinant of the 3x3 submatrix picked out by the
// given coefficient indices.
func (q Quadric) det(a11, a12, a13, a21, a22, a23, a31, a32, a33 int) float64 {
	return q[a11]*q[a22]*q[a33] + q[a13]*q[a21]*q[a32] + q[a12]*q[a23]*q[a31] -
		q[a13]*q[a22]*q[a31] - q[a11]*q[a23]*q[a32] - q[a12]*q[a21]*q[a33]
}
