package render

import "math"

// Mat4 is a 4x4 matrix in column-major order (OpenGL compatible).
type Mat4 [16]float32

// Vec3f is a float32 vector for camera math.
type Vec3f struct {
	X, Y, Z float32
}

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Perspective returns a perspective projection matrix.
// fovY is in radians, aspect is width/height.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := float32(1.0 / math.Tan(float64(fovY)/2.0))
	nf := 1.0 / (near - far)

	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, -1,
		0, 0, 2 * far * near * nf, 0,
	}
}

// LookAt returns a view matrix looking from eye to center with up direction.
func LookAt(eye, center, up Vec3f) Mat4 {
	f := center.sub(eye).normalize()
	s := f.cross(up).normalize()
	u := s.cross(f)

	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.dot(eye), -u.dot(eye), f.dot(eye), 1,
	}
}

// Ptr returns a pointer to the matrix data for OpenGL calls.
func (m *Mat4) Ptr() *float32 {
	return &m[0]
}

func (v Vec3f) sub(o Vec3f) Vec3f {
	return Vec3f{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3f) dot(o Vec3f) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3f) cross(o Vec3f) Vec3f {
	return Vec3f{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3f) normalize() Vec3f {
	l := float32(math.Sqrt(float64(v.dot(v))))
	if l == 0 {
		return v
	}
	return Vec3f{v.X / l, v.Y / l, v.Z / l}
}
