package render

import (
	"math"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/trimesh/pkg/trimesh"
)

// meshVertex is the interleaved vertex format uploaded to the GPU.
type meshVertex struct {
	Position [3]float32
	Normal   [3]float32
}

// MeshBuffer holds the GPU resources for one uploaded mesh. The mesh
// is expanded to a flat-shaded soup: every triangle gets three fresh
// vertices carrying the face normal, so simplification artifacts stay
// visible instead of being smoothed away.
type MeshBuffer struct {
	vao         uint32
	vbo         uint32
	vertexCount int32
}

// NewMeshBuffer uploads a mesh into a vertex array ready for drawing.
func NewMeshBuffer(m *trimesh.Mesh) *MeshBuffer {
	normals := m.FaceNormals()

	vertices := make([]meshVertex, 0, len(m.Faces)*3)
	for fi, f := range m.Faces {
		n := normals[fi]
		var nf [3]float32
		for axis := 0; axis < 3; axis++ {
			if !math.IsNaN(n[axis]) {
				nf[axis] = float32(n[axis])
			}
		}
		for _, vi := range f {
			p := m.Vertices[vi]
			vertices = append(vertices, meshVertex{
				Position: [3]float32{float32(p[0]), float32(p[1]), float32(p[2])},
				Normal:   nf,
			})
		}
	}

	b := &MeshBuffer{vertexCount: int32(len(vertices))}

	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)

	gl.GenBuffers(1, &b.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	if len(vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER,
			len(vertices)*int(unsafe.Sizeof(meshVertex{})),
			gl.Ptr(vertices), gl.STATIC_DRAW)
	}

	stride := int32(unsafe.Sizeof(meshVertex{}))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride,
		unsafe.Offsetof(meshVertex{}.Normal))

	gl.BindVertexArray(0)
	return b
}

// Draw renders the mesh. Wireframe switches the polygon mode for this
// draw only.
func (b *MeshBuffer) Draw(wireframe bool) {
	if b.vertexCount == 0 {
		return
	}
	if wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
		defer gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
	gl.BindVertexArray(b.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, b.vertexCount)
	gl.BindVertexArray(0)
}

// Destroy releases the GPU resources.
func (b *MeshBuffer) Destroy() {
	if b.vbo != 0 {
		gl.DeleteBuffers(1, &b.vbo)
	}
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
	}
}
