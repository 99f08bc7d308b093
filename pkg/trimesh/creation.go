package trimesh

// Box returns an axis-aligned box mesh centered at the origin with the
// given extents: 8 vertices, 12 triangles.
func Box(extents [3]float64) *Mesh {
	hx, hy, hz := extents[0]/2, extents[1]/2, extents[2]/2

	vertices := []float64{
		-hx, -hy, -hz,
		hx, -hy, -hz,
		hx, hy, -hz,
		-hx, hy, -hz,
		-hx, -hy, hz,
		hx, -hy, hz,
		hx, hy, hz,
		-hx, hy, hz,
	}
	faces := []int{
		0, 1, 2, 0, 2, 3,
		4, 5, 6, 4, 6, 7,
		0, 1, 5, 0, 5, 4,
		2, 3, 7, 2, 7, 6,
		1, 2, 6, 1, 6, 5,
		3, 0, 4, 3, 4, 7,
	}

	// both slices are multiples of 3 by construction
	m, _ := FromSlice(vertices, faces)
	return m
}

// TriangulateFan triangulates a polygon as a fan rooted at its first
// vertex. It needs no vertex positions, but can produce incorrect
// triangulations for non-convex polygons and does not support holes.
func TriangulateFan(exterior []int) []Face {
	if len(exterior) < 3 {
		return nil
	}
	faces := make([]Face, 0, len(exterior)-2)
	for i := 1; i < len(exterior)-1; i++ {
		faces = append(faces, Face{exterior[0], exterior[i], exterior[i+1]})
	}
	return faces
}
