package trimesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/ungerik/go3d/float64/vec3"
	"go.uber.org/zap"
)

// ErrInternal marks a bookkeeping defect inside the simplifier, such
// as a surviving triangle referencing a vertex missing from the
// compaction remap. It is a bug-class failure, not a bad-input
// failure, and the operation aborts rather than patching indices.
var ErrInternal = errors.New("internal consistency violation")

// Policy constants for the collapse loop. Convergence speed and output
// quality depend on these exact values; they are tuned, not derived.
const (
	maxPasses       = 100
	rebuildInterval = 5
	detEpsilon      = 1e-15
	thresholdBase   = 1e-9
	colinearLimit   = 0.999
	flipLimit       = 0.2
)

var simplifyLog = zap.NewNop().Sugar()

// SetLogger routes verbose simplification progress through the given
// logger. The package stays quiet by default so library consumers are
// never surprised by output.
func SetLogger(l *zap.Logger) {
	simplifyLog = l.Sugar()
}

// SimplifyMesh reduces faces to at most targetCount triangles by
// iterative quadric-error edge collapse. Aggressiveness controls how
// fast the per-pass error threshold grows; values between 5 and 8 work
// well. The input slices are never modified.
//
// A target at or above the current face count, fewer than 3 vertices,
// or no faces returns the input unchanged. A target of zero returns an
// empty mesh. The only error this can return is ErrInternal.
func SimplifyMesh(vertices []vec3.T, faces []Face, targetCount int, aggressiveness float64, verbose bool) ([]vec3.T, []Face, error) {
	if targetCount >= len(faces) || len(faces) == 0 || len(vertices) < 3 {
		outVerts := make([]vec3.T, len(vertices))
		copy(outVerts, vertices)
		outFaces := make([]Face, len(faces))
		copy(outFaces, faces)
		return outVerts, outFaces, nil
	}
	if targetCount == 0 {
		return []vec3.T{}, []Face{}, nil
	}

	if verbose {
		simplifyLog.Infow("simplify start",
			"vertices", len(vertices),
			"faces", len(faces),
			"target", targetCount,
			"aggressiveness", aggressiveness,
		)
	}

	s := newSimplifier(vertices, faces)
	if err := s.run(targetCount, aggressiveness, verbose); err != nil {
		return nil, nil, err
	}
	if err := s.compact(); err != nil {
		return nil, nil, err
	}

	outVerts, outFaces := s.result()
	if verbose {
		simplifyLog.Infow("simplify done",
			"vertices", len(outVerts),
			"faces", len(outFaces),
		)
	}
	return outVerts, outFaces, nil
}

// vtx is a working-set vertex record. tstart and tcount describe a
// window into the simplifier's refs table holding the refs of every
// live triangle incident to this vertex. The window is only valid
// immediately after a rebuild or after the collapse that reassigned
// it; a stale window must never be read.
type vtx struct {
	p      vec3.T
	q      Quadric
	tstart int
	tcount int
	border bool
}

// tri is a working-set triangle. Once deleted is set the record is a
// tombstone and its v and err fields must not be read again; dirty
// means its indices changed this pass and it is skipped until the
// next one.
type tri struct {
	v       [3]int
	err     [4]float64 // per-edge collapse errors plus their minimum
	deleted bool
	dirty   bool
	n       vec3.T
}

// ref ties a vertex to one incident triangle and the corner it
// occupies there.
type ref struct {
	tid     int
	tvertex int
}

// simplifier owns the per-invocation working set. It is strictly
// single threaded; concurrent simplifications must each build their
// own.
type simplifier struct {
	vertices  []vtx
	triangles []tri
	refs      []ref

	deletedTriangles int
}

func newSimplifier(vertices []vec3.T, faces []Face) *simplifier {
	s := &simplifier{
		vertices:  make([]vtx, len(vertices)),
		triangles: make([]tri, len(faces)),
	}
	for i, p := range vertices {
		s.vertices[i] = vtx{p: p}
	}
	for i, f := range faces {
		s.triangles[i] = tri{v: [3]int{f[0], f[1], f[2]}}
	}
	return s
}

// run executes the bounded convergence loop: rebuild checkpoints,
// per-pass threshold, scan-and-collapse.
func (s *simplifier) run(targetCount int, aggressiveness float64, verbose bool) error {
	initialCount := len(s.triangles)

	var deleted0, deleted1 []bool

	for pass := 0; pass < maxPasses; pass++ {
		if initialCount-s.deletedTriangles <= targetCount {
			break
		}

		if pass%rebuildInterval == 0 {
			s.rebuild(pass)
		}

		for i := range s.triangles {
			s.triangles[i].dirty = false
		}

		// The threshold grows monotonically across passes: early
		// passes only touch near-zero-error edges, preserving detail,
		// while later passes accept coarser collapses so the loop
		// converges on the target.
		threshold := thresholdBase * math.Pow(float64(pass)+3, aggressiveness)

		if verbose && pass%rebuildInterval == 0 {
			simplifyLog.Infow("simplify pass",
				"pass", pass,
				"triangles", initialCount-s.deletedTriangles,
				"threshold", threshold,
			)
		}

		for tid := range s.triangles {
			t := &s.triangles[tid]
			if t.err[3] > threshold || t.deleted || t.dirty {
				continue
			}

			for j := 0; j < 3; j++ {
				if t.err[j] >= threshold {
					continue
				}

				i0 := t.v[j]
				i1 := t.v[(j+1)%3]
				if i0 >= len(s.vertices) || i1 >= len(s.vertices) {
					return fmt.Errorf("%w: edge (%d,%d) out of range of %d vertices", ErrInternal, i0, i1, len(s.vertices))
				}
				// Never pull an interior vertex onto a boundary or
				// vice versa.
				if s.vertices[i0].border != s.vertices[i1].border {
					continue
				}

				_, p := s.calculateError(i0, i1)

				tcount0 := s.vertices[i0].tcount
				tcount1 := s.vertices[i1].tcount
				deleted0 = resizeFlags(deleted0, tcount0)
				deleted1 = resizeFlags(deleted1, tcount1)

				if s.flipped(p, i0, i1, deleted0) {
					continue
				}
				if s.flipped(p, i1, i0, deleted1) {
					continue
				}

				// Commit: i1 merges into i0 at the optimal position.
				s.vertices[i0].p = p
				s.vertices[i0].q = s.vertices[i0].q.Add(s.vertices[i1].q)

				refsStart := len(s.refs)
				s.updateTriangles(i0, i0, deleted0)
				s.updateTriangles(i0, i1, deleted1)
				s.vertices[i0].tstart = refsStart
				s.vertices[i0].tcount = len(s.refs) - refsStart
				break
			}

			if initialCount-s.deletedTriangles <= targetCount {
				break
			}
		}
	}

	return nil
}

// calculateError scores collapsing the edge (id1, id2) and returns the
// optimal merge position. When the combined quadric is near singular,
// or both endpoints sit on a border, the closed-form solve is skipped
// and the cheapest of the two endpoints and their midpoint wins.
func (s *simplifier) calculateError(id1, id2 int) (float64, vec3.T) {
	q := s.vertices[id1].q.Add(s.vertices[id2].q)
	border := s.vertices[id1].border && s.vertices[id2].border
	det := q.det(0, 1, 2, 1, 4, 5, 2, 5, 7)

	if math.Abs(det) > detEpsilon && !border {
		p := vec3.T{
			-1 / det * q.det(1, 2, 3, 4, 5, 6, 5, 7, 8),
			1 / det * q.det(0, 2, 3, 1, 5, 6, 2, 7, 8),
			-1 / det * q.det(0, 1, 3, 1, 4, 6, 2, 5, 8),
		}
		return q.Eval(p), p
	}

	p1 := s.vertices[id1].p
	p2 := s.vertices[id2].p
	p3 := vec3.Interpolate(&p1, &p2, 0.5)

	err1 := q.Eval(p1)
	err2 := q.Eval(p2)
	err3 := q.Eval(p3)
	err := math.Min(err1, math.Min(err2, err3))
	switch {
	case err == err1:
		return err, p1
	case err == err2:
		return err, p2
	}
	return err, p3
}

// flipped reports whether moving vertex i0 to p would degenerate or
// fold over any triangle still incident to i0, excluding triangles
// containing the collapsing edge (i0, i1); those are recorded in
// deleted for removal by updateTriangles.
func (s *simplifier) flipped(p vec3.T, i0, i1 int, deleted []bool) bool {
	v0 := &s.vertices[i0]
	for k := 0; k < v0.tcount; k++ {
		r := s.refs[v0.tstart+k]
		t := &s.triangles[r.tid]
		if t.deleted {
			continue
		}

		id1 := t.v[(r.tvertex+1)%3]
		id2 := t.v[(r.tvertex+2)%3]
		if id1 == i1 || id2 == i1 {
			deleted[k] = true
			continue
		}

		d1 := vec3.Sub(&s.vertices[id1].p, &p)
		d1 = d1.Scaled(1 / d1.Length())
		d2 := vec3.Sub(&s.vertices[id2].p, &p)
		d2 = d2.Scaled(1 / d2.Length())

		// Nearly colinear edges mean the triangle collapses to a line.
		if math.Abs(vec3.Dot(&d1, &d2)) > colinearLimit {
			return true
		}

		n := vec3.Cross(&d1, &d2)
		n = n.Scaled(1 / n.Length())
		deleted[k] = false
		// A normal swinging past ~78 degrees is a fold-over.
		if vec3.Dot(&n, &t.n) < flipLimit {
			return true
		}
	}
	return false
}

// updateTriangles repoints the surviving triangles around vertex vi to
// the kept vertex i0, tombstones the ones flagged in deleted, and
// appends a fresh ref for every survivor. Old refs are abandoned in
// place until the next rebuild.
func (s *simplifier) updateTriangles(i0, vi int, deleted []bool) {
	v := s.vertices[vi]
	for k := 0; k < v.tcount; k++ {
		r := s.refs[v.tstart+k]
		t := &s.triangles[r.tid]
		if t.deleted {
			continue
		}
		if deleted[k] {
			t.deleted = true
			s.deletedTriangles++
			continue
		}

		t.v[r.tvertex] = i0
		t.dirty = true
		t.err[0], _ = s.calculateError(t.v[0], t.v[1])
		t.err[1], _ = s.calculateError(t.v[1], t.v[2])
		t.err[2], _ = s.calculateError(t.v[2], t.v[0])
		t.err[3] = math.Min(t.err[0], math.Min(t.err[1], t.err[2]))

		s.refs = append(s.refs, r)
	}
}

// rebuild compacts tombstoned triangles out of the triangle array and
// recomputes every vertex's ref window from scratch. The very first
// rebuild additionally classifies border vertices and seeds quadrics
// and per-edge errors.
func (s *simplifier) rebuild(pass int) {
	if pass > 0 {
		live := s.triangles[:0]
		for _, t := range s.triangles {
			if !t.deleted {
				live = append(live, t)
			}
		}
		s.triangles = live
	}

	for i := range s.vertices {
		s.vertices[i].tstart = 0
		s.vertices[i].tcount = 0
	}
	for _, t := range s.triangles {
		if t.deleted {
			continue
		}
		for _, vi := range t.v {
			s.vertices[vi].tcount++
		}
	}

	start := 0
	for i := range s.vertices {
		s.vertices[i].tstart = start
		start += s.vertices[i].tcount
		s.vertices[i].tcount = 0
	}

	s.refs = make([]ref, start)
	for tid, t := range s.triangles {
		if t.deleted {
			continue
		}
		for tv, vi := range t.v {
			v := &s.vertices[vi]
			s.refs[v.tstart+v.tcount] = ref{tid: tid, tvertex: tv}
			v.tcount++
		}
	}

	if pass == 0 {
		s.classifyBorders()
		s.initQuadrics()
	}
}

// classifyBorders marks both endpoints of every edge incident to
// exactly one triangle. For each vertex it counts, per neighbor, how
// many incident triangles carry the edge to that neighbor.
func (s *simplifier) classifyBorders() {
	for vi := range s.vertices {
		v := &s.vertices[vi]
		counts := make(map[int]int)

		for k := 0; k < v.tcount; k++ {
			t := &s.triangles[s.refs[v.tstart+k].tid]
			if t.deleted {
				continue
			}
			for j := 0; j < 3; j++ {
				a, b := t.v[j], t.v[(j+1)%3]
				if a != vi && b != vi {
					continue
				}
				neighbor := a
				if a == vi {
					neighbor = b
				}
				if neighbor != vi {
					counts[neighbor]++
				}
			}
		}

		for neighbor, c := range counts {
			if c == 1 {
				s.vertices[vi].border = true
				s.vertices[neighbor].border = true
			}
		}
	}
}

// initQuadrics accumulates the plane quadric of every live triangle
// into its three vertices, stores the triangle normals, and seeds the
// per-edge errors: edges whose combined quadric is invertible (and not
// border-locked) start at zero so the earliest passes consider them,
// everything else starts effectively unreachable until recomputed
// during a collapse.
func (s *simplifier) initQuadrics() {
	for i := range s.vertices {
		s.vertices[i].q = Quadric{}
	}

	for i := range s.triangles {
		t := &s.triangles[i]
		if t.deleted {
			continue
		}

		p0 := s.vertices[t.v[0]].p
		p1 := s.vertices[t.v[1]].p
		p2 := s.vertices[t.v[2]].p

		e1 := vec3.Sub(&p1, &p0)
		e2 := vec3.Sub(&p2, &p0)
		n := vec3.Cross(&e1, &e2)
		n = n.Scaled(1 / n.Length())
		t.n = n

		d := -vec3.Dot(&n, &p0)
		pq := PlaneQuadric(n[0], n[1], n[2], d)
		for _, vi := range t.v {
			s.vertices[vi].q = s.vertices[vi].q.Add(pq)
		}
	}

	for i := range s.triangles {
		t := &s.triangles[i]
		if t.deleted {
			continue
		}
		for j := 0; j < 3; j++ {
			v0, v1 := t.v[j], t.v[(j+1)%3]
			q := s.vertices[v0].q.Add(s.vertices[v1].q)
			border := s.vertices[v0].border && s.vertices[v1].border
			if math.Abs(q.det(0, 1, 2, 1, 4, 5, 2, 5, 7)) > detEpsilon && !border {
				t.err[j] = 0
			} else {
				t.err[j] = math.MaxFloat64
			}
		}
		t.err[3] = math.Min(t.err[0], math.Min(t.err[1], t.err[2]))
	}
}

// compact drops tombstoned triangles, renumbers the vertices that
// survivors still reference into a dense range, and rewrites every
// face through the remap. A survivor referencing a vertex outside the
// remap aborts with ErrInternal: that is corrupted bookkeeping, never
// bad input.
func (s *simplifier) compact() error {
	live := s.triangles[:0]
	for _, t := range s.triangles {
		if !t.deleted {
			live = append(live, t)
		}
	}
	s.triangles = live

	used := make([]bool, len(s.vertices))
	for _, t := range s.triangles {
		for _, vi := range t.v {
			if vi < 0 || vi >= len(used) {
				return fmt.Errorf("%w: face vertex %d out of range of %d vertices", ErrInternal, vi, len(used))
			}
			used[vi] = true
		}
	}

	remap := make([]int, len(s.vertices))
	for i := range remap {
		remap[i] = -1
	}

	kept := make([]vtx, 0, len(s.vertices))
	for i, u := range used {
		if !u {
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, s.vertices[i])
	}

	for i := range s.triangles {
		for j := 0; j < 3; j++ {
			ni := remap[s.triangles[i].v[j]]
			if ni < 0 {
				return fmt.Errorf("%w: face vertex %d missing from compaction remap", ErrInternal, s.triangles[i].v[j])
			}
			s.triangles[i].v[j] = ni
		}
	}

	s.vertices = kept
	s.refs = s.refs[:0]
	return nil
}

// result extracts the dense vertex and face arrays.
func (s *simplifier) result() ([]vec3.T, []Face) {
	vertices := make([]vec3.T, len(s.vertices))
	for i, v := range s.vertices {
		vertices[i] = v.p
	}
	faces := make([]Face, len(s.triangles))
	for i, t := range s.triangles {
		faces[i] = Face{t.v[0], t.v[1], t.v[2]}
	}
	return vertices, faces
}

// resizeFlags returns flags resized to n entries, all false.
func resizeFlags(flags []bool, n int) []bool {
	if cap(flags) < n {
		return make([]bool, n)
	}
	flags = flags[:n]
	for i := range flags {
		flags[i] = false
	}
	return flags
}
