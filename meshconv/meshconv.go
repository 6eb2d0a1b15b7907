// Package meshconv implements the offline Mesh Converter: resampling an
// unstructured mesh of vertices and per-vertex field values onto a
// regular grid suitable for field.FieldStore, by barycentric
// interpolation over Delaunay-like tetrahedral candidates found via
// nearest-neighbour search on a space.Octree.
package meshconv

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	"pixelmc/common"
	"pixelmc/field"
	"pixelmc/space"
)

// Config governs one conversion run.
type Config struct {
	NX, NY, NZ int
	Min, Max   common.Point3D

	RadiusInitial float64
	RadiusMax     float64
	RadiusStep    float64 // multiplicative step applied to the search radius each retry; defaults to 2 if <= 1.

	VolumeCut                 float64 // minimum |signed volume| to accept a candidate tetrahedron.
	AllowCoplanarInterpolation bool   // relax the volume cut to 0 when no valid element is found.
	AllowFailure               bool   // when true, InterpolationFailure resolves to a zero value with a warning instead of aborting.
	MaxCandidateNeighbors      int    // cap on how many nearest vertices are considered per query; 0 uses a sane default.

	WorkerCount int // 0 means runtime.GOMAXPROCS(0).

	Remap CoordMap
}

// CoordMap describes a permutation and sign-flip remapping applied to
// mesh coordinates (and, for vector fields, to the corresponding field
// components) before interpolation. Axis i of the mesh becomes axis
// Perm[i] of the output, scaled by Sign[i].
type CoordMap struct {
	Perm [3]int
	Sign [3]float64
}

// IdentityCoordMap leaves coordinates and components unchanged.
func IdentityCoordMap() CoordMap {
	return CoordMap{Perm: [3]int{0, 1, 2}, Sign: [3]float64{1, 1, 1}}
}

func (m CoordMap) apply(p common.Point3D) common.Point3D {
	src := [3]float64{float64(p.X), float64(p.Y), float64(p.Z)}
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[m.Perm[i]] = m.Sign[i] * src[i]
	}
	return common.Point3D{X: common.Coordinate(out[0]), Y: common.Coordinate(out[1]), Z: common.Coordinate(out[2])}
}

// Mesh holds the unstructured input: a flat vertex list (already
// coordinate-remapped) and per-vertex field values (N components each).
type Mesh struct {
	Vertices []common.Point3D
	Values   [][]float64 // len(Values) == len(Vertices); each has N components.
	N        int
}

// NewMesh validates that vertex and value counts match.
func NewMesh(vertices []common.Point3D, values [][]float64) (*Mesh, error) {
	if len(vertices) != len(values) {
		return nil, fmt.Errorf("meshconv: %d vertices but %d value rows: %w", len(vertices), len(values), common.ErrField)
	}
	n := 0
	if len(values) > 0 {
		n = len(values[0])
	}
	for _, v := range values {
		if len(v) != n {
			return nil, fmt.Errorf("meshconv: inconsistent value row length: %w", common.ErrField)
		}
	}
	return &Mesh{Vertices: vertices, Values: values, N: n}, nil
}

// tetrahedron is a candidate interpolation element: four vertex indices
// into the owning Mesh.
type tetrahedron struct {
	idx    [4]int
	volume float64
}

func signedVolume(a, b, c, d common.Point3D) float64 {
	ax, ay, az := float64(b.X-a.X), float64(b.Y-a.Y), float64(b.Z-a.Z)
	bx, by, bz := float64(c.X-a.X), float64(c.Y-a.Y), float64(c.Z-a.Z)
	cx, cy, cz := float64(d.X-a.X), float64(d.Y-a.Y), float64(d.Z-a.Z)
	det := ax*(by*cz-bz*cy) - ay*(bx*cz-bz*cx) + az*(bx*cy-by*cx)
	return det / 6
}

// barycentricWeights computes the four sub-volumes formed by replacing
// each vertex of (v0,v1,v2,v3) with q, returning them in vertex order
// alongside the full element volume.
func barycentricWeights(v [4]common.Point3D, q common.Point3D) (subVolumes [4]float64, volume float64) {
	volume = signedVolume(v[0], v[1], v[2], v[3])
	subVolumes[0] = signedVolume(q, v[1], v[2], v[3])
	subVolumes[1] = signedVolume(v[0], q, v[2], v[3])
	subVolumes[2] = signedVolume(v[0], v[1], q, v[3])
	subVolumes[3] = signedVolume(v[0], v[1], v[2], q)
	return
}

func sameSign(a, b float64) bool {
	if a == 0 || b == 0 {
		return false
	}
	return (a > 0) == (b > 0)
}

// findElement searches candidate tetrahedra formed from the vertices
// nearest q, accepting the first whose volume exceeds volumeCut in
// magnitude and which contains q (all four sub-volumes share the sign of
// the full volume). It returns the accepted vertex indices and
// barycentric weights.
func findElement(mesh *Mesh, octree *space.Octree[int], q common.Point3D, cfg Config) (idx [4]int, weights [4]float64, ok bool, overCrowded bool) {
	maxNeighbors := cfg.MaxCandidateNeighbors
	if maxNeighbors <= 0 {
		maxNeighbors = 20
	}
	radiusStep := cfg.RadiusStep
	if radiusStep <= 1 {
		radiusStep = 2
	}

	tryRadius := func(r float64, volumeCut float64) (idx [4]int, w [4]float64, found bool, crowded bool) {
		items := octree.Query(q, r)
		if len(items) > maxNeighbors {
			crowded = true
			items = items[:maxNeighbors]
		}
		if len(items) < 4 {
			return idx, w, false, crowded
		}
		combo := make([]int, 4)
		var rec func(start, depth int) bool
		rec = func(start, depth int) bool {
			if depth == 4 {
				var verts [4]common.Point3D
				var vidx [4]int
				for i, ci := range combo {
					vidx[i] = items[ci].Value
					verts[i] = mesh.Vertices[vidx[i]]
				}
				subVols, vol := barycentricWeights(verts, q)
				if absf(vol) <= volumeCut {
					return false
				}
				inside := true
				for _, sv := range subVols {
					if !sameSign(sv, vol) && absf(sv) > 1e-12*absf(vol) {
						inside = false
						break
					}
				}
				if !inside {
					return false
				}
				idx = vidx
				for i := range w {
					w[i] = subVols[i] / vol
				}
				found = true
				return true
			}
			for i := start; i < len(items); i++ {
				combo[depth] = i
				if rec(i+1, depth+1) {
					return true
				}
			}
			return false
		}
		rec(0, 0)
		return idx, w, found, crowded
	}

	cut := cfg.VolumeCut
	for r := cfg.RadiusInitial; r <= cfg.RadiusMax; r *= radiusStep {
		i, w, found, crowded := tryRadius(r, cut)
		if found {
			return i, w, true, crowded
		}
		overCrowded = overCrowded || crowded
	}
	if cfg.AllowCoplanarInterpolation {
		i, w, found, crowded := tryRadius(cfg.RadiusMax, 0)
		overCrowded = overCrowded || crowded
		if found {
			return i, w, true, overCrowded
		}
	}
	return idx, weights, false, overCrowded
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// interpolateAt evaluates the mesh field at q, returning N component
// values.
func interpolateAt(mesh *Mesh, octree *space.Octree[int], q common.Point3D, cfg Config) ([]float64, error) {
	idx, w, ok, _ := findElement(mesh, octree, q, cfg)
	if !ok {
		if cfg.AllowFailure {
			log.Printf("meshconv: warning: no valid enclosing element found near (%v,%v,%v); using zero", q.X, q.Y, q.Z)
			return make([]float64, mesh.N), nil
		}
		return nil, fmt.Errorf("meshconv: no valid enclosing element found near (%v,%v,%v): %w", q.X, q.Y, q.Z, common.ErrInterpolation)
	}
	out := make([]float64, mesh.N)
	for i := 0; i < 4; i++ {
		v := mesh.Values[idx[i]]
		for c := 0; c < mesh.N; c++ {
			out[c] += w[i] * v[c]
		}
	}
	return out, nil
}

// Convert resamples mesh onto the regular grid described by cfg,
// computing one x-slice per worker and splicing results in x-order.
func Convert(mesh *Mesh, cfg Config) (*field.FieldGrid, error) {
	if len(mesh.Vertices) < 4 {
		return nil, fmt.Errorf("meshconv: mesh has fewer than 4 vertices: %w", common.ErrField)
	}
	items := make([]space.Item[int], len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		items[i] = space.Item[int]{Pos: v, Value: i}
	}
	octree, err := space.NewOctree(items)
	if err != nil {
		return nil, fmt.Errorf("meshconv: building octree: %w", err)
	}

	n := mesh.N
	values := make([]float64, cfg.NX*cfg.NY*cfg.NZ*n)

	numWorkers := cfg.WorkerCount
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > cfg.NX {
		numWorkers = cfg.NX
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	errs := make([]error, cfg.NX)
	var wg sync.WaitGroup
	slices := make(chan int)
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ix := range slices {
				x := gridCoord(float64(cfg.Min.X), float64(cfg.Max.X), cfg.NX, ix)
				for iy := 0; iy < cfg.NY; iy++ {
					y := gridCoord(float64(cfg.Min.Y), float64(cfg.Max.Y), cfg.NY, iy)
					for iz := 0; iz < cfg.NZ; iz++ {
						z := gridCoord(float64(cfg.Min.Z), float64(cfg.Max.Z), cfg.NZ, iz)
						q := common.Point3D{X: common.Coordinate(x), Y: common.Coordinate(y), Z: common.Coordinate(z)}
						vals, err := interpolateAt(mesh, octree, q, cfg)
						if err != nil {
							errs[ix] = err
							continue
						}
						base := ((ix*cfg.NY+iy)*cfg.NZ + iz) * n
						copy(values[base:base+n], vals)
					}
				}
			}
		}()
	}
	for ix := 0; ix < cfg.NX; ix++ {
		slices <- ix
	}
	close(slices)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return field.NewFieldGrid(cfg.NX, cfg.NY, cfg.NZ, n, cfg.Min, cfg.Max, values)
}

func gridCoord(min, max float64, n, i int) float64 {
	if n == 1 {
		return min
	}
	return min + (max-min)*float64(i)/float64(n-1)
}
