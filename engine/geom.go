package engine

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/milk9111/navmesh/common"
)

const (
	MaxConvexVolumes      = 256
	MaxOffMeshConnections = 256
	MaxVolumePoints       = 12

	volumeBoxHeight  = 6
	volumeBoxDescent = 1
)

// ConvexVolume marks the polygons it encloses with Area. Verts are hull
// ordered on the X/Z plane.
type ConvexVolume struct {
	Verts []common.Vec3
	HMin  float32
	HMax  float32
	Area  int
}

func (v ConvexVolume) Contains(p common.Vec3) bool {
	return p.Y >= v.HMin && p.Y <= v.HMax && common.PointInPolyXZ(v.Verts, p)
}

type OffMeshConnection struct {
	Start common.Vec3
	End   common.Vec3
	Rad   float32
	Bidir bool
	Area  int
	Flags uint16
}

// InputGeom is the triangle soup an engine builds from plus the convex
// volumes and off-mesh connections laid over it. Coordinates are Y up.
// Features get an implicit running index in insertion order; deleting one
// shifts the ones after it.
type InputGeom struct {
	verts []common.Vec3
	tris  []int
	bmin  common.Vec3
	bmax  common.Vec3

	volumes []ConvexVolume
	conns   []OffMeshConnection
}

// NewInputGeom validates the triangle indices. Empty geometry is allowed
// so a scratch instance can test features alone.
func NewInputGeom(verts []common.Vec3, tris []int) (*InputGeom, error) {
	if len(tris)%3 != 0 {
		return nil, fmt.Errorf("engine: input geometry: %d indices is not a multiple of 3", len(tris))
	}
	for _, i := range tris {
		if i < 0 || i >= len(verts) {
			return nil, fmt.Errorf("engine: input geometry: index %d out of range", i)
		}
	}
	g := &InputGeom{
		verts: append([]common.Vec3(nil), verts...),
		tris:  append([]int(nil), tris...),
	}
	for i, v := range g.verts {
		if i == 0 {
			g.bmin, g.bmax = v, v
			continue
		}
		g.bmin = g.bmin.Min(v)
		g.bmax = g.bmax.Max(v)
	}
	return g, nil
}

func (g *InputGeom) Verts() []common.Vec3 { return g.verts }
func (g *InputGeom) Tris() []int          { return g.tris }
func (g *InputGeom) TriCount() int        { return len(g.tris) / 3 }

func (g *InputGeom) Bounds() (bmin, bmax common.Vec3) {
	return g.bmin, g.bmax
}

// AddConvexVolume wraps pts in their X/Z convex hull and a vertical slab
// starting just below the lowest hull point. It returns the new running
// index, or -1 when the hull is degenerate or the table is full.
func (g *InputGeom) AddConvexVolume(pts []common.Vec3, area int) int {
	if len(g.volumes) >= MaxConvexVolumes || len(pts) > MaxVolumePoints {
		return -1
	}
	hull := common.ConvexHullXZ(pts)
	if len(hull) < 3 {
		return -1
	}
	verts := make([]common.Vec3, len(hull))
	minh := pts[hull[0]].Y
	for i, idx := range hull {
		verts[i] = pts[idx]
		if verts[i].Y < minh {
			minh = verts[i].Y
		}
	}
	minh -= volumeBoxDescent
	g.volumes = append(g.volumes, ConvexVolume{
		Verts: verts,
		HMin:  minh,
		HMax:  minh + volumeBoxHeight,
		Area:  area,
	})
	return len(g.volumes) - 1
}

func (g *InputGeom) ConvexVolumeCount() int { return len(g.volumes) }

func (g *InputGeom) ConvexVolume(i int) (ConvexVolume, bool) {
	if i < 0 || i >= len(g.volumes) {
		return ConvexVolume{}, false
	}
	v := g.volumes[i]
	v.Verts = append([]common.Vec3(nil), v.Verts...)
	return v, true
}

func (g *InputGeom) DeleteConvexVolume(i int) {
	if i < 0 || i >= len(g.volumes) {
		return
	}
	g.volumes = append(g.volumes[:i], g.volumes[i+1:]...)
}

// ConvexVolumeAt returns the index of the first volume containing p.
func (g *InputGeom) ConvexVolumeAt(p common.Vec3) int {
	for i, v := range g.volumes {
		if v.Contains(p) {
			return i
		}
	}
	return -1
}

// DeleteConvexVolumeAt removes the first volume containing p and returns
// its index, or -1.
func (g *InputGeom) DeleteConvexVolumeAt(p common.Vec3) int {
	i := g.ConvexVolumeAt(p)
	g.DeleteConvexVolume(i)
	return i
}

// AddOffMeshConnection returns the new running index, or -1 when the
// table is full or the link has no length.
func (g *InputGeom) AddOffMeshConnection(start, end common.Vec3, rad float32, bidir bool, area int, flags uint16) int {
	if len(g.conns) >= MaxOffMeshConnections || start == end {
		return -1
	}
	g.conns = append(g.conns, OffMeshConnection{
		Start: start,
		End:   end,
		Rad:   rad,
		Bidir: bidir,
		Area:  area,
		Flags: flags,
	})
	return len(g.conns) - 1
}

func (g *InputGeom) OffMeshConnectionCount() int { return len(g.conns) }

func (g *InputGeom) OffMeshConnection(i int) (OffMeshConnection, bool) {
	if i < 0 || i >= len(g.conns) {
		return OffMeshConnection{}, false
	}
	return g.conns[i], true
}

func (g *InputGeom) DeleteOffMeshConnection(i int) {
	if i < 0 || i >= len(g.conns) {
		return
	}
	g.conns = append(g.conns[:i], g.conns[i+1:]...)
}

// NearestOffMeshConnection returns the connection with the endpoint
// closest to p and that distance, or -1 when there are none.
func (g *InputGeom) NearestOffMeshConnection(p common.Vec3) (int, float32) {
	best, bestDist := -1, float32(0)
	for i, c := range g.conns {
		for _, end := range [2]common.Vec3{c.Start, c.End} {
			d := end.DistSqr(p)
			if best < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, math32.Sqrt(bestDist)
}

// DeleteOffMeshConnectionAt removes the connection whose nearest endpoint
// lies within its radius of p and returns its index, or -1.
func (g *InputGeom) DeleteOffMeshConnectionAt(p common.Vec3) int {
	i, d := g.NearestOffMeshConnection(p)
	if i < 0 || d >= g.conns[i].Rad {
		return -1
	}
	g.DeleteOffMeshConnection(i)
	return i
}
