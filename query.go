package navmesh

import (
	"fmt"
	"math"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

const (
	followStep      = 0.5
	maxFollowPoints = 2048
	wallSearchRange = 100
)

var queryExtents = common.V3(2, 4, 2)

// PathPoint is one corner of a straight path. Flags are the engine's
// vertex flags (start, end, off-mesh); Area and PolyFlags describe the
// polygon the path enters at the point.
type PathPoint struct {
	Pos       common.Vec3
	Flags     uint8
	Area      int
	PolyFlags uint16
}

func (n *NavMesh) query(op string) (engine.Query, *engine.Filter, error) {
	if n.state != StateBuilt {
		return nil, nil, fmt.Errorf("navmesh: %s: %w", op, ErrNotBuilt)
	}
	return n.mesh.Query(), n.crowd.Filter(), nil
}

// nearest snaps the reference-frame point p onto the mesh.
func nearest(q engine.Query, f *engine.Filter, p common.Vec3) (engine.PolyRef, common.Vec3, error) {
	ref, pos, err := q.FindNearestPoly(toEngine(p), queryExtents, f)
	if err != nil {
		return 0, pos, fmt.Errorf("%w: %w", ErrEngineRejected, err)
	}
	if ref == 0 {
		return 0, pos, fmt.Errorf("%w: no polygon near %s", ErrNotFound, p)
	}
	return ref, pos, nil
}

// corridor returns the polygon path from start to end together with the
// engine-space end points. A partial path ends at the point of its last
// polygon closest to end.
func corridor(q engine.Query, f *engine.Filter, start, end common.Vec3) ([]engine.PolyRef, common.Vec3, common.Vec3, error) {
	startRef, startPos, err := nearest(q, f, start)
	if err != nil {
		return nil, startPos, startPos, err
	}
	endRef, endPos, err := nearest(q, f, end)
	if err != nil {
		return nil, startPos, endPos, err
	}
	path, err := q.FindPath(startRef, endRef, startPos, endPos, f)
	if err != nil {
		return nil, startPos, endPos, fmt.Errorf("%w: %w", ErrEngineRejected, err)
	}
	if len(path) == 0 {
		return nil, startPos, endPos, fmt.Errorf("%w: no path from %s to %s", ErrNotFound, start, end)
	}
	if last := path[len(path)-1]; last != endRef {
		endPos, err = q.ClosestPointOnPoly(last, endPos)
		if err != nil {
			return nil, startPos, endPos, fmt.Errorf("%w: %w", ErrEngineRejected, err)
		}
	}
	return path, startPos, endPos, nil
}

// PathFindStraight returns the corner points of the path from start to
// end, both in the reference frame.
func (n *NavMesh) PathFindStraight(start, end common.Vec3, opts engine.StraightOptions) ([]PathPoint, error) {
	q, f, err := n.query("straight path")
	if err != nil {
		return nil, err
	}
	path, startPos, endPos, err := corridor(q, f, start, end)
	if err != nil {
		return nil, fmt.Errorf("navmesh: straight path: %w", err)
	}
	pts, err := q.FindStraightPath(startPos, endPos, path, opts)
	if err != nil {
		return nil, fmt.Errorf("navmesh: straight path: %w: %w", ErrEngineRejected, err)
	}
	out := make([]PathPoint, len(pts))
	for i, p := range pts {
		out[i] = PathPoint{Pos: fromEngine(p.Pos), Flags: p.Flags, Area: p.Area, PolyFlags: p.PolyFlags}
	}
	return out, nil
}

// PathFindFollow walks the straight path from start to end in fixed
// steps and returns the visited points, each dropped onto the mesh
// surface. Jumps across off-mesh connections are not subdivided.
func (n *NavMesh) PathFindFollow(start, end common.Vec3) ([]common.Vec3, error) {
	q, f, err := n.query("follow path")
	if err != nil {
		return nil, err
	}
	path, startPos, endPos, err := corridor(q, f, start, end)
	if err != nil {
		return nil, fmt.Errorf("navmesh: follow path: %w", err)
	}
	pts, err := q.FindStraightPath(startPos, endPos, path, engine.StraightNone)
	if err != nil {
		return nil, fmt.Errorf("navmesh: follow path: %w: %w", ErrEngineRejected, err)
	}

	out := []common.Vec3{fromEngine(pts[0].Pos)}
	cur := pts[0].Pos
	for i := 1; i < len(pts) && len(out) < maxFollowPoints; i++ {
		next := pts[i].Pos
		if pts[i-1].Flags&engine.StraightPathOffMesh == 0 {
			for len(out) < maxFollowPoints {
				d := cur.Dist2D(next)
				if d <= followStep {
					break
				}
				cur = cur.Lerp(next, followStep/d)
				if ref, snapped, err := q.FindNearestPoly(cur, queryExtents, f); err == nil && ref != 0 {
					cur.Y = snapped.Y
				}
				out = append(out, fromEngine(cur))
			}
		}
		if len(out) < maxFollowPoints {
			cur = next
			out = append(out, fromEngine(cur))
		}
	}
	return out, nil
}

// Raycast casts a ray along the mesh surface from start toward end and
// returns where it stops. An unobstructed ray returns end unchanged.
func (n *NavMesh) Raycast(start, end common.Vec3) (common.Vec3, error) {
	q, f, err := n.query("raycast")
	if err != nil {
		return end, err
	}
	ref, startPos, err := nearest(q, f, start)
	if err != nil {
		return end, fmt.Errorf("navmesh: raycast: %w", err)
	}
	hit, err := q.Raycast(ref, startPos, toEngine(end), f)
	if err != nil {
		return end, fmt.Errorf("navmesh: raycast: %w: %w", ErrEngineRejected, err)
	}
	if hit.T == math.MaxFloat32 {
		return end, nil
	}
	from := fromEngine(startPos)
	return from.Add(end.Sub(from).Scale(hit.T)), nil
}

// DistanceToWall is the distance from p to the nearest mesh border,
// capped at 100.
func (n *NavMesh) DistanceToWall(p common.Vec3) (float32, error) {
	q, f, err := n.query("distance to wall")
	if err != nil {
		return 0, err
	}
	ref, pos, err := nearest(q, f, p)
	if err != nil {
		return 0, fmt.Errorf("navmesh: distance to wall: %w", err)
	}
	d, _, err := q.FindDistanceToWall(ref, pos, wallSearchRange, f)
	if err != nil {
		return 0, fmt.Errorf("navmesh: distance to wall: %w: %w", ErrEngineRejected, err)
	}
	return d, nil
}

// TilePos returns the tile holding the reference-frame point p. Meshes
// without tiles report tile 0, 0.
func (n *NavMesh) TilePos(p common.Vec3) (tx, ty int, err error) {
	if n.state != StateBuilt {
		return 0, 0, fmt.Errorf("navmesh: tile pos: %w", ErrNotBuilt)
	}
	if t := n.mesh.Tiler(); t != nil {
		tx, ty = t.TilePos(toEngine(p))
	} else if c := n.mesh.TileCache(); c != nil {
		tx, ty = c.TilePos(toEngine(p))
	}
	return tx, ty, nil
}

// tiler returns the tiler of a built tile mesh, or nil for the other
// variants.
func (n *NavMesh) tiler(op string) (engine.Tiler, error) {
	if n.state != StateBuilt {
		return nil, fmt.Errorf("navmesh: %s: %w", op, ErrNotBuilt)
	}
	return n.mesh.Tiler(), nil
}

func (n *NavMesh) BuildTile(p common.Vec3) error {
	t, err := n.tiler("build tile")
	if err != nil || t == nil {
		return err
	}
	if err := t.BuildTile(toEngine(p)); err != nil {
		return fmt.Errorf("navmesh: build tile at %s: %w: %w", p, ErrEngineRejected, err)
	}
	n.log.Debug("tile built", "mesh", n.name, "at", p)
	return nil
}

func (n *NavMesh) RemoveTile(p common.Vec3) error {
	t, err := n.tiler("remove tile")
	if err != nil || t == nil {
		return err
	}
	if err := t.RemoveTile(toEngine(p)); err != nil {
		return fmt.Errorf("navmesh: remove tile at %s: %w: %w", p, ErrEngineRejected, err)
	}
	n.log.Debug("tile removed", "mesh", n.name, "at", p)
	return nil
}

func (n *NavMesh) BuildAllTiles() error {
	t, err := n.tiler("build all tiles")
	if err != nil || t == nil {
		return err
	}
	if err := t.BuildAllTiles(); err != nil {
		return fmt.Errorf("navmesh: build all tiles: %w: %w", ErrEngineRejected, err)
	}
	n.log.Debug("all tiles built", "mesh", n.name)
	return nil
}

func (n *NavMesh) RemoveAllTiles() error {
	t, err := n.tiler("remove all tiles")
	if err != nil || t == nil {
		return err
	}
	t.RemoveAllTiles()
	n.log.Debug("all tiles removed", "mesh", n.name)
	return nil
}
