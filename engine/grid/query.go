package grid

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

// Query answers spatial requests against a built Mesh.
type Query struct {
	mesh *Mesh
}

var _ engine.Query = (*Query)(nil)

func (q *Query) node(ref engine.PolyRef) (int, error) {
	node := int(ref) - 1
	if ref == 0 || node >= q.mesh.nodeCount() {
		return -1, fmt.Errorf("%w: poly ref %d", engine.ErrInvalidParam, ref)
	}
	if !q.mesh.isLink(node) && !q.mesh.passable(node) {
		return -1, fmt.Errorf("%w: poly ref %d is not on the mesh", engine.ErrInvalidParam, ref)
	}
	return node, nil
}

func (q *Query) FindNearestPoly(center, extents common.Vec3, filter *engine.Filter) (engine.PolyRef, common.Vec3, error) {
	if extents.X < 0 || extents.Y < 0 || extents.Z < 0 {
		return 0, center, fmt.Errorf("%w: negative extents", engine.ErrInvalidParam)
	}
	m := q.mesh
	best, bestDist := -1, float32(0)
	var bestPt common.Vec3
	m.eachCellIn(center, extents, func(idx int) {
		if !m.passable(idx) || !filter.Pass(m.cells[idx].flags) {
			return
		}
		if math32.Abs(m.cells[idx].height-center.Y) > extents.Y {
			return
		}
		pt := m.closestOnCell(idx, center)
		d := pt.DistSqr(center)
		if best < 0 || d < bestDist {
			best, bestDist, bestPt = idx, d, pt
		}
	})
	if best < 0 {
		return 0, center, nil
	}
	return engine.PolyRef(best + 1), bestPt, nil
}

// FindPolysAroundShape collects the polygons connected to start whose
// centers lie inside shape. start is always included.
func (q *Query) FindPolysAroundShape(start engine.PolyRef, shape []common.Vec3, filter *engine.Filter) ([]engine.PolyRef, error) {
	node, err := q.node(start)
	if err != nil {
		return nil, err
	}
	if len(shape) < 3 {
		return nil, fmt.Errorf("%w: shape needs 3 points", engine.ErrInvalidParam)
	}
	m := q.mesh
	seen := map[int]bool{node: true}
	queue := []int{node}
	var out []engine.PolyRef
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, engine.PolyRef(cur+1))
		if m.isLink(cur) {
			continue
		}
		for _, nb := range m.neighbors(cur, -1, filter) {
			if seen[nb] || m.isLink(nb) {
				continue
			}
			seen[nb] = true
			if common.PointInPolyXZ(shape, m.cellPos(nb)) {
				queue = append(queue, nb)
			}
		}
	}
	return out, nil
}

func (q *Query) IsValidPolyRef(ref engine.PolyRef, filter *engine.Filter) bool {
	node := int(ref) - 1
	if ref == 0 || node >= q.mesh.nodeCount() {
		return false
	}
	if filter == nil {
		_, err := q.node(ref)
		return err == nil
	}
	return q.mesh.nodeValid(node, filter)
}

func (q *Query) PolyArea(ref engine.PolyRef) (int, error) {
	node, err := q.node(ref)
	if err != nil {
		return 0, err
	}
	return q.mesh.nodeArea(node), nil
}

func (q *Query) SetPolyArea(ref engine.PolyRef, area int) error {
	node, err := q.node(ref)
	if err != nil {
		return err
	}
	if area < 0 || area >= engine.MaxAreas {
		return fmt.Errorf("%w: area %d", engine.ErrInvalidParam, area)
	}
	m := q.mesh
	if m.isLink(node) {
		m.links[node-len(m.cells)].area = area
		return nil
	}
	m.cells[node].area = area
	return nil
}

func (q *Query) PolyFlags(ref engine.PolyRef) (uint16, error) {
	node, err := q.node(ref)
	if err != nil {
		return 0, err
	}
	m := q.mesh
	if m.isLink(node) {
		return m.links[node-len(m.cells)].flags, nil
	}
	return m.cells[node].flags, nil
}

func (q *Query) SetPolyFlags(ref engine.PolyRef, flags uint16) error {
	node, err := q.node(ref)
	if err != nil {
		return err
	}
	m := q.mesh
	if m.isLink(node) {
		m.links[node-len(m.cells)].flags = flags
	} else {
		m.cells[node].flags = flags
	}
	m.version++
	return nil
}

func (q *Query) ClosestPointOnPoly(ref engine.PolyRef, pos common.Vec3) (common.Vec3, error) {
	node, err := q.node(ref)
	if err != nil {
		return pos, err
	}
	m := q.mesh
	if m.isLink(node) {
		c := m.links[node-len(m.cells)].conn
		return closestOnSegment(c.Start, c.End, pos), nil
	}
	return m.closestOnCell(node, pos), nil
}

func (q *Query) OffMeshConnectionPoly(i int) (engine.PolyRef, error) {
	if i < 0 || i >= len(q.mesh.links) {
		return 0, fmt.Errorf("%w: off-mesh connection %d", engine.ErrInvalidParam, i)
	}
	return engine.PolyRef(len(q.mesh.cells) + i + 1), nil
}

func (q *Query) FindPath(startRef, endRef engine.PolyRef, startPos, endPos common.Vec3, filter *engine.Filter) ([]engine.PolyRef, error) {
	if !q.IsValidPolyRef(startRef, filter) || !q.IsValidPolyRef(endRef, filter) {
		return nil, fmt.Errorf("%w: path ends %d, %d", engine.ErrInvalidParam, startRef, endRef)
	}
	nodes := q.mesh.findPath(int(startRef)-1, int(endRef)-1, endPos, filter)
	path := make([]engine.PolyRef, len(nodes))
	for i, n := range nodes {
		path[i] = engine.PolyRef(n + 1)
	}
	return path, nil
}

// FindStraightPath turns a polygon corridor into corner points. Corners
// are emitted where the corridor changes direction, at off-mesh link
// ends, and at polygon crossings selected by opts.
func (q *Query) FindStraightPath(startPos, endPos common.Vec3, path []engine.PolyRef, opts engine.StraightOptions) ([]engine.StraightPoint, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty path", engine.ErrInvalidParam)
	}
	nodes := make([]int, len(path))
	for i, ref := range path {
		n, err := q.node(ref)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}

	m := q.mesh
	pts := []engine.StraightPoint{q.point(startPos, engine.StraightPathStart, path[0])}
	var dir [2]int
	for k := 1; k < len(nodes); k++ {
		prev, cur := nodes[k-1], nodes[k]
		switch {
		case m.isLink(cur):
			l := m.links[cur-len(m.cells)]
			entry := l.conn.Start
			if prev == l.to && l.conn.Bidir {
				entry = l.conn.End
			}
			pts = append(pts, q.point(entry, engine.StraightPathOffMesh, path[k]))
			dir = [2]int{}
			continue
		case m.isLink(prev):
			l := m.links[prev-len(m.cells)]
			exit := l.conn.End
			if cur == l.from && l.conn.Bidir {
				exit = l.conn.Start
			}
			pts = append(pts, q.point(exit, 0, path[k]))
			dir = [2]int{}
			continue
		}

		step := [2]int{cur%m.cols - prev%m.cols, cur/m.cols - prev/m.cols}
		crossing := opts == engine.StraightAllCrossings ||
			(opts == engine.StraightAreaCrossings && m.cells[prev].area != m.cells[cur].area)
		if dir != ([2]int{}) && step != dir {
			pts = append(pts, q.point(m.cellPos(prev), 0, path[k-1]))
		}
		if crossing {
			edge := m.cellPos(prev).Lerp(m.cellPos(cur), 0.5)
			pts = append(pts, q.point(edge, 0, path[k]))
		}
		dir = step
	}
	pts = append(pts, q.point(endPos, engine.StraightPathEnd, 0))
	return pts, nil
}

func (q *Query) point(pos common.Vec3, flags uint8, ref engine.PolyRef) engine.StraightPoint {
	p := engine.StraightPoint{Pos: pos, Flags: flags, Ref: ref}
	if ref != 0 {
		p.Area, _ = q.PolyArea(ref)
		p.PolyFlags, _ = q.PolyFlags(ref)
	}
	return p
}

// Raycast walks from startPos toward endPos along the ground plane and
// stops at the first wall or at the first polygon the filter rejects.
func (q *Query) Raycast(startRef engine.PolyRef, startPos, endPos common.Vec3, filter *engine.Filter) (engine.RaycastHit, error) {
	hit := engine.RaycastHit{T: math.MaxFloat32}
	if !q.IsValidPolyRef(startRef, filter) {
		return hit, fmt.Errorf("%w: start ref %d", engine.ErrInvalidParam, startRef)
	}
	m := q.mesh
	length := startPos.Dist2D(endPos)
	if length == 0 {
		hit.Path = []engine.PolyRef{startRef}
		return hit, nil
	}

	t := float32(1)
	dir := common.V3(endPos.X-startPos.X, 0, endPos.Z-startPos.Z).Scale(1 / length)
	info := m.space.SegmentQueryFirst(toCP(startPos), toCP(endPos), 0, wallQuery)
	if info.Shape != nil {
		t = float32(info.Alpha)
		hit.Normal = common.V3(float32(info.Normal.X), 0, float32(info.Normal.Y))
	}

	steps := int(length/(m.cfg.CellSize*0.5)) + 1
	last := engine.PolyRef(0)
	for s := 0; s <= steps; s++ {
		u := float32(s) / float32(steps)
		if u > t {
			break
		}
		idx := m.cellAt(startPos.Lerp(endPos, u))
		if idx < 0 || !m.passable(idx) || !filter.Pass(m.cells[idx].flags) {
			if s == 0 {
				u = 0
			}
			t = u
			hit.Normal = dir.Scale(-1)
			break
		}
		if ref := engine.PolyRef(idx + 1); ref != last {
			hit.Path = append(hit.Path, ref)
			last = ref
		}
	}
	if t < 1 {
		hit.T = t
	}
	return hit, nil
}

// FindDistanceToWall returns the distance to the nearest wall within
// maxRadius and the closest wall point. With no wall in range it returns
// maxRadius and pos.
func (q *Query) FindDistanceToWall(startRef engine.PolyRef, pos common.Vec3, maxRadius float32, filter *engine.Filter) (float32, common.Vec3, error) {
	if !q.IsValidPolyRef(startRef, filter) {
		return 0, pos, fmt.Errorf("%w: start ref %d", engine.ErrInvalidParam, startRef)
	}
	if maxRadius < 0 {
		return 0, pos, fmt.Errorf("%w: negative radius", engine.ErrInvalidParam)
	}
	info := q.mesh.space.PointQueryNearest(toCP(pos), float64(maxRadius), wallQuery)
	if info.Shape == nil {
		return maxRadius, pos, nil
	}
	return float32(info.Distance), fromCP(info.Point, pos.Y), nil
}

func closestOnSegment(a, b, p common.Vec3) common.Vec3 {
	ab := b.Sub(a)
	d := ab.Dot(ab)
	if d == 0 {
		return a
	}
	t := common.Clamp(p.Sub(a).Dot(ab)/d, 0, 1)
	return a.Add(ab.Scale(t))
}
