package navmesh

import (
	"fmt"
	"slices"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

type connection struct {
	points   [2]common.Vec3
	settings ConnectionSettings
}

// AddOffMeshConnection registers a link from points[0] to points[1],
// given in the owner's space. The link radius defaults to the agent
// radius and it is tagged as a jump.
func (n *NavMesh) AddOffMeshConnection(points []common.Vec3, bidir bool) (int, error) {
	if n.state != StateConfigured {
		return 0, fmt.Errorf("navmesh: add off-mesh connection: %w: mesh is %s", ErrInvalidState, n.state)
	}
	if len(points) != 2 {
		return 0, fmt.Errorf("navmesh: add off-mesh connection: %w: %d points", ErrInvalidGeometry, len(points))
	}
	c := &connection{
		points: [2]common.Vec3{points[0], points[1]},
		settings: ConnectionSettings{
			Radius: n.settings.AgentRadius,
			Bidir:  bidir,
			Area:   engine.AreaJump,
			Flags:  engine.FlagJump,
			Ref:    n.uniqueRef(),
		},
	}
	n.conns = append(n.conns, c)
	return c.settings.Ref, nil
}

// RemoveOffMeshConnection removes the first connection with an endpoint
// within its radius of p and returns its reference.
func (n *NavMesh) RemoveOffMeshConnection(p common.Vec3) (int, error) {
	if n.state != StateConfigured {
		return 0, fmt.Errorf("navmesh: remove off-mesh connection: %w: mesh is %s", ErrInvalidState, n.state)
	}
	scratch, _ := engine.NewInputGeom(nil, nil)
	at := toEngine(p)
	for i, c := range n.conns {
		s := c.settings
		if scratch.AddOffMeshConnection(toEngine(c.points[0]), toEngine(c.points[1]), s.Radius, s.Bidir, s.Area, s.Flags) < 0 {
			continue
		}
		if scratch.DeleteOffMeshConnectionAt(at) >= 0 {
			n.conns = slices.Delete(n.conns, i, i+1)
			return s.Ref, nil
		}
		scratch.DeleteOffMeshConnection(0)
	}
	return 0, fmt.Errorf("navmesh: remove off-mesh connection at %s: %w", p, ErrNotFound)
}

func (n *NavMesh) OffMeshConnectionCount() int { return len(n.conns) }

// OffMeshConnectionByRef returns the connection's two points, or nil.
func (n *NavMesh) OffMeshConnectionByRef(ref int) []common.Vec3 {
	for _, c := range n.conns {
		if c.settings.Ref == ref {
			return []common.Vec3{c.points[0], c.points[1]}
		}
	}
	return nil
}

// connectionAt returns the registry index of the built connection whose
// nearest endpoint lies within the connection's radius of p.
func (n *NavMesh) connectionAt(p common.Vec3) int {
	i, d := n.geom.NearestOffMeshConnection(n.ownerToEngine(p))
	if i < 0 || d >= n.conns[i].settings.Radius {
		return -1
	}
	return i
}

func (n *NavMesh) OffMeshConnectionSettings(p common.Vec3) (ConnectionSettings, error) {
	if n.state != StateBuilt {
		return ConnectionSettings{}, fmt.Errorf("navmesh: off-mesh connection settings: %w", ErrNotBuilt)
	}
	i := n.connectionAt(p)
	if i < 0 {
		return ConnectionSettings{}, fmt.Errorf("navmesh: off-mesh connection at %s: %w", p, ErrNotFound)
	}
	return n.conns[i].settings, nil
}

func (n *NavMesh) OffMeshConnectionSettingsByRef(ref int) (ConnectionSettings, error) {
	if n.state != StateBuilt {
		return ConnectionSettings{}, fmt.Errorf("navmesh: off-mesh connection settings: %w", ErrNotBuilt)
	}
	for _, c := range n.conns {
		if c.settings.Ref == ref {
			return c.settings, nil
		}
	}
	return ConnectionSettings{}, fmt.Errorf("navmesh: off-mesh connection %d: %w", ref, ErrNotFound)
}

// SetOffMeshConnectionSettings applies area and flags to the polygon of
// the connection found at p and stores s. The reference in s is ignored.
func (n *NavMesh) SetOffMeshConnectionSettings(p common.Vec3, s ConnectionSettings) (int, error) {
	if n.state != StateBuilt {
		return 0, fmt.Errorf("navmesh: set off-mesh connection settings: %w", ErrNotBuilt)
	}
	i := n.connectionAt(p)
	if i < 0 {
		return 0, fmt.Errorf("navmesh: off-mesh connection at %s: %w", p, ErrNotFound)
	}

	q := n.mesh.Query()
	poly, err := q.OffMeshConnectionPoly(i)
	if err != nil {
		return 0, fmt.Errorf("navmesh: set off-mesh connection settings: %w: %w", ErrEngineRejected, err)
	}
	c := n.conns[i]
	if err := q.SetPolyArea(poly, absInt(s.Area)); err != nil {
		return 0, fmt.Errorf("navmesh: set off-mesh connection settings: %w: %w", ErrEngineRejected, err)
	}
	if err := q.SetPolyFlags(poly, s.Flags); err != nil {
		n.restorePolys([]polyState{{ref: poly, area: absInt(c.settings.Area), flags: c.settings.Flags}})
		return 0, fmt.Errorf("navmesh: set off-mesh connection settings: %w: %w", ErrEngineRejected, err)
	}

	ref := c.settings.Ref
	c.settings = s
	c.settings.Ref = ref
	if c.settings.Radius < 0 {
		c.settings.Radius = -c.settings.Radius
	}
	return ref, nil
}
