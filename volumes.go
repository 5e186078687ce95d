package navmesh

import (
	"fmt"
	"slices"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

// Polygon pick extents for finding the polygon under a volume centroid.
var volumePickExtents = common.V3(2, 4, 2)

type volume struct {
	points   []common.Vec3
	settings VolumeSettings
}

// AddConvexVolume registers a volume given by at least 3 points in the
// owner's space. It returns the volume's reference. The volume may be
// dropped by Build if the engine rejects it.
func (n *NavMesh) AddConvexVolume(points []common.Vec3, area int) (int, error) {
	if n.state != StateConfigured {
		return 0, fmt.Errorf("navmesh: add convex volume: %w: mesh is %s", ErrInvalidState, n.state)
	}
	if len(points) < 3 {
		return 0, fmt.Errorf("navmesh: add convex volume: %w: %d points", ErrInvalidGeometry, len(points))
	}
	v := &volume{
		points: slices.Clone(points),
		settings: VolumeSettings{
			Area:  area,
			Flags: n.areaFlags[area],
			Ref:   n.uniqueRef(),
		},
	}
	n.volumes = append(n.volumes, v)
	return v.settings.Ref, nil
}

// RemoveConvexVolume removes the first volume containing inside and
// returns its reference.
func (n *NavMesh) RemoveConvexVolume(inside common.Vec3) (int, error) {
	if n.state != StateConfigured {
		return 0, fmt.Errorf("navmesh: remove convex volume: %w: mesh is %s", ErrInvalidState, n.state)
	}
	scratch, _ := engine.NewInputGeom(nil, nil)
	p := toEngine(inside)
	for i, v := range n.volumes {
		if scratch.AddConvexVolume(convertAll(v.points, toEngine), v.settings.Area) < 0 {
			continue
		}
		if scratch.DeleteConvexVolumeAt(p) >= 0 {
			n.volumes = slices.Delete(n.volumes, i, i+1)
			return v.settings.Ref, nil
		}
		scratch.DeleteConvexVolume(0)
	}
	return 0, fmt.Errorf("navmesh: remove convex volume at %s: %w", inside, ErrNotFound)
}

func (n *NavMesh) ConvexVolumeCount() int { return len(n.volumes) }

// ConvexVolumeByRef returns a copy of the volume's points, or nil.
func (n *NavMesh) ConvexVolumeByRef(ref int) []common.Vec3 {
	for _, v := range n.volumes {
		if v.settings.Ref == ref {
			return slices.Clone(v.points)
		}
	}
	return nil
}

// volumeAt returns the registry index of the first built volume
// containing the owner-space point p.
func (n *NavMesh) volumeAt(p common.Vec3) int {
	return n.geom.ConvexVolumeAt(n.ownerToEngine(p))
}

func (n *NavMesh) ConvexVolumeSettings(inside common.Vec3) (VolumeSettings, error) {
	if n.state != StateBuilt {
		return VolumeSettings{}, fmt.Errorf("navmesh: convex volume settings: %w", ErrNotBuilt)
	}
	i := n.volumeAt(inside)
	if i < 0 {
		return VolumeSettings{}, fmt.Errorf("navmesh: convex volume at %s: %w", inside, ErrNotFound)
	}
	return n.volumes[i].settings, nil
}

func (n *NavMesh) ConvexVolumeSettingsByRef(ref int) (VolumeSettings, error) {
	if n.state != StateBuilt {
		return VolumeSettings{}, fmt.Errorf("navmesh: convex volume settings: %w", ErrNotBuilt)
	}
	for _, v := range n.volumes {
		if v.settings.Ref == ref {
			return v.settings, nil
		}
	}
	return VolumeSettings{}, fmt.Errorf("navmesh: convex volume %d: %w", ref, ErrNotFound)
}

type polyState struct {
	ref   engine.PolyRef
	area  int
	flags uint16
}

// SetConvexVolumeSettings applies area and flags to every polygon of the
// first volume containing inside. The reference in s is ignored. On an
// engine failure the polygons already changed are restored.
func (n *NavMesh) SetConvexVolumeSettings(inside common.Vec3, s VolumeSettings) (int, error) {
	if n.state != StateBuilt {
		return 0, fmt.Errorf("navmesh: set convex volume settings: %w", ErrNotBuilt)
	}
	i := n.volumeAt(inside)
	if i < 0 {
		return 0, fmt.Errorf("navmesh: convex volume at %s: %w", inside, ErrNotFound)
	}
	polys, err := n.volumePolys(i)
	if err != nil {
		return 0, fmt.Errorf("navmesh: set convex volume settings: %w: %w", ErrEngineRejected, err)
	}

	area := absInt(s.Area)
	q := n.mesh.Query()
	done := make([]polyState, 0, len(polys))
	for _, ref := range polys {
		prev := polyState{ref: ref}
		prev.area, err = q.PolyArea(ref)
		if err == nil {
			prev.flags, err = q.PolyFlags(ref)
		}
		if err == nil {
			err = q.SetPolyArea(ref, area)
		}
		if err == nil {
			done = append(done, prev)
			err = q.SetPolyFlags(ref, s.Flags)
		}
		if err != nil {
			n.restorePolys(done)
			return 0, fmt.Errorf("navmesh: set convex volume settings: %w: %w", ErrEngineRejected, err)
		}
	}

	v := n.volumes[i]
	v.settings.Area = s.Area
	v.settings.Flags = s.Flags
	return v.settings.Ref, nil
}

func (n *NavMesh) restorePolys(done []polyState) {
	q := n.mesh.Query()
	for _, p := range done {
		_ = q.SetPolyArea(p.ref, p.area)
		_ = q.SetPolyFlags(p.ref, p.flags)
	}
}

// volumePolys finds the polygons enclosed by the i-th built volume,
// starting from the polygon nearest its centroid.
func (n *NavMesh) volumePolys(i int) ([]engine.PolyRef, error) {
	cv, ok := n.geom.ConvexVolume(i)
	if !ok {
		return nil, fmt.Errorf("volume %d is not in the engine", i)
	}
	shape := slices.Clone(cv.Verts)
	slices.Reverse(shape)

	filter := engine.NewFilter()
	filter.IncludeFlags = engine.FlagAll
	filter.ExcludeFlags = 0

	q := n.mesh.Query()
	start, _, err := q.FindNearestPoly(common.Centroid(shape), volumePickExtents, filter)
	if err != nil {
		return nil, err
	}
	if start == 0 {
		return nil, fmt.Errorf("no polygon under volume %d", i)
	}
	return q.FindPolysAroundShape(start, shape, filter)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
