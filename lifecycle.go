package navmesh

import (
	"fmt"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
	"github.com/milk9111/navmesh/scene"
)

// Configure stores the build settings of an unconfigured mesh.
func (n *NavMesh) Configure(s Settings) error {
	switch n.state {
	case StateBuilt:
		return fmt.Errorf("navmesh: configure: %w", ErrAlreadyBuilt)
	case StateConfigured:
		return fmt.Errorf("navmesh: configure: %w: already configured", ErrInvalidState)
	}
	n.settings = s
	n.state = StateConfigured
	return nil
}

// Build loads owner's geometry, replays the registered features, builds
// the mesh and binds the registered agents and obstacles. Entries the
// engine refuses are dropped. A failed build leaves the mesh torn down.
func (n *NavMesh) Build(owner *scene.Node) error {
	switch n.state {
	case StateBuilt:
		return fmt.Errorf("navmesh: build: %w", ErrAlreadyBuilt)
	case StateUnconfigured:
		return fmt.Errorf("navmesh: build: %w: not configured", ErrInvalidState)
	}
	if owner == nil {
		return fmt.Errorf("navmesh: build: %w: no owner", ErrInvalidState)
	}

	n.owner = owner
	n.name = owner.Name() + "_NavMesh"
	owner.ReparentTo(n.reference)
	n.log.Info("building navmesh", "mesh", n.name, "variant", n.variant,
		"volumes", len(n.volumes), "connections", len(n.conns))

	if err := n.build(); err != nil {
		n.log.Error("navmesh build failed", "mesh", n.name, "err", err)
		n.teardown()
		return fmt.Errorf("navmesh: build %s: %w: %w", owner.Name(), ErrBuildFailed, err)
	}
	n.state = StateBuilt
	n.replayAgents()
	n.replayObstacles()
	n.log.Info("navmesh built", "mesh", n.name, "volumes", len(n.volumes), "connections", len(n.conns),
		"agents", len(n.agents), "obstacles", len(n.obstacles))
	return nil
}

func (n *NavMesh) build() error {
	if n.geom == nil {
		verts, tris := n.owner.Triangles(n.reference)
		geom, err := engine.NewInputGeom(convertAll(verts, toEngine), tris)
		if err != nil {
			return err
		}
		n.geom = geom
	}

	mesh, err := n.factory(n.variant)
	if err != nil {
		return err
	}
	n.mesh = mesh
	if err := mesh.Load(n.geom); err != nil {
		return err
	}

	ts := n.tileSettings
	if n.variant == engine.VariantObstacle {
		bmin, bmax := n.geom.Bounds()
		n.budget = engine.ComputeTileBudget(bmin, bmax, n.settings.CellSize, ts.TileSize)
		ts.MaxTiles = n.budget.MaxTiles
		ts.MaxPolysPerTile = n.budget.MaxPolysPerTile
	}
	mesh.SetConfig(engineConfig(n.settings, ts))
	mesh.SetAreaFlags(n.areaFlags)

	if err := n.replayVolumes(); err != nil {
		return err
	}
	if err := n.replayConnections(); err != nil {
		return err
	}
	if err := mesh.Build(); err != nil {
		return err
	}

	crowd, err := mesh.NewCrowd(n.maxAgents, n.settings.AgentRadius)
	if err != nil {
		return err
	}
	n.crowd = crowd
	filter := crowd.Filter()
	for area, cost := range n.areaCosts {
		filter.SetAreaCost(area, cost)
	}
	filter.IncludeFlags = n.includeFlags
	filter.ExcludeFlags = n.excludeFlags
	return nil
}

// replayVolumes inserts every registered volume into the geometry. The
// registry keeps the engine's order: rejected volumes are dropped and
// accepted ones take the engine's hull points.
func (n *NavMesh) replayVolumes() error {
	kept := n.volumes[:0]
	for _, v := range n.volumes {
		area := v.settings.Area
		if area < 0 {
			area = engine.AreaGround
		}
		idx := n.geom.AddConvexVolume(convertAll(v.points, n.ownerToEngine), area)
		if idx < 0 {
			n.log.Warn("convex volume rejected", "mesh", n.name, "ref", v.settings.Ref)
			continue
		}
		if idx != len(kept) {
			return fmt.Errorf("convex volume %d landed at index %d, want %d", v.settings.Ref, idx, len(kept))
		}
		cv, _ := n.geom.ConvexVolume(idx)
		v.points = convertAll(cv.Verts, n.engineToOwner)
		kept = append(kept, v)
	}
	clear(n.volumes[len(kept):])
	n.volumes = kept
	return nil
}

func (n *NavMesh) replayConnections() error {
	kept := n.conns[:0]
	for _, c := range n.conns {
		s := c.settings
		idx := n.geom.AddOffMeshConnection(n.ownerToEngine(c.points[0]), n.ownerToEngine(c.points[1]),
			s.Radius, s.Bidir, absInt(s.Area), s.Flags)
		if idx < 0 {
			n.log.Warn("off-mesh connection rejected", "mesh", n.name, "ref", s.Ref)
			continue
		}
		if idx != len(kept) {
			return fmt.Errorf("off-mesh connection %d landed at index %d, want %d", s.Ref, idx, len(kept))
		}
		oc, _ := n.geom.OffMeshConnection(idx)
		c.points = [2]common.Vec3{n.engineToOwner(oc.Start), n.engineToOwner(oc.End)}
		kept = append(kept, c)
	}
	clear(n.conns[len(kept):])
	n.conns = kept
	return nil
}

func (n *NavMesh) replayAgents() {
	kept := n.agents[:0]
	for _, a := range n.agents {
		if err := n.bindAgent(a); err != nil {
			n.log.Warn("agent dropped", "mesh", n.name, "agent", a.Name(), "err", err)
			a.mesh = nil
			continue
		}
		kept = append(kept, a)
	}
	clear(n.agents[len(kept):])
	n.agents = kept
}

func (n *NavMesh) replayObstacles() {
	if n.variant != engine.VariantObstacle {
		if len(n.obstacles) > 0 {
			n.log.Warn("obstacles dropped", "mesh", n.name, "variant", n.variant, "count", len(n.obstacles))
		}
		n.obstacles = nil
		return
	}
	kept := n.obstacles[:0]
	for _, o := range n.obstacles {
		if err := n.commitObstacle(o); err != nil {
			n.log.Warn("obstacle dropped", "mesh", n.name, "obstacle", o.node.Name(), "err", err)
			continue
		}
		kept = append(kept, o)
	}
	clear(n.obstacles[len(kept):])
	n.obstacles = kept
}

// Teardown takes agents and obstacles out of the engine, discards the
// engine and returns the mesh to unconfigured. Settings and registries
// are kept; agents stay registered but unbound. Calling it again does
// nothing.
func (n *NavMesh) Teardown() {
	if n.state != StateBuilt {
		return
	}
	n.teardown()
	n.log.Info("navmesh torn down", "mesh", n.name)
}

func (n *NavMesh) teardown() {
	if n.mesh != nil {
		if n.mesh.TileCache() != nil {
			for _, o := range n.obstacles {
				if err := n.releaseObstacle(o); err != nil {
					n.log.Warn("obstacle not released", "mesh", n.name, "obstacle", o.node.Name(), "err", err)
					o.ref = 0
				}
			}
		}
		for _, a := range n.agents {
			n.unbindAgent(a)
		}
		n.mesh.Close()
	}
	n.mesh = nil
	n.crowd = nil
	n.geom = nil
	n.owner = nil
	n.name = n.baseName
	n.state = StateUnconfigured
}

// Update advances the crowd by dt seconds and moves every bound agent's
// node to its new pose. It does nothing unless the mesh is built.
func (n *NavMesh) Update(dt float32) {
	if n.state != StateBuilt {
		return
	}
	n.crowd.Update(dt)
	for _, a := range n.agents {
		if a.idx >= 0 {
			n.readBack(a)
		}
	}
}
