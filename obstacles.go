package navmesh

import (
	"fmt"
	"slices"

	"github.com/milk9111/navmesh/engine"
	"github.com/milk9111/navmesh/scene"
)

type obstacle struct {
	node   *scene.Node
	ref    engine.ObstacleRef
	radius float32
	height float32
}

func (n *NavMesh) obstacleIndex(node *scene.Node) int {
	return slices.IndexFunc(n.obstacles, func(o *obstacle) bool { return o.node == node })
}

// AddObstacle registers node as a cylinder obstacle sized from its
// bounds. On a built mesh the obstacle is committed before AddObstacle
// returns and its engine reference is returned; otherwise it is added at
// the next Build and the reference is zero.
func (n *NavMesh) AddObstacle(node *scene.Node) (engine.ObstacleRef, error) {
	if n.variant != engine.VariantObstacle {
		return 0, fmt.Errorf("navmesh: add obstacle: %w: %s mesh has no obstacles", ErrInvalidState, n.variant)
	}
	if node == nil {
		return 0, fmt.Errorf("navmesh: add obstacle: %w: nil node", ErrInvalidGeometry)
	}
	if n.obstacleIndex(node) >= 0 {
		return 0, fmt.Errorf("navmesh: add obstacle %s: %w", node.Name(), ErrAlreadyBound)
	}
	o := &obstacle{node: node}
	if n.state == StateBuilt {
		if err := n.commitObstacle(o); err != nil {
			return 0, fmt.Errorf("navmesh: add obstacle %s: %w: %w", node.Name(), ErrEngineRejected, err)
		}
	}
	n.obstacles = append(n.obstacles, o)
	return o.ref, nil
}

func (n *NavMesh) commitObstacle(o *obstacle) error {
	dims, radius := o.node.BoundingDimensions()
	o.node.WrtReparentTo(n.reference)
	cache := n.mesh.TileCache()
	ref, err := cache.AddObstacle(n.nodeToEngine(o.node), radius, dims.Z)
	if err != nil {
		return err
	}
	if err := drain(cache); err != nil {
		if rerr := cache.RemoveObstacle(ref); rerr == nil {
			_ = drain(cache)
		}
		return err
	}
	o.ref, o.radius, o.height = ref, radius, dims.Z
	n.log.Debug("obstacle added", "mesh", n.name, "obstacle", o.node.Name(), "ref", ref)
	return nil
}

func (n *NavMesh) releaseObstacle(o *obstacle) error {
	if o.ref == 0 {
		return nil
	}
	cache := n.mesh.TileCache()
	if err := cache.RemoveObstacle(o.ref); err != nil {
		return err
	}
	if err := drain(cache); err != nil {
		return err
	}
	n.log.Debug("obstacle removed", "mesh", n.name, "obstacle", o.node.Name(), "ref", o.ref)
	o.ref = 0
	return nil
}

// drain runs the tile cache once per tile an obstacle can touch so a
// single change is fully committed.
func drain(cache engine.TileCache) error {
	for range engine.MaxTouchedTiles {
		if _, err := cache.Update(0); err != nil {
			return err
		}
	}
	return nil
}

// RemoveObstacle unregisters node and returns the engine reference it
// had. The node is detached from its parent in every case.
func (n *NavMesh) RemoveObstacle(node *scene.Node) (engine.ObstacleRef, error) {
	if n.variant != engine.VariantObstacle {
		return 0, fmt.Errorf("navmesh: remove obstacle: %w: %s mesh has no obstacles", ErrInvalidState, n.variant)
	}
	defer node.Detach()
	i := n.obstacleIndex(node)
	if i < 0 {
		return 0, fmt.Errorf("navmesh: remove obstacle %s: %w", node.Name(), ErrNotFound)
	}
	o := n.obstacles[i]
	ref := o.ref
	if n.state == StateBuilt {
		if err := n.releaseObstacle(o); err != nil {
			return 0, fmt.Errorf("navmesh: remove obstacle %s: %w: %w", node.Name(), ErrEngineRejected, err)
		}
	}
	n.obstacles = slices.Delete(n.obstacles, i, i+1)
	return ref, nil
}

func (n *NavMesh) RemoveAllObstacles() error {
	for len(n.obstacles) > 0 {
		if _, err := n.RemoveObstacle(n.obstacles[0].node); err != nil {
			return err
		}
	}
	return nil
}

// ObstacleByRef returns the node of the committed obstacle ref, or nil.
func (n *NavMesh) ObstacleByRef(ref engine.ObstacleRef) *scene.Node {
	if ref == 0 {
		return nil
	}
	for _, o := range n.obstacles {
		if o.ref == ref {
			return o.node
		}
	}
	return nil
}

func (n *NavMesh) ObstacleCount() int { return len(n.obstacles) }

func (n *NavMesh) Obstacles() []*scene.Node {
	out := make([]*scene.Node, len(n.obstacles))
	for i, o := range n.obstacles {
		out[i] = o.node
	}
	return out
}
