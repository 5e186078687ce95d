package navmesh

import (
	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/scene"
)

// The host scene is Z up, the engine Y up.

func toEngine(p common.Vec3) common.Vec3 {
	return common.Vec3{X: p.X, Y: p.Z, Z: -p.Y}
}

func fromEngine(p common.Vec3) common.Vec3 {
	return common.Vec3{X: p.X, Y: -p.Z, Z: p.Y}
}

// ownerToEngine maps a point given in the owner's space into engine
// space through the reference frame.
func (n *NavMesh) ownerToEngine(p common.Vec3) common.Vec3 {
	return toEngine(n.reference.RelativePoint(n.owner, p))
}

func (n *NavMesh) engineToOwner(p common.Vec3) common.Vec3 {
	return n.owner.RelativePoint(n.reference, fromEngine(p))
}

// nodeToEngine is the engine position of node's origin.
func (n *NavMesh) nodeToEngine(node *scene.Node) common.Vec3 {
	return toEngine(node.PosWrt(n.reference))
}

func convertAll(pts []common.Vec3, fn func(common.Vec3) common.Vec3) []common.Vec3 {
	out := make([]common.Vec3, len(pts))
	for i, p := range pts {
		out[i] = fn(p)
	}
	return out
}
