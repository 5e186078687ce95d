package navmesh

import (
	"fmt"
	"slices"

	"github.com/chewxy/math32"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/scene"
)

// Agent is a crowd member driven by the mesh it is added to. Its move
// target and velocity are in the mesh's reference frame and are kept
// while the agent is unbound, then replayed when it binds.
type Agent struct {
	node   *scene.Node
	params AgentParams

	mesh *NavMesh
	idx  int

	target    common.Vec3
	hasTarget bool
	velocity  common.Vec3

	pos              common.Vec3
	vel              common.Vec3
	heightCorrection common.Vec3
}

func NewAgent(node *scene.Node, params AgentParams) *Agent {
	return &Agent{node: node, params: params, idx: -1}
}

func (a *Agent) Node() *scene.Node { return a.node }

func (a *Agent) Name() string { return a.node.Name() }

func (a *Agent) Params() AgentParams { return a.params }

// NavMesh is the mesh the agent belongs to, or nil.
func (a *Agent) NavMesh() *NavMesh { return a.mesh }

// Index is the crowd slot of a bound agent, or -1.
func (a *Agent) Index() int { return a.idx }

func (a *Agent) bound() bool { return a.mesh != nil && a.idx >= 0 }

func (a *Agent) MoveTarget() common.Vec3 { return a.target }

func (a *Agent) MoveVelocity() common.Vec3 { return a.velocity }

// Position and Velocity are the last pose read back from the crowd, in
// the reference frame.
func (a *Agent) Position() common.Vec3 { return a.pos }

func (a *Agent) Velocity() common.Vec3 { return a.vel }

// HeightCorrection is the agent's measured height along the up axis.
func (a *Agent) HeightCorrection() common.Vec3 { return a.heightCorrection }

func (a *Agent) SetParams(p AgentParams) error {
	if a.bound() {
		p.Radius, p.Height = a.params.Radius, a.params.Height
		if err := a.mesh.crowd.UpdateAgentParams(a.idx, p); err != nil {
			return fmt.Errorf("navmesh: agent %s params: %w: %w", a.Name(), ErrEngineRejected, err)
		}
	}
	a.params = p
	return nil
}

func (a *Agent) SetMoveTarget(p common.Vec3) error {
	a.target, a.hasTarget = p, true
	a.velocity = common.Vec3{}
	if a.bound() {
		if err := a.mesh.crowd.SetMoveTarget(a.idx, toEngine(p)); err != nil {
			return fmt.Errorf("navmesh: agent %s target: %w: %w", a.Name(), ErrEngineRejected, err)
		}
	}
	return nil
}

func (a *Agent) SetMoveVelocity(v common.Vec3) error {
	a.velocity, a.hasTarget = v, false
	if a.bound() {
		if err := a.mesh.crowd.SetMoveVelocity(a.idx, toEngine(v)); err != nil {
			return fmt.Errorf("navmesh: agent %s velocity: %w: %w", a.Name(), ErrEngineRejected, err)
		}
	}
	return nil
}

// AddAgent puts a in the mesh's registry and, when the mesh is built,
// into the crowd. An agent the crowd refuses stays registered but
// unbound.
func (n *NavMesh) AddAgent(a *Agent) error {
	if a == nil || a.node == nil {
		return fmt.Errorf("navmesh: add agent: %w: nil agent", ErrInvalidGeometry)
	}
	if a.mesh != nil {
		return fmt.Errorf("navmesh: add agent %s: %w", a.Name(), ErrAlreadyBound)
	}
	a.mesh = n
	n.agents = append(n.agents, a)
	if n.state != StateBuilt {
		return nil
	}
	if err := n.bindAgent(a); err != nil {
		return fmt.Errorf("navmesh: add agent %s: %w", a.Name(), err)
	}
	return nil
}

// RemoveAgent takes a out of the crowd and the registry.
func (n *NavMesh) RemoveAgent(a *Agent) error {
	if a == nil || a.mesh != n {
		return fmt.Errorf("navmesh: remove agent: %w", ErrNotFound)
	}
	n.unbindAgent(a)
	n.agents = slices.DeleteFunc(n.agents, func(b *Agent) bool { return b == a })
	a.mesh = nil
	return nil
}

func (n *NavMesh) AgentCount() int { return len(n.agents) }

func (n *NavMesh) Agents() []*Agent { return slices.Clone(n.agents) }

// withAgentDimensions runs fn with the mesh-wide agent radius and height
// swapped for one agent's. The crowd sizes a new agent from the mesh
// settings only.
func (n *NavMesh) withAgentDimensions(radius, height float32, fn func()) {
	saved := n.settings
	s := saved
	s.AgentRadius, s.AgentHeight = radius, height
	n.SetNavMeshSettings(s)
	defer n.SetNavMeshSettings(saved)
	fn()
}

// bindAgent puts a's node under the reference and adds it to the crowd.
// A refused agent's node is detached.
func (n *NavMesh) bindAgent(a *Agent) error {
	if a.idx >= 0 {
		return nil
	}
	a.node.WrtReparentTo(n.reference)
	dims, radius := a.node.BoundingDimensions()
	height := dims.Z
	if radius <= 0 {
		radius, height = n.settings.AgentRadius, n.settings.AgentHeight
	}
	params := a.params
	params.Radius, params.Height = radius, height

	pos := n.nodeToEngine(a.node)
	idx := -1
	n.withAgentDimensions(radius, height, func() {
		idx = n.crowd.AddAgent(pos, params)
	})
	if idx < 0 {
		a.node.Detach()
		return fmt.Errorf("%w: crowd refused agent at %s", ErrEngineRejected, pos)
	}
	a.idx = idx
	a.params = params
	a.heightCorrection = common.V3(0, 0, height)
	a.pos = fromEngine(pos)

	switch {
	case a.hasTarget:
		if err := n.crowd.SetMoveTarget(idx, toEngine(a.target)); err != nil {
			n.log.Warn("agent target not applied", "mesh", n.name, "agent", a.Name(), "err", err)
		}
	case a.velocity != (common.Vec3{}):
		if err := n.crowd.SetMoveVelocity(idx, toEngine(a.velocity)); err != nil {
			n.log.Warn("agent velocity not applied", "mesh", n.name, "agent", a.Name(), "err", err)
		}
	}
	return nil
}

func (n *NavMesh) unbindAgent(a *Agent) {
	if a.idx < 0 {
		return
	}
	if n.crowd != nil {
		n.crowd.RemoveAgent(a.idx)
	}
	a.node.Detach()
	a.idx = -1
}

// readBack copies the crowd pose of a onto its node. Models face -Y, so
// the heading turns -Y onto the velocity.
func (n *NavMesh) readBack(a *Agent) {
	st, ok := n.crowd.Agent(a.idx)
	if !ok {
		return
	}
	a.pos = fromEngine(st.Pos)
	a.vel = fromEngine(st.Vel)
	a.node.SetPosWrt(n.reference, a.pos)
	if a.vel.X*a.vel.X+a.vel.Y*a.vel.Y > 1e-4 {
		a.node.SetHWrt(n.reference, common.Rad2Deg(math32.Atan2(a.vel.X, -a.vel.Y)))
	}
}
