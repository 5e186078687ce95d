package grid

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

type moveMode int

const (
	moveNone moveMode = iota
	moveTarget
	moveVelocity
)

type crowdAgent struct {
	params engine.AgentParams
	body   *cp.Body
	shape  *cp.Shape
	pos    common.Vec3
	vel    common.Vec3
	ref    engine.PolyRef

	mode      moveMode
	target    common.Vec3
	targetRef engine.PolyRef
	targetVel common.Vec3
	corners   []engine.StraightPoint
	version   int
}

// Crowd steers agents along A* corridors. Agents are circle bodies in the
// mesh's chipmunk space, so walls and other agents push them back.
type Crowd struct {
	mesh   *Mesh
	filter *engine.Filter
	agents []*crowdAgent
	ext    common.Vec3
}

var _ engine.Crowd = (*Crowd)(nil)

func (m *Mesh) NewCrowd(maxAgents int, maxAgentRadius float32) (engine.Crowd, error) {
	if !m.built {
		return nil, engine.ErrNotBuilt
	}
	if maxAgents <= 0 || maxAgentRadius <= 0 {
		return nil, fmt.Errorf("%w: crowd of %d agents, radius %g", engine.ErrInvalidParam, maxAgents, maxAgentRadius)
	}
	if m.crowd != nil {
		m.crowd.close()
	}
	m.crowd = &Crowd{
		mesh:   m,
		filter: engine.NewFilter(),
		agents: make([]*crowdAgent, maxAgents),
		ext:    common.V3(maxAgentRadius*2, maxAgentRadius*1.5, maxAgentRadius*2),
	}
	return m.crowd, nil
}

func (c *Crowd) Filter() *engine.Filter { return c.filter }

// AddAgent places an agent on the polygon nearest pos. The body takes the
// mesh agent radius and height in effect right now. It returns the slot
// or -1 when the crowd is full or pos is off the mesh.
func (c *Crowd) AddAgent(pos common.Vec3, params engine.AgentParams) int {
	slot := -1
	for i, a := range c.agents {
		if a == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return -1
	}
	ref, nearest, err := c.mesh.query.FindNearestPoly(pos, c.ext, c.filter)
	if err != nil || ref == 0 {
		return -1
	}

	cfg := c.mesh.cfg
	params.Radius = cfg.AgentRadius
	params.Height = cfg.AgentHeight
	radius := float64(params.Radius)
	if radius <= 0 {
		radius = float64(cfg.CellSize) / 2
	}

	body := cp.NewBody(1, math.Inf(1))
	body.SetPosition(toCP(nearest))
	shape := cp.NewCircle(body, radius, cp.Vector{})
	shape.SetFriction(0)
	shape.SetElasticity(0)
	shape.SetCollisionType(collisionTypeAgent)
	shape.SetFilter(agentFilter)
	c.mesh.space.AddBody(body)
	c.mesh.space.AddShape(shape)

	c.agents[slot] = &crowdAgent{
		params: params,
		body:   body,
		shape:  shape,
		pos:    nearest,
		ref:    ref,
	}
	return slot
}

func (c *Crowd) agent(idx int) (*crowdAgent, error) {
	if idx < 0 || idx >= len(c.agents) || c.agents[idx] == nil {
		return nil, fmt.Errorf("%w: agent %d", engine.ErrInvalidParam, idx)
	}
	return c.agents[idx], nil
}

func (c *Crowd) RemoveAgent(idx int) {
	a, err := c.agent(idx)
	if err != nil {
		return
	}
	c.release(a)
	c.agents[idx] = nil
}

func (c *Crowd) release(a *crowdAgent) {
	space := c.mesh.space
	if space == nil {
		return
	}
	if space.ContainsShape(a.shape) {
		space.RemoveShape(a.shape)
	}
	if space.ContainsBody(a.body) {
		space.RemoveBody(a.body)
	}
}

func (c *Crowd) close() {
	for i, a := range c.agents {
		if a != nil {
			c.release(a)
			c.agents[i] = nil
		}
	}
}

// UpdateAgentParams replaces the motion parameters. The body keeps the
// size it was inserted with.
func (c *Crowd) UpdateAgentParams(idx int, params engine.AgentParams) error {
	a, err := c.agent(idx)
	if err != nil {
		return err
	}
	params.Radius = a.params.Radius
	params.Height = a.params.Height
	a.params = params
	return nil
}

func (c *Crowd) SetMoveTarget(idx int, pos common.Vec3) error {
	a, err := c.agent(idx)
	if err != nil {
		return err
	}
	ref, nearest, err := c.mesh.query.FindNearestPoly(pos, c.ext, c.filter)
	if err != nil {
		return err
	}
	if ref == 0 {
		return fmt.Errorf("%w: move target %s is off the mesh", engine.ErrInvalidParam, pos)
	}
	a.mode = moveTarget
	a.target = nearest
	a.targetRef = ref
	a.corners = nil
	a.version = -1
	return nil
}

func (c *Crowd) SetMoveVelocity(idx int, vel common.Vec3) error {
	a, err := c.agent(idx)
	if err != nil {
		return err
	}
	a.mode = moveVelocity
	a.targetVel = vel
	a.corners = nil
	return nil
}

func (c *Crowd) Agent(idx int) (engine.AgentState, bool) {
	a, err := c.agent(idx)
	if err != nil {
		return engine.AgentState{}, false
	}
	return engine.AgentState{Pos: a.pos, Vel: a.vel, Active: true}, true
}

func (c *Crowd) AgentCount() int {
	n := 0
	for _, a := range c.agents {
		if a != nil {
			n++
		}
	}
	return n
}

func (c *Crowd) Update(dt float32) {
	if dt <= 0 || c.mesh.space == nil {
		return
	}
	for _, a := range c.agents {
		if a == nil {
			continue
		}
		var desired common.Vec3
		switch a.mode {
		case moveTarget:
			if a.version != c.mesh.version {
				c.plan(a)
			}
			desired = c.steer(a)
		case moveVelocity:
			desired = clampLen(common.V3(a.targetVel.X, 0, a.targetVel.Z), a.params.MaxSpeed)
		}
		dv := clampLen(desired.Sub(a.vel), a.params.MaxAcceleration*dt)
		a.vel = a.vel.Add(dv)
		a.body.SetVelocity(float64(a.vel.X), float64(a.vel.Z))
	}

	c.mesh.space.Step(float64(dt))

	for _, a := range c.agents {
		if a == nil {
			continue
		}
		p := fromCP(a.body.Position(), a.pos.Y)
		if ref, nearest, err := c.mesh.query.FindNearestPoly(p, c.ext, c.filter); err == nil && ref != 0 {
			p.Y = nearest.Y
			a.ref = ref
		}
		a.pos = p
		a.vel = fromCP(a.body.Velocity(), 0)
	}
}

func (c *Crowd) plan(a *crowdAgent) {
	a.version = c.mesh.version
	a.corners = nil
	q := c.mesh.query
	path, err := q.FindPath(a.ref, a.targetRef, a.pos, a.target, c.filter)
	if err != nil || len(path) == 0 {
		return
	}
	pts, err := q.FindStraightPath(a.pos, a.target, path, engine.StraightNone)
	if err != nil || len(pts) < 2 {
		return
	}
	if path[len(path)-1] != a.targetRef {
		// partial corridor: stop at the last reachable polygon
		last, _ := q.ClosestPointOnPoly(path[len(path)-1], a.target)
		pts[len(pts)-1].Pos = last
	}
	a.corners = c.shortcut(a.pos, pts[1:])
}

// shortcut drops corners that can be skipped in a straight line from the
// previous kept point. Off-mesh entries are never skipped.
func (c *Crowd) shortcut(from common.Vec3, pts []engine.StraightPoint) []engine.StraightPoint {
	q := c.mesh.query
	visible := func(a, b common.Vec3) bool {
		ref, _, err := q.FindNearestPoly(a, c.ext, c.filter)
		if err != nil || ref == 0 {
			return false
		}
		hit, err := q.Raycast(ref, a, b, c.filter)
		return err == nil && hit.T > 1
	}

	out := make([]engine.StraightPoint, 0, len(pts))
	for i := 0; i < len(pts); {
		j := i
		for k := i + 1; k < len(pts); k++ {
			if pts[k-1].Flags&engine.StraightPathOffMesh != 0 || !visible(from, pts[k].Pos) {
				break
			}
			j = k
		}
		out = append(out, pts[j])
		from = pts[j].Pos
		i = j + 1
	}
	return out
}

// steer returns the desired velocity toward the next corner, crossing
// off-mesh links by moving the body to the far end.
func (c *Crowd) steer(a *crowdAgent) common.Vec3 {
	arrive := max(a.params.Radius*0.25, c.mesh.cfg.CellSize*0.5)
	for len(a.corners) > 0 && a.pos.Dist2D(a.corners[0].Pos) <= arrive {
		reached := a.corners[0]
		a.corners = a.corners[1:]
		if reached.Flags&engine.StraightPathOffMesh != 0 && len(a.corners) > 0 {
			exit := a.corners[0].Pos
			a.body.SetPosition(toCP(exit))
			a.pos = exit
			a.corners = a.corners[1:]
		}
	}
	if len(a.corners) == 0 {
		return common.Vec3{}
	}

	next := a.corners[0].Pos
	delta := common.V3(next.X-a.pos.X, 0, next.Z-a.pos.Z)
	dist := delta.Len()
	speed := a.params.MaxSpeed
	if slow := a.params.Radius * 2; len(a.corners) == 1 && slow > 0 && dist < slow {
		speed *= dist / slow
	}
	return delta.Scale(speed / dist)
}

func clampLen(v common.Vec3, limit float32) common.Vec3 {
	l := v.Len()
	if limit <= 0 {
		return common.Vec3{}
	}
	if l <= limit {
		return v
	}
	return v.Scale(limit / l)
}
