package grid

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

const maxObstacleRequests = 64

type obstacleState int

const (
	obstacleProcessing obstacleState = iota
	obstaclePresent
	obstacleRemoving
)

type obstacle struct {
	pos     common.Vec3
	radius  float32
	height  float32
	state   obstacleState
	pending map[int]bool
}

type obstacleRequest struct {
	ref    engine.ObstacleRef
	remove bool
}

// TileCache carves cylinder obstacles out of an obstacle-variant mesh.
// Requests are queued; each Update first turns the queue into touched
// tiles and then rebuilds one touched tile.
type TileCache struct {
	mesh      *Mesh
	obstacles map[engine.ObstacleRef]*obstacle
	next      engine.ObstacleRef
	requests  []obstacleRequest
	touched   []int
}

var _ engine.TileCache = (*TileCache)(nil)

func newTileCache(m *Mesh) *TileCache {
	return &TileCache{
		mesh:      m,
		obstacles: make(map[engine.ObstacleRef]*obstacle),
	}
}

func (c *TileCache) TilePos(pos common.Vec3) (int, int) {
	return c.mesh.tilePos(pos)
}

func (c *TileCache) AddObstacle(pos common.Vec3, radius, height float32) (engine.ObstacleRef, error) {
	if radius <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: obstacle radius %g height %g", engine.ErrInvalidParam, radius, height)
	}
	if len(c.requests) >= maxObstacleRequests {
		return 0, engine.ErrBufferFull
	}
	c.next++
	ref := c.next
	c.obstacles[ref] = &obstacle{pos: pos, radius: radius, height: height}
	c.requests = append(c.requests, obstacleRequest{ref: ref})
	return ref, nil
}

func (c *TileCache) RemoveObstacle(ref engine.ObstacleRef) error {
	if ref == 0 {
		return nil
	}
	if _, ok := c.obstacles[ref]; !ok {
		return fmt.Errorf("%w: unknown obstacle %d", engine.ErrInvalidParam, ref)
	}
	if len(c.requests) >= maxObstacleRequests {
		return engine.ErrBufferFull
	}
	c.requests = append(c.requests, obstacleRequest{ref: ref, remove: true})
	return nil
}

func (c *TileCache) ObstacleCount() int {
	return len(c.obstacles)
}

func (c *TileCache) Update(float32) (bool, error) {
	if len(c.touched) == 0 && len(c.requests) > 0 {
		for _, r := range c.requests {
			ob := c.obstacles[r.ref]
			if ob == nil {
				continue
			}
			if r.remove {
				ob.state = obstacleRemoving
			}
			tiles := c.mesh.tilesUnder(ob)
			ob.pending = make(map[int]bool, len(tiles))
			for _, t := range tiles {
				ob.pending[t] = true
				if !containsInt(c.touched, t) {
					c.touched = append(c.touched, t)
				}
			}
			if len(tiles) == 0 {
				c.settle(r.ref, ob)
			}
		}
		c.requests = c.requests[:0]
	}

	if len(c.touched) > 0 {
		t := c.touched[0]
		c.touched = c.touched[1:]
		c.mesh.carveTile(t, c.active())
		c.mesh.refreshWalls(t)
		c.mesh.version++
		for ref, ob := range c.obstacles {
			if !ob.pending[t] {
				continue
			}
			delete(ob.pending, t)
			if len(ob.pending) == 0 {
				c.settle(ref, ob)
			}
		}
	}
	return len(c.touched) == 0 && len(c.requests) == 0, nil
}

func (c *TileCache) settle(ref engine.ObstacleRef, ob *obstacle) {
	switch ob.state {
	case obstacleProcessing:
		ob.state = obstaclePresent
	case obstacleRemoving:
		delete(c.obstacles, ref)
	}
}

func (c *TileCache) active() []*obstacle {
	out := make([]*obstacle, 0, len(c.obstacles))
	for _, ob := range c.obstacles {
		if ob.state != obstacleRemoving {
			out = append(out, ob)
		}
	}
	return out
}

// reach is how far an obstacle blocks cell centers: its radius grown by
// the agent radius, as the walkable surface is eroded by it.
func (m *Mesh) reach(ob *obstacle) float32 {
	return ob.radius + m.cfg.AgentRadius
}

func (m *Mesh) tilesUnder(ob *obstacle) []int {
	r := m.reach(ob)
	span := float32(m.tileCells) * m.cfg.CellSize
	tx0 := int(math32.Floor((ob.pos.X - r - m.bmin.X) / span))
	tx1 := int(math32.Floor((ob.pos.X + r - m.bmin.X) / span))
	tz0 := int(math32.Floor((ob.pos.Z - r - m.bmin.Z) / span))
	tz1 := int(math32.Floor((ob.pos.Z + r - m.bmin.Z) / span))
	tx0, tz0 = max(tx0, 0), max(tz0, 0)
	tx1, tz1 = min(tx1, m.tilesX-1), min(tz1, m.tilesZ-1)
	var out []int
	for tz := tz0; tz <= tz1; tz++ {
		for tx := tx0; tx <= tx1; tx++ {
			out = append(out, tz*m.tilesX+tx)
		}
	}
	return out
}

// carveTile recomputes which cells of tile t the obstacles block.
func (m *Mesh) carveTile(t int, obstacles []*obstacle) {
	tx, tz := t%m.tilesX, t/m.tilesX
	i0, j0 := tx*m.tileCells, tz*m.tileCells
	i1 := min(i0+m.tileCells, m.cols)
	j1 := min(j0+m.tileCells, m.rows)
	for j := j0; j < j1; j++ {
		for i := i0; i < i1; i++ {
			idx := j*m.cols + i
			m.cells[idx].blocked = false
			if !m.cells[idx].walkable {
				continue
			}
			p := m.cellPos(idx)
			for _, ob := range obstacles {
				if p.Dist2D(ob.pos) <= m.reach(ob) &&
					p.Y >= ob.pos.Y-m.cfg.AgentMaxClimb && p.Y <= ob.pos.Y+ob.height {
					m.cells[idx].blocked = true
					break
				}
			}
		}
	}
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
