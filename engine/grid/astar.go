package grid

import (
	"container/heap"

	"github.com/chewxy/math32"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

// Node ids are PolyRef-1: cells first, then off-mesh links.

const heuristicScale = 0.999

func (m *Mesh) nodeCount() int { return len(m.cells) + len(m.links) }

func (m *Mesh) isLink(node int) bool { return node >= len(m.cells) }

func (m *Mesh) nodeValid(node int, filter *engine.Filter) bool {
	if node < 0 || node >= m.nodeCount() {
		return false
	}
	if m.isLink(node) {
		l := m.links[node-len(m.cells)]
		return l.from >= 0 && l.to >= 0 && filter.Pass(l.flags)
	}
	return m.passable(node) && filter.Pass(m.cells[node].flags)
}

func (m *Mesh) nodePos(node int) common.Vec3 {
	if m.isLink(node) {
		c := m.links[node-len(m.cells)].conn
		return c.Start.Lerp(c.End, 0.5)
	}
	return m.cellPos(node)
}

func (m *Mesh) nodeArea(node int) int {
	if m.isLink(node) {
		return m.links[node-len(m.cells)].area
	}
	return m.cells[node].area
}

// neighbors lists the nodes reachable from node; prev orients links.
func (m *Mesh) neighbors(node, prev int, filter *engine.Filter) []int {
	out := make([]int, 0, 4)
	if m.isLink(node) {
		l := m.links[node-len(m.cells)]
		switch {
		case prev == l.from:
			out = append(out, l.to)
		case l.conn.Bidir && prev == l.to:
			out = append(out, l.from)
		}
		return out
	}

	i, j := node%m.cols, node/m.cols
	for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		ni, nj := i+d[0], j+d[1]
		if ni < 0 || nj < 0 || ni >= m.cols || nj >= m.rows {
			continue
		}
		n := nj*m.cols + ni
		if m.nodeValid(n, filter) && m.climbable(node, n) {
			out = append(out, n)
		}
	}
	for k, l := range m.links {
		if l.from == node || (l.conn.Bidir && l.to == node) {
			n := len(m.cells) + k
			if m.nodeValid(n, filter) {
				out = append(out, n)
			}
		}
	}
	return out
}

// findPath runs A* from start to goal. When goal is unreachable it returns
// the path to the visited node closest to endPos.
func (m *Mesh) findPath(start, goal int, endPos common.Vec3, filter *engine.Filter) []int {
	n := m.nodeCount()
	open := &openSet{}
	heap.Init(open)

	cameFrom := make([]int, n)
	for i := range cameFrom {
		cameFrom[i] = -1
	}
	gScore := make([]float32, n)
	for i := range gScore {
		gScore[i] = math32.Inf(1)
	}
	closed := make([]bool, n)

	gScore[start] = 0
	best := start
	bestH := m.nodePos(start).Dist(endPos) * heuristicScale
	heap.Push(open, &openItem{node: start, f: bestH})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*openItem).node
		if closed[cur] {
			continue
		}
		closed[cur] = true
		if cur == goal {
			best = goal
			break
		}
		h := m.nodePos(cur).Dist(endPos) * heuristicScale
		if h < bestH {
			best, bestH = cur, h
		}

		curPos := m.nodePos(cur)
		for _, nb := range m.neighbors(cur, cameFrom[cur], filter) {
			if closed[nb] {
				continue
			}
			nbPos := m.nodePos(nb)
			cost := curPos.Dist(nbPos) * filter.AreaCost(m.nodeArea(nb))
			tentative := gScore[cur] + cost
			if tentative < gScore[nb] {
				cameFrom[nb] = cur
				gScore[nb] = tentative
				heap.Push(open, &openItem{node: nb, f: tentative + nbPos.Dist(endPos)*heuristicScale})
			}
		}
	}

	return reconstructPath(cameFrom, start, best)
}

func reconstructPath(cameFrom []int, start, end int) []int {
	path := make([]int, 0, 32)
	for cur := end; cur != -1; cur = cameFrom[cur] {
		path = append(path, cur)
		if cur == start {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type openItem struct {
	node  int
	f     float32
	index int
}

type openSet []*openItem

func (o openSet) Len() int           { return len(o) }
func (o openSet) Less(i, j int) bool { return o[i].f < o[j].f }
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	item := x.(*openItem)
	item.index = len(*o)
	*o = append(*o, item)
}
func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*o = old[:n-1]
	return item
}
