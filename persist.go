package navmesh

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
	"github.com/milk9111/navmesh/scene"
)

// Resolver maps the node and agent names stored in a record back to live
// objects. Either method returns nil for a name it does not know.
type Resolver interface {
	Node(name string) *scene.Node
	Agent(name string) *Agent
}

// record is the persisted form of a NavMesh. It is written as a msgpack
// array, so field order is the format.
type record struct {
	Name        string
	Variant     engine.Variant
	Settings    Settings
	Tiles       TileSettings
	AreaFlags   []areaFlagRecord
	AreaCosts   []areaCostRecord
	Include     uint16
	Exclude     uint16
	Volumes     []volumeRecord
	Connections []connectionRecord
	RefCounter  int
	Owner       string
	Agents      []string
	Obstacles   []string
}

type areaFlagRecord struct {
	Area  int
	Flags uint16
}

type areaCostRecord struct {
	Area int
	Cost float32
}

type volumeRecord struct {
	Points   []common.Vec3
	Settings VolumeSettings
}

type connectionRecord struct {
	Points   [2]common.Vec3
	Settings ConnectionSettings
}

func (n *NavMesh) record() record {
	r := record{
		Name:       n.baseName,
		Variant:    n.variant,
		Settings:   n.settings,
		Tiles:      n.tileSettings,
		Include:    n.includeFlags,
		Exclude:    n.excludeFlags,
		RefCounter: n.refCounter,
	}
	for area, flags := range n.areaFlags {
		r.AreaFlags = append(r.AreaFlags, areaFlagRecord{Area: area, Flags: flags})
	}
	slices.SortFunc(r.AreaFlags, func(a, b areaFlagRecord) int { return cmp.Compare(a.Area, b.Area) })
	for area, cost := range n.areaCosts {
		r.AreaCosts = append(r.AreaCosts, areaCostRecord{Area: area, Cost: cost})
	}
	slices.SortFunc(r.AreaCosts, func(a, b areaCostRecord) int { return cmp.Compare(a.Area, b.Area) })
	for _, v := range n.volumes {
		r.Volumes = append(r.Volumes, volumeRecord{Points: v.points, Settings: v.settings})
	}
	for _, c := range n.conns {
		r.Connections = append(r.Connections, connectionRecord{Points: c.points, Settings: c.settings})
	}
	if n.owner != nil {
		r.Owner = n.owner.Name()
	}
	for _, a := range n.agents {
		r.Agents = append(r.Agents, a.Name())
	}
	for _, o := range n.obstacles {
		r.Obstacles = append(r.Obstacles, o.node.Name())
	}
	return r
}

// Encode writes the mesh's settings, registries and the names of its
// owner, agents and obstacles. Engine state is not written. Structs are
// switched to array encoding on enc.
func (n *NavMesh) Encode(enc *msgpack.Encoder) error {
	enc.UseArrayEncodedStructs(true)
	if err := enc.Encode(n.record()); err != nil {
		return fmt.Errorf("navmesh: encode %s: %w", n.name, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo writes the mesh record to w.
func (n *NavMesh) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := n.Encode(msgpack.NewEncoder(cw))
	return cw.n, err
}

// DecodeNavMesh reads a record written by Encode and returns a configured
// mesh carrying it. Names res cannot resolve are logged and skipped.
func DecodeNavMesh(dec *msgpack.Decoder, res Resolver, opts ...Option) (*NavMesh, error) {
	var r record
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("navmesh: decode: %w", err)
	}

	opts = append([]Option{WithName(r.Name), WithVariant(r.Variant)}, opts...)
	n := New(opts...)
	n.tileSettings = r.Tiles
	for _, af := range r.AreaFlags {
		n.areaFlags[af.Area] = af.Flags
	}
	for _, ac := range r.AreaCosts {
		n.areaCosts[ac.Area] = ac.Cost
	}
	n.includeFlags, n.excludeFlags = r.Include, r.Exclude
	if err := n.Configure(r.Settings); err != nil {
		return nil, fmt.Errorf("navmesh: decode %s: %w", r.Name, err)
	}
	n.refCounter = r.RefCounter
	for _, v := range r.Volumes {
		if len(v.Points) < 3 {
			return nil, fmt.Errorf("navmesh: decode %s: %w: volume %d has %d points", r.Name, ErrInvalidGeometry, v.Settings.Ref, len(v.Points))
		}
		n.volumes = append(n.volumes, &volume{points: v.Points, settings: v.Settings})
		n.refCounter = max(n.refCounter, v.Settings.Ref)
	}
	for _, c := range r.Connections {
		n.conns = append(n.conns, &connection{points: c.Points, settings: c.Settings})
		n.refCounter = max(n.refCounter, c.Settings.Ref)
	}

	if r.Owner != "" {
		if owner := resolveNode(res, r.Owner); owner != nil {
			n.owner = owner
		} else {
			n.log.Warn("owner not found", "mesh", n.name, "owner", r.Owner)
		}
	}
	for _, name := range r.Agents {
		a := resolveAgent(res, name)
		if a == nil || a.mesh != nil {
			n.log.Warn("agent not restored", "mesh", n.name, "agent", name)
			continue
		}
		a.mesh = n
		n.agents = append(n.agents, a)
	}
	for _, name := range r.Obstacles {
		node := resolveNode(res, name)
		if node == nil || n.variant != engine.VariantObstacle {
			n.log.Warn("obstacle not restored", "mesh", n.name, "obstacle", name)
			continue
		}
		n.obstacles = append(n.obstacles, &obstacle{node: node})
	}
	return n, nil
}

// ReadNavMesh reads one mesh record from r.
func ReadNavMesh(r io.Reader, res Resolver, opts ...Option) (*NavMesh, error) {
	return DecodeNavMesh(msgpack.NewDecoder(r), res, opts...)
}

func resolveNode(res Resolver, name string) *scene.Node {
	if res == nil {
		return nil
	}
	return res.Node(name)
}

func resolveAgent(res Resolver, name string) *Agent {
	if res == nil {
		return nil
	}
	return res.Agent(name)
}
