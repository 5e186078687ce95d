// Package navmesh keeps a navigation mesh together with everything laid
// over it: convex volumes, off-mesh connections, dynamic obstacles and
// crowd agents. Features are registered before the mesh is built and
// replayed into the engine on Build; agents and obstacles may come and go
// at any time.
//
// A NavMesh is not safe for concurrent use. All calls, Update included,
// are expected from one update loop.
package navmesh

import (
	"fmt"
	"maps"

	"github.com/milk9111/navmesh/engine"
	"github.com/milk9111/navmesh/engine/grid"
	"github.com/milk9111/navmesh/scene"
)

type State uint8

const (
	StateUnconfigured State = iota
	StateConfigured
	StateBuilt
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateBuilt:
		return "built"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

const (
	defaultName      = "NavMesh"
	DefaultMaxAgents = 128
)

type NavMesh struct {
	name     string
	baseName string
	state    State
	log      Logger

	variant      engine.Variant
	settings     Settings
	tileSettings TileSettings
	areaFlags    map[int]uint16
	areaCosts    map[int]float32
	includeFlags uint16
	excludeFlags uint16

	reference *scene.Node
	owner     *scene.Node

	factory   engine.Factory
	maxAgents int
	geom      *engine.InputGeom
	mesh      engine.Mesh
	crowd     engine.Crowd
	budget    engine.TileBudget

	refCounter int
	volumes    []*volume
	conns      []*connection
	obstacles  []*obstacle
	agents     []*Agent
}

type Option func(*NavMesh)

func WithName(name string) Option {
	return func(n *NavMesh) {
		n.name = name
	}
}

func WithLogger(l Logger) Option {
	return func(n *NavMesh) {
		if l != nil {
			n.log = l
		}
	}
}

// WithEngine replaces the grid engine.
func WithEngine(f engine.Factory) Option {
	return func(n *NavMesh) {
		if f != nil {
			n.factory = f
		}
	}
}

func WithMaxAgents(count int) Option {
	return func(n *NavMesh) {
		if count > 0 {
			n.maxAgents = count
		}
	}
}

func WithVariant(v engine.Variant) Option {
	return func(n *NavMesh) {
		n.variant = v
	}
}

// WithReference sets the node whose space is the mesh's reference frame.
// By default every mesh gets a fresh root node.
func WithReference(ref *scene.Node) Option {
	return func(n *NavMesh) {
		if ref != nil {
			n.reference = ref
		}
	}
}

// New returns an unconfigured mesh with the default tables.
func New(opts ...Option) *NavMesh {
	n := &NavMesh{
		name:         defaultName,
		log:          nopLogger{},
		variant:      engine.VariantSolo,
		settings:     DefaultSettings(),
		tileSettings: DefaultTileSettings(),
		areaFlags:    engine.DefaultAreaFlags(),
		areaCosts:    engine.DefaultAreaCosts(),
		includeFlags: DefaultIncludeFlags,
		excludeFlags: DefaultExcludeFlags,
		factory:      grid.New,
		maxAgents:    DefaultMaxAgents,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.reference == nil {
		n.reference = scene.NewNode(n.name + "_reference")
	}
	n.baseName = n.name
	return n
}

func (n *NavMesh) Name() string { return n.name }

func (n *NavMesh) State() State { return n.state }

func (n *NavMesh) Variant() engine.Variant { return n.variant }

// Reference is the node whose space query positions and agent targets
// are expressed in.
func (n *NavMesh) Reference() *scene.Node { return n.reference }

// Owner is the node whose geometry the mesh is built from, or nil.
func (n *NavMesh) Owner() *scene.Node { return n.owner }

// SetOwner records the owner of an unbuilt mesh so a later Build can use
// it.
func (n *NavMesh) SetOwner(owner *scene.Node) error {
	if n.state == StateBuilt {
		return fmt.Errorf("navmesh: set owner: %w", ErrAlreadyBuilt)
	}
	n.owner = owner
	return nil
}

func (n *NavMesh) Settings() Settings { return n.settings }

func (n *NavMesh) TileSettings() TileSettings { return n.tileSettings }

// TileBudget is the tile and polygon id split derived by the last build
// of an obstacle-variant mesh.
func (n *NavMesh) TileBudget() engine.TileBudget { return n.budget }

func (n *NavMesh) AreaFlags() map[int]uint16 { return maps.Clone(n.areaFlags) }

func (n *NavMesh) AreaCosts() map[int]float32 { return maps.Clone(n.areaCosts) }

func (n *NavMesh) IncludeFlags() uint16 { return n.includeFlags }

func (n *NavMesh) ExcludeFlags() uint16 { return n.excludeFlags }

// SetNavMeshSettings stores s and, when built, pushes it to the engine.
func (n *NavMesh) SetNavMeshSettings(s Settings) {
	n.settings = s
	if n.mesh != nil {
		cfg := engineConfig(n.settings, n.tileSettings)
		cur := n.mesh.Config()
		cfg.MaxTiles, cfg.MaxPolysPerTile = cur.MaxTiles, cur.MaxPolysPerTile
		n.mesh.SetConfig(cfg)
	}
}

func (n *NavMesh) SetTileSettings(ts TileSettings) error {
	if n.state == StateBuilt {
		return fmt.Errorf("navmesh: set tile settings: %w", ErrAlreadyBuilt)
	}
	n.tileSettings = ts
	return nil
}

func (n *NavMesh) SetMeshType(v engine.Variant) error {
	if n.state == StateBuilt {
		return fmt.Errorf("navmesh: set mesh type: %w", ErrAlreadyBuilt)
	}
	n.variant = v
	return nil
}

// SetAreaFlags sets the ability flags polygons of area get at build time.
func (n *NavMesh) SetAreaFlags(area int, flags uint16) error {
	if n.state == StateBuilt {
		return fmt.Errorf("navmesh: set area flags: %w", ErrAlreadyBuilt)
	}
	if area < 0 || area >= engine.MaxAreas {
		return fmt.Errorf("navmesh: set area flags: %w: area %d", ErrInvalidGeometry, area)
	}
	n.areaFlags[area] = flags
	return nil
}

func (n *NavMesh) SetCrowdAreaCost(area int, cost float32) {
	n.areaCosts[area] = cost
	if n.crowd != nil {
		n.crowd.Filter().SetAreaCost(area, cost)
	}
}

func (n *NavMesh) SetCrowdIncludeFlags(flags uint16) {
	n.includeFlags = flags
	if n.crowd != nil {
		n.crowd.Filter().IncludeFlags = flags
	}
}

func (n *NavMesh) SetCrowdExcludeFlags(flags uint16) {
	n.excludeFlags = flags
	if n.crowd != nil {
		n.crowd.Filter().ExcludeFlags = flags
	}
}

func (n *NavMesh) uniqueRef() int {
	n.refCounter++
	return n.refCounter
}

func (n *NavMesh) String() string {
	return fmt.Sprintf("%s (%s, %s): %d volumes, %d connections, %d obstacles, %d agents",
		n.name, n.variant, n.state, len(n.volumes), len(n.conns), len(n.obstacles), len(n.agents))
}
