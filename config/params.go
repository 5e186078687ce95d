// Package config holds the YAML parameter tables new meshes and agents
// are created from, and a watcher that reports edits to them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/navmesh"
	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

// Params is one parameter file.
type Params struct {
	NavMesh NavMeshParams `yaml:"navmesh"`
	Agent   AgentParams   `yaml:"agent"`
}

type NavMeshParams struct {
	NavMeshType          string  `yaml:"navmesh_type"`
	CellSize             float32 `yaml:"cell_size"`
	CellHeight           float32 `yaml:"cell_height"`
	AgentHeight          float32 `yaml:"agent_height"`
	AgentRadius          float32 `yaml:"agent_radius"`
	AgentMaxClimb        float32 `yaml:"agent_max_climb"`
	AgentMaxSlope        float32 `yaml:"agent_max_slope"`
	RegionMinSize        float32 `yaml:"region_min_size"`
	RegionMergeSize      float32 `yaml:"region_merge_size"`
	PartitionType        string  `yaml:"partition_type"`
	EdgeMaxLen           float32 `yaml:"edge_max_len"`
	EdgeMaxError         float32 `yaml:"edge_max_error"`
	VertsPerPoly         float32 `yaml:"verts_per_poly"`
	DetailSampleDist     float32 `yaml:"detail_sample_dist"`
	DetailSampleMaxError float32 `yaml:"detail_sample_max_error"`
	BuildAllTiles        bool    `yaml:"build_all_tiles"`
	MaxTiles             int     `yaml:"max_tiles"`
	MaxPolysPerTile      int     `yaml:"max_polys_per_tile"`
	TileSize             float32 `yaml:"tile_size"`

	AreaFlagsCost      []string `yaml:"area_flags_cost"`
	CrowdIncludeFlags  string   `yaml:"crowd_include_flags"`
	CrowdExcludeFlags  string   `yaml:"crowd_exclude_flags"`
	ConvexVolumes      []string `yaml:"convex_volume"`
	OffMeshConnections []string `yaml:"offmesh_connection"`
}

type AgentParams struct {
	MoveTarget            string  `yaml:"move_target"`
	MoveVelocity          string  `yaml:"move_velocity"`
	MaxAcceleration       float32 `yaml:"max_acceleration"`
	MaxSpeed              float32 `yaml:"max_speed"`
	CollisionQueryRange   float32 `yaml:"collision_query_range"`
	PathOptimizationRange float32 `yaml:"path_optimization_range"`
	SeparationWeight      float32 `yaml:"separation_weight"`
	UpdateFlags           string  `yaml:"update_flags"`
	ObstacleAvoidanceType int     `yaml:"obstacle_avoidance_type"`
}

func Default() Params {
	return Params{
		NavMesh: NavMeshParams{
			NavMeshType:          "solo",
			CellSize:             0.3,
			CellHeight:           0.2,
			AgentHeight:          2.0,
			AgentRadius:          0.6,
			AgentMaxClimb:        0.9,
			AgentMaxSlope:        45,
			RegionMinSize:        8,
			RegionMergeSize:      20,
			PartitionType:        "watershed",
			EdgeMaxLen:           12,
			EdgeMaxError:         1.3,
			VertsPerPoly:         6,
			DetailSampleDist:     6,
			DetailSampleMaxError: 1,
			BuildAllTiles:        false,
			MaxTiles:             128,
			MaxPolysPerTile:      32768,
			TileSize:             32,
			AreaFlagsCost: []string{
				"0@0x01@1.0",
				"1@0x02@10.0",
				"2@0x01@1.0",
				"3@0x01:0x04@1.0",
				"4@0x01@2.0",
				"5@0x08@1.5",
			},
			CrowdIncludeFlags: "0xffef",
			CrowdExcludeFlags: "0x10",
		},
		Agent: AgentParams{
			MoveTarget:            "0,0,0",
			MoveVelocity:          "0,0,0",
			MaxAcceleration:       8,
			MaxSpeed:              3.5,
			CollisionQueryRange:   12,
			PathOptimizationRange: 30,
			SeparationWeight:      2,
			UpdateFlags:           "0x1b",
			ObstacleAvoidanceType: 3,
		},
	}
}

// Load reads a parameter file. Keys it leaves out keep their defaults.
func Load(filename string) (Params, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Params{}, fmt.Errorf("config: load %s: %w", filename, err)
	}
	p, err := Parse(data)
	if err != nil {
		return Params{}, fmt.Errorf("config: load %s: %w", filename, err)
	}
	return p, nil
}

func Parse(data []byte) (Params, error) {
	p := Default()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("unmarshal: %w", err)
	}
	if _, err := p.NavMesh.Variant(); err != nil {
		return Params{}, err
	}
	if _, err := engine.ParsePartition(p.NavMesh.PartitionType); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p NavMeshParams) Variant() (engine.Variant, error) {
	return engine.ParseVariant(p.NavMeshType)
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Settings returns the build settings. Negative values count as their
// magnitude.
func (p NavMeshParams) Settings() navmesh.Settings {
	partition, _ := engine.ParsePartition(p.PartitionType)
	return navmesh.Settings{
		CellSize:             abs(p.CellSize),
		CellHeight:           abs(p.CellHeight),
		AgentHeight:          abs(p.AgentHeight),
		AgentRadius:          abs(p.AgentRadius),
		AgentMaxClimb:        abs(p.AgentMaxClimb),
		AgentMaxSlope:        abs(p.AgentMaxSlope),
		RegionMinSize:        abs(p.RegionMinSize),
		RegionMergeSize:      abs(p.RegionMergeSize),
		Partition:            partition,
		EdgeMaxLen:           abs(p.EdgeMaxLen),
		EdgeMaxError:         abs(p.EdgeMaxError),
		VertsPerPoly:         abs(p.VertsPerPoly),
		DetailSampleDist:     abs(p.DetailSampleDist),
		DetailSampleMaxError: abs(p.DetailSampleMaxError),
	}
}

func (p NavMeshParams) TileSettings() navmesh.TileSettings {
	return navmesh.TileSettings{
		BuildAllTiles:   p.BuildAllTiles,
		MaxTiles:        absInt(p.MaxTiles),
		MaxPolysPerTile: absInt(p.MaxPolysPerTile),
		TileSize:        abs(p.TileSize),
	}
}

// AreaTables returns the area flags and cost tables. Malformed entries
// are skipped.
func (p NavMeshParams) AreaTables() (flags map[int]uint16, costs map[int]float32) {
	flags = make(map[int]uint16, len(p.AreaFlagsCost))
	costs = make(map[int]float32, len(p.AreaFlagsCost))
	for _, s := range p.AreaFlagsCost {
		area, f, cost, ok := ParseAreaFlagsCost(s)
		if !ok {
			continue
		}
		flags[area] = f
		costs[area] = cost
	}
	return flags, costs
}

func (p NavMeshParams) IncludeFlags() uint16 {
	return ParseFlags(p.CrowdIncludeFlags, engine.FlagWalk)
}

func (p NavMeshParams) ExcludeFlags() uint16 {
	return ParseFlags(p.CrowdExcludeFlags, engine.FlagDisabled)
}

type Volume struct {
	Points []common.Vec3
	Area   int
}

func (p NavMeshParams) Volumes() []Volume {
	var out []Volume
	for _, s := range p.ConvexVolumes {
		if pts, area, ok := ParseConvexVolume(s); ok {
			out = append(out, Volume{Points: pts, Area: area})
		}
	}
	return out
}

type Connection struct {
	Points [2]common.Vec3
	Bidir  bool
}

func (p NavMeshParams) Connections() []Connection {
	var out []Connection
	for _, s := range p.OffMeshConnections {
		if pts, bidir, ok := ParseOffMeshConnection(s); ok {
			out = append(out, Connection{Points: pts, Bidir: bidir})
		}
	}
	return out
}

// Apply configures an unconfigured mesh from p and registers its
// volumes and connections.
func (p NavMeshParams) Apply(n *navmesh.NavMesh) error {
	v, err := p.Variant()
	if err != nil {
		return err
	}
	if err := n.SetMeshType(v); err != nil {
		return err
	}
	if err := n.SetTileSettings(p.TileSettings()); err != nil {
		return err
	}
	flags, costs := p.AreaTables()
	for area, f := range flags {
		if err := n.SetAreaFlags(area, f); err != nil {
			return err
		}
	}
	for area, cost := range costs {
		n.SetCrowdAreaCost(area, cost)
	}
	n.SetCrowdIncludeFlags(p.IncludeFlags())
	n.SetCrowdExcludeFlags(p.ExcludeFlags())
	if err := n.Configure(p.Settings()); err != nil {
		return err
	}
	for _, vol := range p.Volumes() {
		if _, err := n.AddConvexVolume(vol.Points, vol.Area); err != nil {
			return err
		}
	}
	for _, c := range p.Connections() {
		if _, err := n.AddOffMeshConnection(c.Points[:], c.Bidir); err != nil {
			return err
		}
	}
	return nil
}

// Params returns the crowd parameters. Radius and height are measured
// when the agent is bound.
func (a AgentParams) Params() navmesh.AgentParams {
	return navmesh.AgentParams{
		MaxAcceleration:       abs(a.MaxAcceleration),
		MaxSpeed:              abs(a.MaxSpeed),
		CollisionQueryRange:   abs(a.CollisionQueryRange),
		PathOptimizationRange: abs(a.PathOptimizationRange),
		SeparationWeight:      abs(a.SeparationWeight),
		UpdateFlags:           uint8(ParseFlags(a.UpdateFlags, 0)),
		ObstacleAvoidanceType: uint8(absInt(a.ObstacleAvoidanceType)),
	}
}

func (a AgentParams) Target() common.Vec3 { return ParseVec3(a.MoveTarget) }

func (a AgentParams) Velocity() common.Vec3 { return ParseVec3(a.MoveVelocity) }
