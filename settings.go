package navmesh

import (
	"github.com/milk9111/navmesh/engine"
)

// Settings are the build parameters of a mesh. Lengths are in world
// units, the slope in degrees.
type Settings struct {
	CellSize             float32
	CellHeight           float32
	AgentHeight          float32
	AgentRadius          float32
	AgentMaxClimb        float32
	AgentMaxSlope        float32
	RegionMinSize        float32
	RegionMergeSize      float32
	Partition            engine.Partition
	EdgeMaxLen           float32
	EdgeMaxError         float32
	VertsPerPoly         float32
	DetailSampleDist     float32
	DetailSampleMaxError float32
}

func DefaultSettings() Settings {
	return Settings{
		CellSize:             0.3,
		CellHeight:           0.2,
		AgentHeight:          2.0,
		AgentRadius:          0.6,
		AgentMaxClimb:        0.9,
		AgentMaxSlope:        45,
		RegionMinSize:        8,
		RegionMergeSize:      20,
		Partition:            engine.PartitionWatershed,
		EdgeMaxLen:           12,
		EdgeMaxError:         1.3,
		VertsPerPoly:         6,
		DetailSampleDist:     6,
		DetailSampleMaxError: 1,
	}
}

// TileSettings apply to the tile and obstacle variants only. The obstacle
// variant derives MaxTiles and MaxPolysPerTile at build time.
type TileSettings struct {
	BuildAllTiles   bool
	MaxTiles        int
	MaxPolysPerTile int
	TileSize        float32
}

func DefaultTileSettings() TileSettings {
	return TileSettings{
		BuildAllTiles:   false,
		MaxTiles:        128,
		MaxPolysPerTile: 32768,
		TileSize:        32,
	}
}

// VolumeSettings describe a convex volume. Ref is zero for a volume that
// was not found.
type VolumeSettings struct {
	Area  int
	Flags uint16
	Ref   int
}

// ConnectionSettings describe an off-mesh connection. Ref is zero for a
// connection that was not found.
type ConnectionSettings struct {
	Radius float32
	Bidir  bool
	UserID int
	Area   int
	Flags  uint16
	Ref    int
}

// AgentParams are the crowd parameters of an agent. Radius and Height
// are measured from the agent's geometry when it is bound.
type AgentParams = engine.AgentParams

func DefaultAgentParams() AgentParams {
	return AgentParams{
		MaxAcceleration:       8,
		MaxSpeed:              3.5,
		CollisionQueryRange:   12,
		PathOptimizationRange: 30,
		SeparationWeight:      2,
		UpdateFlags:           0x1b,
		ObstacleAvoidanceType: 3,
	}
}

// Default crowd filter masks: everything but DISABLED is walkable.
const (
	DefaultIncludeFlags = engine.FlagAll ^ engine.FlagDisabled
	DefaultExcludeFlags = engine.FlagDisabled
)

func engineConfig(s Settings, ts TileSettings) engine.Config {
	return engine.Config{
		CellSize:             s.CellSize,
		CellHeight:           s.CellHeight,
		AgentHeight:          s.AgentHeight,
		AgentRadius:          s.AgentRadius,
		AgentMaxClimb:        s.AgentMaxClimb,
		AgentMaxSlope:        s.AgentMaxSlope,
		RegionMinSize:        s.RegionMinSize,
		RegionMergeSize:      s.RegionMergeSize,
		Partition:            s.Partition,
		EdgeMaxLen:           s.EdgeMaxLen,
		EdgeMaxError:         s.EdgeMaxError,
		VertsPerPoly:         s.VertsPerPoly,
		DetailSampleDist:     s.DetailSampleDist,
		DetailSampleMaxError: s.DetailSampleMaxError,
		TileSize:             ts.TileSize,
		MaxTiles:             ts.MaxTiles,
		MaxPolysPerTile:      ts.MaxPolysPerTile,
		BuildAllTiles:        ts.BuildAllTiles,
	}
}
