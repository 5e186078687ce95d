package engine

import "fmt"

// Variant selects the mesh flavour an engine builds.
type Variant uint8

const (
	VariantSolo Variant = iota
	VariantTile
	VariantObstacle
)

func (v Variant) String() string {
	switch v {
	case VariantSolo:
		return "solo"
	case VariantTile:
		return "tile"
	case VariantObstacle:
		return "obstacle"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// Tiled reports whether the variant partitions the mesh into tiles.
func (v Variant) Tiled() bool {
	return v == VariantTile || v == VariantObstacle
}

func ParseVariant(s string) (Variant, error) {
	switch s {
	case "solo", "":
		return VariantSolo, nil
	case "tile":
		return VariantTile, nil
	case "obstacle", "obstacles":
		return VariantObstacle, nil
	default:
		return VariantSolo, fmt.Errorf("engine: unknown mesh type %q", s)
	}
}

type Partition uint8

const (
	PartitionWatershed Partition = iota
	PartitionMonotone
	PartitionLayers
)

func (p Partition) String() string {
	switch p {
	case PartitionWatershed:
		return "watershed"
	case PartitionMonotone:
		return "monotone"
	case PartitionLayers:
		return "layers"
	default:
		return fmt.Sprintf("partition(%d)", uint8(p))
	}
}

func ParsePartition(s string) (Partition, error) {
	switch s {
	case "watershed", "":
		return PartitionWatershed, nil
	case "monotone":
		return PartitionMonotone, nil
	case "layers", "layer":
		return PartitionLayers, nil
	default:
		return PartitionWatershed, fmt.Errorf("engine: unknown partition %q", s)
	}
}

// Config carries everything an engine needs to build. Tile fields are
// ignored by the solo variant.
type Config struct {
	CellSize             float32
	CellHeight           float32
	AgentHeight          float32
	AgentRadius          float32
	AgentMaxClimb        float32
	AgentMaxSlope        float32
	RegionMinSize        float32
	RegionMergeSize      float32
	Partition            Partition
	EdgeMaxLen           float32
	EdgeMaxError         float32
	VertsPerPoly         float32
	DetailSampleDist     float32
	DetailSampleMaxError float32

	TileSize        float32
	MaxTiles        int
	MaxPolysPerTile int
	BuildAllTiles   bool
}

func (c Config) Validate() error {
	switch {
	case c.CellSize <= 0:
		return fmt.Errorf("engine: cell size must be positive, got %g", c.CellSize)
	case c.CellHeight <= 0:
		return fmt.Errorf("engine: cell height must be positive, got %g", c.CellHeight)
	case c.AgentHeight < 0 || c.AgentRadius < 0 || c.AgentMaxClimb < 0:
		return fmt.Errorf("engine: agent dimensions must not be negative")
	case c.AgentMaxSlope < 0 || c.AgentMaxSlope >= 90:
		return fmt.Errorf("engine: agent max slope must be in [0, 90), got %g", c.AgentMaxSlope)
	}
	return nil
}
