package engine

// Area ids of the default area table.
const (
	AreaGround = 0
	AreaWater  = 1
	AreaRoad   = 2
	AreaDoor   = 3
	AreaGrass  = 4
	AreaJump   = 5
)

// MaxAreas bounds the area ids a polygon can carry.
const MaxAreas = 64

// Ability flags carried by polygons and matched by query filters.
const (
	FlagWalk     uint16 = 0x01
	FlagSwim     uint16 = 0x02
	FlagDoor     uint16 = 0x04
	FlagJump     uint16 = 0x08
	FlagDisabled uint16 = 0x10
	FlagAll      uint16 = 0xffff
)

// DefaultAreaFlags is the area to ability table used when none is set.
func DefaultAreaFlags() map[int]uint16 {
	return map[int]uint16{
		AreaGround: FlagWalk,
		AreaWater:  FlagSwim,
		AreaRoad:   FlagWalk,
		AreaDoor:   FlagWalk | FlagDoor,
		AreaGrass:  FlagWalk,
		AreaJump:   FlagJump,
	}
}

// DefaultAreaCosts is the area to traversal cost table used when none is set.
func DefaultAreaCosts() map[int]float32 {
	return map[int]float32{
		AreaGround: 1,
		AreaWater:  10,
		AreaRoad:   1,
		AreaDoor:   1,
		AreaGrass:  2,
		AreaJump:   1.5,
	}
}

// Vertex flags of a straight path point.
const (
	StraightPathStart   uint8 = 0x01
	StraightPathEnd     uint8 = 0x02
	StraightPathOffMesh uint8 = 0x04
)

// StraightOptions selects which polygon crossings add straight path
// points.
type StraightOptions int

const (
	StraightNone StraightOptions = iota
	StraightAreaCrossings
	StraightAllCrossings
)

func (o StraightOptions) String() string {
	switch o {
	case StraightNone:
		return "none"
	case StraightAreaCrossings:
		return "area_crossings"
	case StraightAllCrossings:
		return "all_crossings"
	default:
		return "unknown"
	}
}
