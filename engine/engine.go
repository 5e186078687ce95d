// Package engine is the contract between the navigation mesh registry and
// the mesh engine that builds and queries the walkable surface. All
// coordinates crossing it are Y up.
package engine

import (
	"errors"

	"github.com/milk9111/navmesh/common"
)

// PolyRef identifies a polygon of a built mesh. Zero is never valid.
type PolyRef uint32

// ObstacleRef identifies an obstacle in a tile cache. Zero is never valid.
type ObstacleRef uint32

var (
	ErrNotBuilt     = errors.New("engine: mesh not built")
	ErrInvalidParam = errors.New("engine: invalid parameter")
	ErrBufferFull   = errors.New("engine: request buffer full")
)

// Mesh owns one walkable surface. Load and SetConfig come before Build;
// features are added to the loaded InputGeom.
type Mesh interface {
	Variant() Variant
	Load(geom *InputGeom) error
	Geom() *InputGeom
	SetConfig(cfg Config)
	Config() Config
	SetAreaFlags(table map[int]uint16)
	Build() error
	Query() Query
	NewCrowd(maxAgents int, maxAgentRadius float32) (Crowd, error)
	// TileCache is nil unless the variant is VariantObstacle.
	TileCache() TileCache
	// Tiler is nil unless the variant is VariantTile.
	Tiler() Tiler
	Close()
}

// Factory creates an unbuilt mesh of the given variant.
type Factory func(v Variant) (Mesh, error)

type StraightPoint struct {
	Pos       common.Vec3
	Flags     uint8
	Ref       PolyRef
	Area      int
	PolyFlags uint16
}

type RaycastHit struct {
	// T is the hit parameter along start..end, or math.MaxFloat32 when
	// the ray reaches the end.
	T      float32
	Normal common.Vec3
	Path   []PolyRef
}

type Query interface {
	FindNearestPoly(center, extents common.Vec3, filter *Filter) (PolyRef, common.Vec3, error)
	FindPolysAroundShape(start PolyRef, shape []common.Vec3, filter *Filter) ([]PolyRef, error)
	IsValidPolyRef(ref PolyRef, filter *Filter) bool
	PolyArea(ref PolyRef) (int, error)
	SetPolyArea(ref PolyRef, area int) error
	PolyFlags(ref PolyRef) (uint16, error)
	SetPolyFlags(ref PolyRef, flags uint16) error
	ClosestPointOnPoly(ref PolyRef, pos common.Vec3) (common.Vec3, error)
	FindPath(startRef, endRef PolyRef, startPos, endPos common.Vec3, filter *Filter) ([]PolyRef, error)
	FindStraightPath(startPos, endPos common.Vec3, path []PolyRef, opts StraightOptions) ([]StraightPoint, error)
	Raycast(startRef PolyRef, startPos, endPos common.Vec3, filter *Filter) (RaycastHit, error)
	FindDistanceToWall(startRef PolyRef, pos common.Vec3, maxRadius float32, filter *Filter) (float32, common.Vec3, error)
	// OffMeshConnectionPoly returns the polygon built for the i-th
	// off-mesh connection of the loaded geometry.
	OffMeshConnectionPoly(i int) (PolyRef, error)
}

type AgentParams struct {
	Radius                float32
	Height                float32
	MaxAcceleration       float32
	MaxSpeed              float32
	CollisionQueryRange   float32
	PathOptimizationRange float32
	SeparationWeight      float32
	UpdateFlags           uint8
	ObstacleAvoidanceType uint8
}

type AgentState struct {
	Pos    common.Vec3
	Vel    common.Vec3
	Active bool
}

// Crowd simulates agents over a built mesh. Agent bodies take the mesh
// agent radius current at insertion.
type Crowd interface {
	Filter() *Filter
	AddAgent(pos common.Vec3, params AgentParams) int
	RemoveAgent(idx int)
	UpdateAgentParams(idx int, params AgentParams) error
	SetMoveTarget(idx int, pos common.Vec3) error
	SetMoveVelocity(idx int, vel common.Vec3) error
	Update(dt float32)
	Agent(idx int) (AgentState, bool)
	AgentCount() int
}

// TileCache stores runtime obstacles. Changes are queued and committed
// over repeated Update calls, one touched tile per call.
type TileCache interface {
	TilePos(pos common.Vec3) (tx, tz int)
	AddObstacle(pos common.Vec3, radius, height float32) (ObstacleRef, error)
	RemoveObstacle(ref ObstacleRef) error
	Update(dt float32) (upToDate bool, err error)
	ObstacleCount() int
}

// Tiler builds and removes individual tiles of a tiled mesh.
type Tiler interface {
	TilePos(pos common.Vec3) (tx, tz int)
	BuildTile(pos common.Vec3) error
	RemoveTile(pos common.Vec3) error
	BuildAllTiles() error
	RemoveAllTiles()
}
