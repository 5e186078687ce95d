package config

import (
	"strconv"
	"strings"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

// split breaks a compound value on sep. An empty value has no parts.
func split(s string, sep string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func parseInt(s string) (int, bool) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

func parseFloat(s string) (float32, bool) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, false
	}
	return float32(v), true
}

// ParseFlags ors together the ':' separated flags of s. Empty entries
// stand for def, as does an empty s. Entries that are not numbers are
// skipped.
func ParseFlags(s string, def uint16) uint16 {
	parts := split(s, ":")
	if len(parts) == 0 {
		return def
	}
	var flags uint16
	for _, p := range parts {
		if p == "" {
			flags |= def
			continue
		}
		if v, ok := parseInt(p); ok {
			flags |= uint16(v)
		}
	}
	return flags
}

// ParseAreaFlagsCost parses "area@flag:flag...@cost". The area defaults
// to ground, missing flags to WALK and a non-positive cost to 1.
func ParseAreaFlagsCost(s string) (area int, flags uint16, cost float32, ok bool) {
	parts := split(s, "@")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	area = engine.AreaGround
	if parts[0] != "" {
		if area, ok = parseInt(parts[0]); !ok || area < 0 || area >= engine.MaxAreas {
			return 0, 0, 0, false
		}
	}
	flags = ParseFlags(parts[1], engine.FlagWalk)
	cost, _ = parseFloat(parts[2])
	if cost <= 0 {
		cost = 1
	}
	return area, flags, cost, true
}

// ParseVec3 parses "x,y,z". Missing or malformed components are zero.
func ParseVec3(s string) common.Vec3 {
	var xyz [3]float32
	for i, p := range split(s, ",") {
		if i == len(xyz) {
			break
		}
		xyz[i], _ = parseFloat(p)
	}
	return common.V3(xyz[0], xyz[1], xyz[2])
}

// ParseConvexVolume parses "x,y,z:x,y,z...@area". The area defaults to
// ground.
func ParseConvexVolume(s string) (points []common.Vec3, area int, ok bool) {
	parts := split(s, "@")
	if len(parts) < 2 || parts[0] == "" {
		return nil, 0, false
	}
	area = engine.AreaGround
	if parts[1] != "" {
		if area, ok = parseInt(parts[1]); !ok {
			return nil, 0, false
		}
	}
	for _, p := range split(parts[0], ":") {
		points = append(points, ParseVec3(p))
	}
	return points, area, true
}

// ParseOffMeshConnection parses "x,y,z:x,y,z@bidir". Links are
// bidirectional unless bidir is "false"; a missing end point is the
// origin.
func ParseOffMeshConnection(s string) (points [2]common.Vec3, bidir bool, ok bool) {
	parts := split(s, "@")
	if len(parts) < 2 || parts[0] == "" {
		return points, false, false
	}
	for i, p := range split(parts[0], ":") {
		if i == len(points) {
			break
		}
		points[i] = ParseVec3(p)
	}
	return points, parts[1] != "false", true
}
