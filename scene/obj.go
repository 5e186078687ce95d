package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/milk9111/navmesh/common"
)

// LoadOBJFile reads a Wavefront OBJ file into a new node named after the
// file.
func LoadOBJFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scene: open %s: %w", path, err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	n, err := LoadOBJ(f, name)
	if err != nil {
		return nil, fmt.Errorf("scene: load %s: %w", path, err)
	}
	return n, nil
}

// LoadOBJ reads vertices and faces; polygons are fan triangulated and
// everything else is ignored. When yUp is set the file is treated as
// Y-up and converted to the host Z-up convention.
func LoadOBJ(r io.Reader, name string, yUp ...bool) (*Node, error) {
	convert := len(yUp) > 0 && yUp[0]

	var verts []common.Vec3
	var tris []int

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", line)
			}
			var c [3]float32
			for i := range c {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				c[i] = float32(f)
			}
			v := common.V3(c[0], c[1], c[2])
			if convert {
				v = common.V3(c[0], -c[2], c[1])
			}
			verts = append(verts, v)
		case "f":
			face := make([]int, 0, len(fields)-1)
			for _, f := range fields[1:] {
				idx, err := parseFaceIndex(f, len(verts))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				face = append(face, idx)
			}
			for i := 2; i < len(face); i++ {
				tris = append(tris, face[0], face[i-1], face[i])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	n := NewNode(name)
	if err := n.SetGeometry(verts, tris); err != nil {
		return nil, err
	}
	return n, nil
}

func parseFaceIndex(field string, nverts int) (int, error) {
	if slash := strings.IndexByte(field, '/'); slash >= 0 {
		field = field[:slash]
	}
	i, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	switch {
	case i < 0:
		i = nverts + i
	case i > 0:
		i--
	default:
		return 0, fmt.Errorf("face index 0 is invalid")
	}
	if i < 0 || i >= nverts {
		return 0, fmt.Errorf("face index %s out of range", field)
	}
	return i, nil
}

// Plane builds a flat quad grid of size x size on the
// Z=0 host plane, centered on the origin, split into cells quads per side.
func Plane(name string, size float32, cells int) *Node {
	if cells < 1 {
		cells = 1
	}
	step := size / float32(cells)
	half := size / 2
	verts := make([]common.Vec3, 0, (cells+1)*(cells+1))
	for j := 0; j <= cells; j++ {
		for i := 0; i <= cells; i++ {
			verts = append(verts, common.V3(-half+float32(i)*step, -half+float32(j)*step, 0))
		}
	}
	tris := make([]int, 0, cells*cells*6)
	row := cells + 1
	for j := 0; j < cells; j++ {
		for i := 0; i < cells; i++ {
			a := j*row + i
			tris = append(tris, a, a+1, a+row+1, a, a+row+1, a+row)
		}
	}
	n := NewNode(name)
	n.verts = verts
	n.tris = tris
	return n
}

// Box builds an axis aligned box geometry with the given dimensions whose
// base is centered on n's origin.
func Box(name string, dx, dy, dz float32) *Node {
	x, y := dx/2, dy/2
	verts := []common.Vec3{
		{X: -x, Y: -y, Z: 0}, {X: x, Y: -y, Z: 0}, {X: x, Y: y, Z: 0}, {X: -x, Y: y, Z: 0},
		{X: -x, Y: -y, Z: dz}, {X: x, Y: -y, Z: dz}, {X: x, Y: y, Z: dz}, {X: -x, Y: y, Z: dz},
	}
	tris := []int{
		0, 2, 1, 0, 3, 2,
		4, 5, 6, 4, 6, 7,
		0, 1, 5, 0, 5, 4,
		1, 2, 6, 1, 6, 5,
		2, 3, 7, 2, 7, 6,
		3, 0, 4, 3, 4, 7,
	}
	n := NewNode(name)
	n.verts = verts
	n.tris = tris
	return n
}
