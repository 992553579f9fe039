package grid

import (
	"fmt"
	"strings"
)

// Axis identifies one of the three spatial dimensions.
type Axis int

const (
	AxisX Axis = iota // horizontal, building length
	AxisY             // vertical, depth below grade
	AxisZ             // horizontal, building width
)

// Axes lists the axes in storage order.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Valid reports whether a is one of AxisX, AxisY, AxisZ.
func (a Axis) Valid() bool {
	return a >= AxisX && a <= AxisZ
}

// Horizontal reports whether the axis lies in the foundation plane.
func (a Axis) Horizontal() bool {
	return a == AxisX || a == AxisZ
}

// Other returns the other horizontal axis: X for Z and Z for X.
// AxisY is returned unchanged.
func (a Axis) Other() Axis {
	switch a {
	case AxisX:
		return AxisZ
	case AxisZ:
		return AxisX
	default:
		return a
	}
}

// ParseAxis accepts "x", "y", "z" in any case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("grid: invalid axis %q, expected x, y, or z", s)
}

// Vec3 is a world-space triple indexed by Axis.
type Vec3 struct {
	X, Y, Z float64
}

// Get returns the component along a.
func (v Vec3) Get(a Axis) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// With returns a copy of v with the component along a replaced.
func (v Vec3) With(a Axis, f float64) Vec3 {
	switch a {
	case AxisX:
		v.X = f
	case AxisY:
		v.Y = f
	default:
		v.Z = f
	}
	return v
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// AxisIndex addresses one grid line of the working grid. It is the key of
// the Remap table.
type AxisIndex struct {
	Axis  Axis
	Index int
}

func (k AxisIndex) String() string {
	return fmt.Sprintf("%s%d", k.Axis, k.Index)
}
