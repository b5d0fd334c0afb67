package models

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

func PointFromVec(v r3.Vec) Point {
	return Point{X: v.X, Y: v.Y, Z: v.Z}
}

// Distance returns the euclidean distance between two points.
func Distance(a, b Point) float64 {
	return r3.Norm(r3.Sub(a.Vec(), b.Vec()))
}

type Segment struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

func (s Segment) Length() float64 {
	return Distance(s.Start, s.End)
}

// PlanarLoop is a closed chain of segments lying at a single elevation.
type PlanarLoop struct {
	Segments  []Segment `json:"segments"`
	Elevation float64   `json:"elevation"`
}

// Vertices returns the start point of every segment in loop order.
func (l PlanarLoop) Vertices() []Point {
	out := make([]Point, 0, len(l.Segments))
	for _, s := range l.Segments {
		out = append(out, s.Start)
	}
	return out
}

// ============================================================
// Host model entities
// ============================================================

type Level struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Elevation float64 `json:"elevation"`
}

type FloorType struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	IsFoundationSlab bool   `json:"is_foundation_slab"`
}

type WallKind string

const (
	WallKindBasic   WallKind = "basic"
	WallKindCurtain WallKind = "curtain"
	WallKindStacked WallKind = "stacked"
)

type WallType struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Kind WallKind `json:"kind"`
}

// Handle identifies an element created in the host model.
type Handle string

type WallFlags struct {
	Flip       bool `json:"flip"`
	Structural bool `json:"structural"`
}

// Element parameter keys.
const (
	ParamFloorHeightOffset     = "floor_height_offset"
	ParamWallBaseOffset        = "wall_base_offset"
	ParamWallUnconnectedHeight = "wall_unconnected_height"
	ParamWallTopConstraint     = "wall_top_constraint"
	ParamWallTopOffset         = "wall_top_offset"
)

// Element categories.
const (
	CategoryFloor   = "floor"
	CategoryWall    = "wall"
	CategoryPreview = "preview_line"
)

// ============================================================
// Pipeline results
// ============================================================

// ElevationContext bounds the generated structure vertically. Top is nil
// when no level lies above Base.
type ElevationContext struct {
	Base Level  `json:"base"`
	Top  *Level `json:"top,omitempty"`
}

type GeneratedStructure struct {
	Platform Handle   `json:"platform"`
	Walls    []Handle `json:"walls"`
}
