package scene

import (
	"fmt"
	"sort"

	"mezzanine/internal/common/units"
	"mezzanine/internal/document/repository"
	"mezzanine/internal/mezzanine/models"
)

// SketchLayerID holds preview lines, which belong to no level.
const SketchLayerID = "sketch"

const (
	TypeWall     = "wall"
	TypePreview  = "preview"
	TypePlatform = "platform"
)

// ============================================================
// Builder
// ============================================================

// Build converts the stored model into a planner scene in millimetres.
// Every level gets a layer, ordered by elevation.
func Build(levels []models.Level, elements []repository.Element) (*Scene, error) {
	sorted := append([]models.Level(nil), levels...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Elevation < sorted[j].Elevation
	})

	s := &Scene{
		Unit:   string(units.Millimeters),
		Layers: make(map[string]Layer, len(sorted)),
	}

	builders := make(map[string]*layerBuilder, len(sorted))
	for i, l := range sorted {
		altitude, err := units.FromInternal(l.Elevation, units.Millimeters)
		if err != nil {
			return nil, err
		}
		builders[l.ID] = newLayerBuilder(Layer{
			ID:       l.ID,
			Name:     l.Name,
			Altitude: altitude,
			Order:    i,
			Visible:  true,
		})
	}
	if len(sorted) > 0 {
		s.SelectedLayer = sorted[0].ID
	}

	for _, e := range elements {
		switch e.Category {
		case models.CategoryFloor:
			b, ok := builders[e.LevelID]
			if !ok || e.Loop == nil {
				continue
			}
			b.addArea(e)
		case models.CategoryWall:
			b, ok := builders[e.LevelID]
			if !ok || e.Edge == nil {
				continue
			}
			b.addLine(TypeWall, e)
		case models.CategoryPreview:
			if e.Edge == nil {
				continue
			}
			b, ok := builders[SketchLayerID]
			if !ok {
				altitude := toMM(e.Edge.Start.Z)
				b = newLayerBuilder(Layer{
					ID:       SketchLayerID,
					Name:     "Sketch",
					Altitude: altitude,
					Order:    len(sorted),
					Visible:  true,
				})
				builders[SketchLayerID] = b
			}
			b.addLine(TypePreview, e)
		default:
			return nil, fmt.Errorf("element %s: unknown category %q", e.ID, e.Category)
		}
	}

	for id, b := range builders {
		s.Layers[id] = b.layer
	}
	s.Width, s.Height = extent(s)
	return s, nil
}

type layerBuilder struct {
	layer    Layer
	byCoords map[string]string
}

func newLayerBuilder(l Layer) *layerBuilder {
	l.Vertices = map[string]Vertex{}
	l.Lines = map[string]Line{}
	l.Areas = map[string]Area{}
	return &layerBuilder{layer: l, byCoords: map[string]string{}}
}

// vertex returns the id of the vertex at p, creating it when needed.
// Coincident endpoints share one vertex.
func (b *layerBuilder) vertex(p models.Point) string {
	x, y := toMM(p.X), toMM(p.Y)
	key := formatFloat(x) + "," + formatFloat(y)
	if id, ok := b.byCoords[key]; ok {
		return id
	}
	id := fmt.Sprintf("%s-v%d", b.layer.ID, len(b.byCoords)+1)
	b.byCoords[key] = id
	b.layer.Vertices[id] = Vertex{ID: id, X: x, Y: y, Lines: []string{}, Areas: []string{}}
	return id
}

func (b *layerBuilder) addLine(typ string, e repository.Element) {
	id := string(e.ID)
	v1 := b.vertex(e.Edge.Start)
	v2 := b.vertex(e.Edge.End)
	for _, v := range []string{v1, v2} {
		vx := b.layer.Vertices[v]
		vx.Lines = append(vx.Lines, id)
		b.layer.Vertices[v] = vx
	}

	props := map[string]any{}
	if typ == TypeWall {
		if h, ok := e.Lengths[models.ParamWallUnconnectedHeight]; ok {
			props["height"] = lengthValue(h)
		}
		if off, ok := e.Lengths[models.ParamWallBaseOffset]; ok {
			props["base_offset"] = lengthValue(off)
		}
		if top, ok := e.Refs[models.ParamWallTopConstraint]; ok {
			props["top_constraint"] = top
			props["top_offset"] = lengthValue(e.Lengths[models.ParamWallTopOffset])
		}
		props["structural"] = e.Flags.Structural
		props["flipped"] = e.Flags.Flip
	}

	b.layer.Lines[id] = Line{
		ID:         id,
		Type:       typ,
		TypeID:     e.TypeID,
		Vertices:   []string{v1, v2},
		Properties: props,
	}
}

func (b *layerBuilder) addArea(e repository.Element) {
	id := string(e.ID)
	var ids []string
	for _, p := range e.Loop.Vertices() {
		v := b.vertex(p)
		vx := b.layer.Vertices[v]
		vx.Areas = append(vx.Areas, id)
		b.layer.Vertices[v] = vx
		ids = append(ids, v)
	}

	props := map[string]any{}
	if off, ok := e.Lengths[models.ParamFloorHeightOffset]; ok {
		props["height_offset"] = lengthValue(off)
	}

	b.layer.Areas[id] = Area{
		ID:         id,
		Type:       TypePlatform,
		TypeID:     e.TypeID,
		Vertices:   ids,
		Properties: props,
	}
}

// ============================================================
// Helpers
// ============================================================

func toMM(ft float64) float64 {
	v, _ := units.FromInternal(ft, units.Millimeters)
	return v
}

func lengthValue(ft float64) map[string]any {
	return map[string]any{"length": toMM(ft), "unit": string(units.Millimeters)}
}

func extent(s *Scene) (float64, float64) {
	var maxX, maxY float64
	for _, l := range s.Layers {
		for _, v := range l.Vertices {
			if v.X > maxX {
				maxX = v.X
			}
			if v.Y > maxY {
				maxY = v.Y
			}
		}
	}
	return maxX, maxY
}
