package scene

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Renderer
// ============================================================

// margin around the drawing, in scene units.
const margin = 100

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render рисует один слой сцены в SVG. Пустой layerID означает выбранный слой.
func (r *Renderer) Render(s *Scene, layerID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("scene is nil")
	}

	layer, err := r.pickLayer(s, layerID)
	if err != nil {
		return "", err
	}

	minX, minY, width, height := r.layerBounds(layer)

	var elements []string
	elements = append(elements, r.renderAreas(layer)...)
	elements = append(elements, r.renderLines(layer)...)

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="%s %s %s %s">`,
		formatFloat(width), formatFloat(height),
		formatFloat(minX), formatFloat(minY), formatFloat(width), formatFloat(height)))
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf(`  <title>%s</title>`, escape(layer.Name)))
	builder.WriteString("\n")

	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// ============================================================
// Layer selection & sizing
// ============================================================

func (r *Renderer) pickLayer(s *Scene, layerID string) (Layer, error) {
	if len(s.Layers) == 0 {
		return Layer{}, fmt.Errorf("scene has no layers")
	}

	if layerID != "" {
		layer, ok := s.Layers[layerID]
		if !ok {
			return Layer{}, fmt.Errorf("layer %q not found", layerID)
		}
		return layer, nil
	}

	if s.SelectedLayer != "" {
		if layer, ok := s.Layers[s.SelectedLayer]; ok {
			return layer, nil
		}
	}

	return s.Layers[sortedKeys(s.Layers)[0]], nil
}

func (r *Renderer) layerBounds(layer Layer) (minX, minY, width, height float64) {
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64

	for _, v := range layer.Vertices {
		minX = math.Min(minX, v.X)
		maxX = math.Max(maxX, v.X)
		minY = math.Min(minY, v.Y)
		maxY = math.Max(maxY, v.Y)
	}

	if minX == math.MaxFloat64 {
		return 0, 0, 1000, 1000
	}

	return minX - margin, minY - margin, maxX - minX + 2*margin, maxY - minY + 2*margin
}

// ============================================================
// Element renderers
// ============================================================

func (r *Renderer) renderLines(layer Layer) []string {
	var out []string

	for _, id := range sortedKeys(layer.Lines) {
		line := layer.Lines[id]
		if len(line.Vertices) < 2 {
			continue
		}

		v1, ok1 := layer.Vertices[line.Vertices[0]]
		v2, ok2 := layer.Vertices[line.Vertices[1]]
		if !ok1 || !ok2 {
			continue
		}

		style := fmt.Sprintf(`stroke="#000" stroke-width="20" data-height="%s"`,
			formatFloat(lengthFromProperties(line.Properties, "height", 0)))
		if line.Type == TypePreview {
			style = `stroke="#d62728" stroke-width="5" stroke-dasharray="40 20"`
		}

		out = append(out, fmt.Sprintf(`<line id="%s" class="%s" x1="%s" y1="%s" x2="%s" y2="%s" %s />`,
			escape(line.ID), line.Type,
			formatFloat(v1.X), formatFloat(v1.Y), formatFloat(v2.X), formatFloat(v2.Y), style))
	}

	return out
}

func (r *Renderer) renderAreas(layer Layer) []string {
	var out []string

	for _, id := range sortedKeys(layer.Areas) {
		area := layer.Areas[id]
		points := r.collectAreaPoints(area, layer.Vertices)
		if len(points) < 3 {
			continue
		}

		var path strings.Builder
		path.WriteString(`<path id="`)
		path.WriteString(escape(area.ID))
		path.WriteString(`" class="`)
		path.WriteString(area.Type)
		path.WriteString(`" d="M `)
		path.WriteString(formatPoint(points[0]))
		for _, p := range points[1:] {
			path.WriteString(" L ")
			path.WriteString(formatPoint(p))
		}
		path.WriteString(` Z" fill="#dddddd" stroke="#888" />`)

		out = append(out, path.String())
	}

	return out
}

// ============================================================
// Geometry helpers
// ============================================================

func (r *Renderer) collectAreaPoints(area Area, vertices map[string]Vertex) []Point {
	var points []Point

	for _, id := range area.Vertices {
		if v, ok := vertices[id]; ok {
			points = append(points, Point{X: v.X, Y: v.Y})
		}
	}

	if len(points) > 1 {
		first := points[0]
		last := points[len(points)-1]
		if first.X == last.X && first.Y == last.Y {
			points = points[:len(points)-1]
		}
	}

	return points
}

// ============================================================
// Formatting helpers
// ============================================================

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lengthFromProperties reads a length stored either as a bare number or as
// {"length": n}.
func lengthFromProperties(props map[string]any, key string, def float64) float64 {
	if props == nil {
		return def
	}

	if raw, ok := props[key]; ok {
		switch v := raw.(type) {
		case float64:
			return v
		case map[string]any:
			if val, ok := v["length"]; ok {
				if f, ok := val.(float64); ok {
					return f
				}
			}
		}
	}
	return def
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}

func formatPoint(p Point) string {
	return formatFloat(p.X) + " " + formatFloat(p.Y)
}
