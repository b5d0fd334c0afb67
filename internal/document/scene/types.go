package scene

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ============================================================
// Planner scene
// ============================================================

type Vertex struct {
	ID    string   `json:"id"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Lines []string `json:"lines"`
	Areas []string `json:"areas"`
}

// Line is a wall or a preview segment between two vertices.
type Line struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	TypeID     string         `json:"type_id,omitempty"`
	Vertices   []string       `json:"vertices"`
	Properties map[string]any `json:"properties"`
}

// Area is a platform outline.
type Area struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	TypeID     string         `json:"type_id,omitempty"`
	Vertices   []string       `json:"vertices"`
	Properties map[string]any `json:"properties"`
}

type Layer struct {
	ID       string            `json:"id"`
	Altitude float64           `json:"altitude"`
	Order    int               `json:"order"`
	Name     string            `json:"name"`
	Visible  bool              `json:"visible"`
	Vertices map[string]Vertex `json:"vertices"`
	Lines    map[string]Line   `json:"lines"`
	Areas    map[string]Area   `json:"areas"`
}

type Scene struct {
	Unit          string           `json:"unit"`
	Layers        map[string]Layer `json:"layers"`
	SelectedLayer string           `json:"selectedLayer"`
	Width         float64          `json:"width"`
	Height        float64          `json:"height"`
}
