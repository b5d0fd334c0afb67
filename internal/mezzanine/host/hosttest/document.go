// Package hosttest provides in-memory host collaborators for tests.
package hosttest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"mezzanine/internal/common/units"
	"mezzanine/internal/mezzanine/host"
	"mezzanine/internal/mezzanine/models"
)

var ErrInjected = errors.New("injected failure")

// Element is a created entity as the fake stores it.
type Element struct {
	Handle            models.Handle
	Category          string
	TypeID            string
	LevelID           string
	Edge              models.Segment
	Loop              models.PlanarLoop
	UnconnectedHeight float64
	BaseOffset        float64
	Flags             models.WallFlags
	seq               int
}

// TxRecord describes one finished transaction.
type TxRecord struct {
	Name      string
	Committed bool
}

// Faults injects failures into the next transactions.
type Faults struct {
	// FailWallN makes the n-th CreateWall call (1-based) fail.
	FailWallN int
	// PanicWallN makes the n-th CreateWall call panic.
	PanicWallN int
	FailCommit bool
	FailBegin  bool
	FailLevels bool
	// FailBeginName makes Begin fail for transactions with this name only.
	FailBeginName string
}

type state struct {
	elements map[models.Handle]Element
	lengths  map[models.Handle]map[string]float64
	refs     map[models.Handle]map[string]string
}

func (s state) clone() state {
	out := state{
		elements: make(map[models.Handle]Element, len(s.elements)),
		lengths:  make(map[models.Handle]map[string]float64, len(s.lengths)),
		refs:     make(map[models.Handle]map[string]string, len(s.refs)),
	}
	for k, v := range s.elements {
		out.elements[k] = v
	}
	for k, v := range s.lengths {
		cp := make(map[string]float64, len(v))
		for kk, vv := range v {
			cp[kk] = vv
		}
		out.lengths[k] = cp
	}
	for k, v := range s.refs {
		cp := make(map[string]string, len(v))
		for kk, vv := range v {
			cp[kk] = vv
		}
		out.refs[k] = cp
	}
	return out
}

// Document is an in-memory host.Document.
type Document struct {
	mu         sync.Mutex
	levels     []models.Level
	floorTypes []models.FloorType
	wallTypes  []models.WallType
	committed  state
	seq        int
	walls      int
	active     bool

	Faults       Faults
	Transactions []TxRecord
}

func NewDocument(levels []models.Level, floorTypes []models.FloorType, wallTypes []models.WallType) *Document {
	return &Document{
		levels:     levels,
		floorTypes: floorTypes,
		wallTypes:  wallTypes,
		committed: state{
			elements: map[models.Handle]Element{},
			lengths:  map[models.Handle]map[string]float64{},
			refs:     map[models.Handle]map[string]string{},
		},
	}
}

// Standard returns a document with the usual construction types and the
// given levels, elevations in millimetres.
func Standard(levelsMM ...float64) *Document {
	var levels []models.Level
	for i, mm := range levelsMM {
		levels = append(levels, models.Level{
			ID:        fmt.Sprintf("level-%d", i+1),
			Name:      fmt.Sprintf("Level %d", i+1),
			Elevation: units.MustToInternal(mm, units.Millimeters),
		})
	}
	return NewDocument(levels,
		[]models.FloorType{
			{ID: "slab", Name: "Foundation Slab", IsFoundationSlab: true},
			{ID: "floor-150", Name: "Generic 150mm"},
		},
		[]models.WallType{
			{ID: "curtain", Name: "Curtain Wall", Kind: models.WallKindCurtain},
			{ID: "wall-200", Name: "Generic 200mm", Kind: models.WallKindBasic},
		},
	)
}

func (d *Document) Levels(ctx context.Context) ([]models.Level, error) {
	if d.Faults.FailLevels {
		return nil, ErrInjected
	}
	return append([]models.Level(nil), d.levels...), nil
}

func (d *Document) FloorTypes(ctx context.Context) ([]models.FloorType, error) {
	return append([]models.FloorType(nil), d.floorTypes...), nil
}

func (d *Document) WallTypes(ctx context.Context) ([]models.WallType, error) {
	return append([]models.WallType(nil), d.wallTypes...), nil
}

func (d *Document) ToInternalUnits(value float64, unit units.Unit) (float64, error) {
	return units.ToInternal(value, unit)
}

func (d *Document) Begin(ctx context.Context, name string) (host.Transaction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Faults.FailBegin || (d.Faults.FailBeginName != "" && d.Faults.FailBeginName == name) {
		return nil, ErrInjected
	}
	if d.active {
		return nil, fmt.Errorf("transaction %q: another transaction is open", name)
	}
	d.active = true
	return &Tx{doc: d, name: name, staged: d.committed.clone()}, nil
}

// Elements returns committed elements of a category in creation order.
func (d *Document) Elements(category string) []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Element
	for _, e := range d.committed.elements {
		if e.Category == category {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (d *Document) ElementCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.committed.elements)
}

func (d *Document) Length(h models.Handle, key string) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.committed.lengths[h][key]
	return v, ok
}

func (d *Document) Reference(h models.Handle, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.committed.refs[h][key]
	return v, ok
}

// ============================================================
// Transaction
// ============================================================

type Tx struct {
	doc    *Document
	name   string
	staged state
	done   bool
}

func (t *Tx) add(e Element) (models.Handle, error) {
	if t.done {
		return "", errors.New("transaction finished")
	}
	t.doc.mu.Lock()
	t.doc.seq++
	e.seq = t.doc.seq
	e.Handle = models.Handle(fmt.Sprintf("%s-%d", e.Category, t.doc.seq))
	t.doc.mu.Unlock()
	t.staged.elements[e.Handle] = e
	return e.Handle, nil
}

func (t *Tx) CreatePlatform(loop models.PlanarLoop, floorTypeID, levelID string) (models.Handle, error) {
	return t.add(Element{Category: models.CategoryFloor, TypeID: floorTypeID, LevelID: levelID, Loop: loop})
}

func (t *Tx) CreateWall(edge models.Segment, wallTypeID, levelID string, unconnectedHeight, baseOffset float64, flags models.WallFlags) (models.Handle, error) {
	t.doc.mu.Lock()
	t.doc.walls++
	n := t.doc.walls
	t.doc.mu.Unlock()
	if n == t.doc.Faults.PanicWallN {
		panic("wall kernel exploded")
	}
	if n == t.doc.Faults.FailWallN {
		return "", ErrInjected
	}
	return t.add(Element{
		Category:          models.CategoryWall,
		TypeID:            wallTypeID,
		LevelID:           levelID,
		Edge:              edge,
		UnconnectedHeight: unconnectedHeight,
		BaseOffset:        baseOffset,
		Flags:             flags,
	})
}

func (t *Tx) CreatePreviewLine(seg models.Segment) (models.Handle, error) {
	return t.add(Element{Category: models.CategoryPreview, Edge: seg})
}

func (t *Tx) SetLength(h models.Handle, key string, value float64) error {
	if _, ok := t.staged.elements[h]; !ok {
		return fmt.Errorf("element %s not found", h)
	}
	if t.staged.lengths[h] == nil {
		t.staged.lengths[h] = map[string]float64{}
	}
	t.staged.lengths[h][key] = value
	return nil
}

func (t *Tx) SetReference(h models.Handle, key, refID string) error {
	if _, ok := t.staged.elements[h]; !ok {
		return fmt.Errorf("element %s not found", h)
	}
	if t.staged.refs[h] == nil {
		t.staged.refs[h] = map[string]string{}
	}
	t.staged.refs[h][key] = refID
	return nil
}

func (t *Tx) DeleteEntities(handles []models.Handle) error {
	for _, h := range handles {
		delete(t.staged.elements, h)
		delete(t.staged.lengths, h)
		delete(t.staged.refs, h)
	}
	return nil
}

func (t *Tx) Commit() error {
	if t.done {
		return errors.New("transaction finished")
	}
	t.done = true
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	t.doc.active = false
	if t.doc.Faults.FailCommit {
		t.doc.Transactions = append(t.doc.Transactions, TxRecord{Name: t.name})
		return ErrInjected
	}
	t.doc.committed = t.staged
	t.doc.Transactions = append(t.doc.Transactions, TxRecord{Name: t.name, Committed: true})
	return nil
}

func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	t.doc.active = false
	t.doc.Transactions = append(t.doc.Transactions, TxRecord{Name: t.name})
	return nil
}
