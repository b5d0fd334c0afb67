package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mezzanine/internal/common/units"
	"mezzanine/internal/mezzanine/host"
	"mezzanine/internal/mezzanine/models"
)

// ============================================================
// SQLite Document
// ============================================================

//go:embed migrations/001_init_document.sql
var initSchema string

var ErrNotFound = errors.New("not found")

// Document is the building model stored in SQLite. It implements
// host.Document.
type Document struct {
	db *sql.DB
}

var _ host.Document = (*Document)(nil)

func New(db *sql.DB) *Document {
	return &Document{db: db}
}

// Init применяет схему и заполняет пустую модель уровнями и типами.
func (d *Document) Init(ctx context.Context, seedPath string) error {
	if err := d.runMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return d.ensureSeed(ctx, seedPath)
}

func (d *Document) Levels(ctx context.Context) ([]models.Level, error) {
	rows, err := d.db.QueryContext(ctx, `
        SELECT id, name, elevation
        FROM levels
        ORDER BY elevation, name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Level
	for rows.Next() {
		var l models.Level
		if err := rows.Scan(&l.ID, &l.Name, &l.Elevation); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (d *Document) Level(ctx context.Context, id string) (models.Level, error) {
	row := d.db.QueryRowContext(ctx, `
        SELECT id, name, elevation
        FROM levels
        WHERE id = ?
    `, id)

	var l models.Level
	if err := row.Scan(&l.ID, &l.Name, &l.Elevation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Level{}, fmt.Errorf("level %s: %w", id, ErrNotFound)
		}
		return models.Level{}, err
	}
	return l, nil
}

func (d *Document) FloorTypes(ctx context.Context) ([]models.FloorType, error) {
	rows, err := d.db.QueryContext(ctx, `
        SELECT id, name, is_foundation_slab
        FROM floor_types
        ORDER BY rowid
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FloorType
	for rows.Next() {
		var ft models.FloorType
		if err := rows.Scan(&ft.ID, &ft.Name, &ft.IsFoundationSlab); err != nil {
			return nil, err
		}
		out = append(out, ft)
	}
	return out, rows.Err()
}

func (d *Document) WallTypes(ctx context.Context) ([]models.WallType, error) {
	rows, err := d.db.QueryContext(ctx, `
        SELECT id, name, kind
        FROM wall_types
        ORDER BY rowid
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WallType
	for rows.Next() {
		var wt models.WallType
		var kind string
		if err := rows.Scan(&wt.ID, &wt.Name, &kind); err != nil {
			return nil, err
		}
		wt.Kind = models.WallKind(kind)
		out = append(out, wt)
	}
	return out, rows.Err()
}

func (d *Document) ToInternalUnits(value float64, unit units.Unit) (float64, error) {
	return units.ToInternal(value, unit)
}

// Begin открывает транзакцию модели.
func (d *Document) Begin(ctx context.Context, name string) (host.Transaction, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin %q: %w", name, err)
	}
	return &Tx{tx: tx, ctx: ctx, name: name}, nil
}

// ============================================================
// Elements
// ============================================================

// Element is a stored model element with its parameters.
type Element struct {
	ID       models.Handle
	Category string
	TypeID   string
	LevelID  string
	Loop     *models.PlanarLoop
	Edge     *models.Segment
	Flags    models.WallFlags
	Lengths  map[string]float64
	Refs     map[string]string
}

type geometryRecord struct {
	Loop  *models.PlanarLoop `json:"loop,omitempty"`
	Edge  *models.Segment    `json:"edge,omitempty"`
	Flags *models.WallFlags  `json:"flags,omitempty"`
}

// Elements returns every element in creation order.
func (d *Document) Elements(ctx context.Context) ([]Element, error) {
	rows, err := d.db.QueryContext(ctx, `
        SELECT id, category, type_id, level_id, geometry
        FROM elements
        ORDER BY rowid
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Element
	index := make(map[models.Handle]int)
	for rows.Next() {
		var e Element
		var raw string
		if err := rows.Scan(&e.ID, &e.Category, &e.TypeID, &e.LevelID, &raw); err != nil {
			return nil, err
		}
		var g geometryRecord
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			return nil, fmt.Errorf("element %s geometry: %w", e.ID, err)
		}
		e.Loop, e.Edge = g.Loop, g.Edge
		if g.Flags != nil {
			e.Flags = *g.Flags
		}
		e.Lengths = map[string]float64{}
		e.Refs = map[string]string{}
		index[e.ID] = len(out)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	params, err := d.db.QueryContext(ctx, `SELECT element_id, key, number, ref FROM parameters`)
	if err != nil {
		return nil, err
	}
	defer params.Close()

	for params.Next() {
		var id models.Handle
		var key string
		var number sql.NullFloat64
		var ref sql.NullString
		if err := params.Scan(&id, &key, &number, &ref); err != nil {
			return nil, err
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		if number.Valid {
			out[i].Lengths[key] = number.Float64
		}
		if ref.Valid {
			out[i].Refs[key] = ref.String
		}
	}
	return out, params.Err()
}

// ============================================================
// Migrations
// ============================================================

func (d *Document) runMigrations(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, initSchema); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
