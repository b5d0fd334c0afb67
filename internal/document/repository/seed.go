package repository

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"mezzanine/internal/common/units"
	"mezzanine/internal/mezzanine/models"
)

// ============================================================
// Seed
// ============================================================

// Seed describes the levels and construction types an empty document starts
// with. Elevations are expressed in Units (millimetres when omitted).
type Seed struct {
	Units      units.Unit      `yaml:"units"`
	Levels     []SeedLevel     `yaml:"levels"`
	FloorTypes []SeedFloorType `yaml:"floor_types"`
	WallTypes  []SeedWallType  `yaml:"wall_types"`
}

type SeedLevel struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Elevation float64 `yaml:"elevation"`
}

type SeedFloorType struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	FoundationSlab bool   `yaml:"foundation_slab"`
}

type SeedWallType struct {
	ID   string          `yaml:"id"`
	Name string          `yaml:"name"`
	Kind models.WallKind `yaml:"kind"`
}

// DefaultSeed is a two storey model with one usable floor and wall type.
func DefaultSeed() Seed {
	return Seed{
		Units: units.Millimeters,
		Levels: []SeedLevel{
			{Name: "Level 1", Elevation: 0},
			{Name: "Level 2", Elevation: 3000},
		},
		FloorTypes: []SeedFloorType{
			{Name: "Foundation Slab 300", FoundationSlab: true},
			{Name: "Generic Floor 150"},
		},
		WallTypes: []SeedWallType{
			{Name: "Storefront", Kind: models.WallKindCurtain},
			{Name: "Generic Wall 200", Kind: models.WallKindBasic},
		},
	}
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}

	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	if s.Units == "" {
		s.Units = units.Millimeters
	}
	if !units.IsValid(s.Units) {
		return Seed{}, fmt.Errorf("seed %s: unknown unit %q (valid: %s)", path, s.Units, units.GetValidUnitsString())
	}
	for _, wt := range s.WallTypes {
		switch wt.Kind {
		case models.WallKindBasic, models.WallKindCurtain, models.WallKindStacked:
		default:
			return Seed{}, fmt.Errorf("seed %s: wall type %q has unknown kind %q", path, wt.Name, wt.Kind)
		}
	}
	return s, nil
}

// ApplySeed inserts the seed in one transaction.
func (d *Document) ApplySeed(ctx context.Context, s Seed) error {
	unit := s.Units
	if unit == "" {
		unit = units.Millimeters
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, l := range s.Levels {
		elevation, err := units.ToInternal(l.Elevation, unit)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO levels (id, name, elevation) VALUES (?, ?, ?)`,
			idOrNew(l.ID), l.Name, elevation,
		); err != nil {
			return fmt.Errorf("insert level %q: %w", l.Name, err)
		}
	}

	for _, ft := range s.FloorTypes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO floor_types (id, name, is_foundation_slab) VALUES (?, ?, ?)`,
			idOrNew(ft.ID), ft.Name, ft.FoundationSlab,
		); err != nil {
			return fmt.Errorf("insert floor type %q: %w", ft.Name, err)
		}
	}

	for _, wt := range s.WallTypes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wall_types (id, name, kind) VALUES (?, ?, ?)`,
			idOrNew(wt.ID), wt.Name, string(wt.Kind),
		); err != nil {
			return fmt.Errorf("insert wall type %q: %w", wt.Name, err)
		}
	}

	return tx.Commit()
}

// ensureSeed fills a document that has no levels yet.
func (d *Document) ensureSeed(ctx context.Context, seedPath string) error {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM levels`).Scan(&count); err != nil {
		return fmt.Errorf("count levels: %w", err)
	}
	if count > 0 {
		return nil
	}

	seed := DefaultSeed()
	if seedPath != "" {
		s, err := LoadSeed(seedPath)
		if err != nil {
			return err
		}
		seed = s
	}

	if err := d.ApplySeed(ctx, seed); err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}
	log.Printf("[DOCUMENT] seeded %d level(s), %d floor type(s), %d wall type(s)",
		len(seed.Levels), len(seed.FloorTypes), len(seed.WallTypes))
	return nil
}

func idOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
