package generator

import (
	"context"
	"errors"
	"fmt"

	"mezzanine/internal/common/units"
	"mezzanine/internal/mezzanine/host"
	"mezzanine/internal/mezzanine/models"
)

// ============================================================
// Structure Generator
// ============================================================

var (
	ErrMissingTypes = errors.New("missing required construction types")
	ErrInvalidInput = errors.New("invalid generation input")
)

// DefaultWallHeightMM is the unconnected wall height used when no level
// lies above the platform.
const DefaultWallHeightMM = 3000.0

const transactionName = "Create mezzanine"

// PreviewDiscarder hands over preview lines to be deleted together with
// the structure.
type PreviewDiscarder interface {
	Pending() []models.Handle
	Forget(handles []models.Handle)
}

type Config struct {
	DefaultWallHeightMM float64
}

type Request struct {
	Loop           models.PlanarLoop
	Elevations     models.ElevationContext
	HeightOffsetMM float64
}

type Generator struct {
	doc      host.Document
	previews PreviewDiscarder
	cfg      Config
}

func New(doc host.Document, previews PreviewDiscarder, cfg Config) *Generator {
	if cfg.DefaultWallHeightMM <= 0 {
		cfg.DefaultWallHeightMM = DefaultWallHeightMM
	}
	return &Generator{doc: doc, previews: previews, cfg: cfg}
}

// Generate creates the platform and one wall per loop edge in a single
// transaction. On any failure the transaction is rolled back and nothing
// of the structure remains in the document.
func (g *Generator) Generate(ctx context.Context, req Request) (models.GeneratedStructure, error) {
	if req.HeightOffsetMM < 0 {
		return models.GeneratedStructure{}, fmt.Errorf("%w: negative height offset %v", ErrInvalidInput, req.HeightOffsetMM)
	}
	if len(req.Loop.Segments) == 0 {
		return models.GeneratedStructure{}, fmt.Errorf("%w: empty loop", ErrInvalidInput)
	}

	floorType, wallType, err := g.constructionTypes(ctx)
	if err != nil {
		return models.GeneratedStructure{}, err
	}

	offset, err := g.doc.ToInternalUnits(req.HeightOffsetMM, units.Millimeters)
	if err != nil {
		return models.GeneratedStructure{}, fmt.Errorf("convert height offset: %w", err)
	}
	wallHeight, err := g.doc.ToInternalUnits(g.cfg.DefaultWallHeightMM, units.Millimeters)
	if err != nil {
		return models.GeneratedStructure{}, fmt.Errorf("convert wall height: %w", err)
	}

	tx, err := g.doc.Begin(ctx, transactionName)
	if err != nil {
		return models.GeneratedStructure{}, fmt.Errorf("begin: %w", err)
	}

	out, err := g.build(tx, req, floorType, wallType, offset, wallHeight)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return models.GeneratedStructure{}, fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return models.GeneratedStructure{}, err
	}
	return out, nil
}

// build runs inside tx and commits it. A panic from the host is turned
// into an error so the caller can roll back.
func (g *Generator) build(tx host.Transaction, req Request, floorType models.FloorType, wallType models.WallType, offset, wallHeight float64) (out models.GeneratedStructure, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = models.GeneratedStructure{}
			err = fmt.Errorf("host panic: %v", r)
		}
	}()

	var discarded []models.Handle
	if g.previews != nil {
		discarded = g.previews.Pending()
		if err := tx.DeleteEntities(discarded); err != nil {
			return out, fmt.Errorf("discard previews: %w", err)
		}
	}

	base := req.Elevations.Base
	platform, err := tx.CreatePlatform(req.Loop, floorType.ID, base.ID)
	if err != nil {
		return out, fmt.Errorf("create platform: %w", err)
	}
	if err := tx.SetLength(platform, models.ParamFloorHeightOffset, offset); err != nil {
		return out, fmt.Errorf("set platform offset: %w", err)
	}

	walls := make([]models.Handle, 0, len(req.Loop.Segments))
	for i, edge := range req.Loop.Segments {
		wall, err := tx.CreateWall(edge, wallType.ID, base.ID, wallHeight, offset, models.WallFlags{})
		if err != nil {
			return out, fmt.Errorf("create wall %d: %w", i, err)
		}
		if err := tx.SetLength(wall, models.ParamWallBaseOffset, offset); err != nil {
			return out, fmt.Errorf("set wall %d base offset: %w", i, err)
		}
		if top := req.Elevations.Top; top != nil {
			if err := tx.SetReference(wall, models.ParamWallTopConstraint, top.ID); err != nil {
				return out, fmt.Errorf("set wall %d top constraint: %w", i, err)
			}
			if err := tx.SetLength(wall, models.ParamWallTopOffset, 0); err != nil {
				return out, fmt.Errorf("set wall %d top offset: %w", i, err)
			}
		}
		walls = append(walls, wall)
	}

	if err := tx.Commit(); err != nil {
		return out, fmt.Errorf("commit: %w", err)
	}
	if g.previews != nil {
		g.previews.Forget(discarded)
	}

	return models.GeneratedStructure{Platform: platform, Walls: walls}, nil
}

// constructionTypes picks the first floor type that is not a foundation
// slab and the first basic wall type.
func (g *Generator) constructionTypes(ctx context.Context) (models.FloorType, models.WallType, error) {
	floors, err := g.doc.FloorTypes(ctx)
	if err != nil {
		return models.FloorType{}, models.WallType{}, fmt.Errorf("list floor types: %w", err)
	}
	walls, err := g.doc.WallTypes(ctx)
	if err != nil {
		return models.FloorType{}, models.WallType{}, fmt.Errorf("list wall types: %w", err)
	}

	var floor *models.FloorType
	for i := range floors {
		if !floors[i].IsFoundationSlab {
			floor = &floors[i]
			break
		}
	}
	var wall *models.WallType
	for i := range walls {
		if walls[i].Kind == models.WallKindBasic {
			wall = &walls[i]
			break
		}
	}

	if floor == nil || wall == nil {
		return models.FloorType{}, models.WallType{}, ErrMissingTypes
	}
	return *floor, *wall, nil
}
