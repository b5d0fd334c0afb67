package repository

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mezzanine/internal/common/units"
	"mezzanine/internal/mezzanine/host/hosttest"
	"mezzanine/internal/mezzanine/models"
	"mezzanine/internal/mezzanine/pipeline"
)

func openDocument(t *testing.T, seedPath string) *Document {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "document.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	doc := New(db)
	require.NoError(t, doc.Init(context.Background(), seedPath))
	return doc
}

func square() models.PlanarLoop {
	p := []models.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	loop := models.PlanarLoop{}
	for i := range p {
		loop.Segments = append(loop.Segments, models.Segment{Start: p[i], End: p[(i+1)%len(p)]})
	}
	return loop
}

func TestInitSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	doc := openDocument(t, "")

	levels, err := doc.Levels(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "Level 1", levels[0].Name)
	assert.Zero(t, levels[0].Elevation)
	assert.InDelta(t, units.MustToInternal(3000, units.Millimeters), levels[1].Elevation, 1e-9)

	floors, err := doc.FloorTypes(ctx)
	require.NoError(t, err)
	require.Len(t, floors, 2)
	assert.True(t, floors[0].IsFoundationSlab)
	assert.False(t, floors[1].IsFoundationSlab)

	walls, err := doc.WallTypes(ctx)
	require.NoError(t, err)
	require.Len(t, walls, 2)
	assert.Equal(t, models.WallKindCurtain, walls[0].Kind)
	assert.Equal(t, models.WallKindBasic, walls[1].Kind)
}

func TestInitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	doc := openDocument(t, "")
	require.NoError(t, doc.Init(ctx, ""))

	levels, err := doc.Levels(ctx)
	require.NoError(t, err)
	assert.Len(t, levels, 2)
}

func TestInitFromSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
units: m
levels:
  - {id: ground, name: Ground, elevation: 0}
  - {id: first, name: First, elevation: 4.5}
floor_types:
  - {id: deck, name: Steel Deck}
wall_types:
  - {id: stud, name: Stud Wall, kind: basic}
`), 0o644))

	ctx := context.Background()
	doc := openDocument(t, path)

	l, err := doc.Level(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "First", l.Name)
	assert.InDelta(t, units.MustToInternal(4.5, units.Meters), l.Elevation, 1e-9)

	_, err = doc.Level(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadSeedRejectsUnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wall_types:\n  - {name: Odd, kind: wavy}\n"), 0o644))

	_, err := LoadSeed(path)
	assert.ErrorContains(t, err, "unknown kind")
}

func TestLoadSeedRejectsUnknownUnit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("units: yd\n"), 0o644))

	_, err := LoadSeed(path)
	assert.ErrorContains(t, err, "unknown unit")
}

func TestTransactionCommit(t *testing.T) {
	ctx := context.Background()
	doc := openDocument(t, "")
	levels, _ := doc.Levels(ctx)
	floors, _ := doc.FloorTypes(ctx)
	walls, _ := doc.WallTypes(ctx)

	tx, err := doc.Begin(ctx, "test")
	require.NoError(t, err)

	platform, err := tx.CreatePlatform(square(), floors[1].ID, levels[0].ID)
	require.NoError(t, err)
	require.NoError(t, tx.SetLength(platform, models.ParamFloorHeightOffset, 9))

	edge := square().Segments[0]
	wall, err := tx.CreateWall(edge, walls[1].ID, levels[0].ID, 10, 0, models.WallFlags{})
	require.NoError(t, err)
	require.NoError(t, tx.SetLength(wall, models.ParamWallBaseOffset, 9))
	require.NoError(t, tx.SetReference(wall, models.ParamWallTopConstraint, levels[1].ID))
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback())
	assert.ErrorIs(t, tx.Commit(), sql.ErrTxDone)

	elems, err := doc.Elements(ctx)
	require.NoError(t, err)
	require.Len(t, elems, 2)

	assert.Equal(t, platform, elems[0].ID)
	assert.Equal(t, models.CategoryFloor, elems[0].Category)
	require.NotNil(t, elems[0].Loop)
	assert.Len(t, elems[0].Loop.Segments, 4)
	assert.Equal(t, 9.0, elems[0].Lengths[models.ParamFloorHeightOffset])

	assert.Equal(t, models.CategoryWall, elems[1].Category)
	require.NotNil(t, elems[1].Edge)
	assert.Equal(t, edge, *elems[1].Edge)
	assert.Equal(t, 9.0, elems[1].Lengths[models.ParamWallBaseOffset])
	assert.Equal(t, 10.0, elems[1].Lengths[models.ParamWallUnconnectedHeight])
	assert.Equal(t, levels[1].ID, elems[1].Refs[models.ParamWallTopConstraint])
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	doc := openDocument(t, "")

	tx, err := doc.Begin(ctx, "preview")
	require.NoError(t, err)
	_, err = tx.CreatePreviewLine(square().Segments[0])
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback())

	elems, err := doc.Elements(ctx)
	require.NoError(t, err)
	assert.Empty(t, elems)
}

func TestTransactionRejectsUnknownReferences(t *testing.T) {
	ctx := context.Background()
	doc := openDocument(t, "")
	levels, _ := doc.Levels(ctx)

	tx, err := doc.Begin(ctx, "bad")
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tx.CreatePlatform(square(), "no-such-type", levels[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tx.CreateWall(square().Segments[0], "no-such-type", levels[0].ID, 10, 0, models.WallFlags{})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, tx.SetLength("ghost", models.ParamWallBaseOffset, 1), ErrNotFound)
}

func TestDeleteEntities(t *testing.T) {
	ctx := context.Background()
	doc := openDocument(t, "")

	tx, err := doc.Begin(ctx, "preview")
	require.NoError(t, err)
	a, err := tx.CreatePreviewLine(square().Segments[0])
	require.NoError(t, err)
	b, err := tx.CreatePreviewLine(square().Segments[1])
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx, err = doc.Begin(ctx, "discard")
	require.NoError(t, err)
	require.NoError(t, tx.DeleteEntities([]models.Handle{a, "unknown"}))
	require.NoError(t, tx.Commit())

	elems, err := doc.Elements(ctx)
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, b, elems[0].ID)
}

func TestPipelineOnSQLiteDocument(t *testing.T) {
	pipeline.SetLogger(nil)
	ctx := context.Background()
	doc := openDocument(t, "")
	levels, _ := doc.Levels(ctx)

	ui := &hosttest.UI{Picks: hosttest.Square(10, 0), Answer: "2800", AnswerOK: true}
	out, err := pipeline.New(doc, ui, pipeline.Config{DefaultHeightOffsetMM: 2800}).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, pipeline.StatusCompleted, out.Status)

	elems, err := doc.Elements(ctx)
	require.NoError(t, err)

	var floors, walls, previews int
	offset := units.MustToInternal(2800, units.Millimeters)
	for _, e := range elems {
		switch e.Category {
		case models.CategoryFloor:
			floors++
			assert.InDelta(t, offset, e.Lengths[models.ParamFloorHeightOffset], 1e-9)
		case models.CategoryWall:
			walls++
			assert.Equal(t, levels[0].ID, e.LevelID)
			assert.Equal(t, levels[1].ID, e.Refs[models.ParamWallTopConstraint])
			assert.InDelta(t, offset, e.Lengths[models.ParamWallBaseOffset], 1e-9)
		case models.CategoryPreview:
			previews++
		}
	}
	assert.Equal(t, 1, floors)
	assert.Equal(t, 4, walls)
	assert.Zero(t, previews)
}

func TestElementsRecordCreatingTransaction(t *testing.T) {
	ctx := context.Background()
	doc := openDocument(t, "")

	tx, err := doc.Begin(ctx, "Mezzanine preview")
	require.NoError(t, err)
	h, err := tx.CreatePreviewLine(square().Segments[0])
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	var txName, typeID, levelID string
	err = doc.db.QueryRowContext(ctx,
		`SELECT tx_name, type_id, level_id FROM elements WHERE id = ?`, string(h),
	).Scan(&txName, &typeID, &levelID)
	require.NoError(t, err)
	assert.Equal(t, "Mezzanine preview", txName)
	assert.Empty(t, typeID)
	assert.Empty(t, levelID)

	elems, err := doc.Elements(ctx)
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, models.CategoryPreview, elems[0].Category)
}
