package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mezzanine/internal/mezzanine/models"
)

// ============================================================
// Transaction
// ============================================================

// Tx is one atomic mutation of the document.
type Tx struct {
	tx   *sql.Tx
	ctx  context.Context
	name string
	done bool
}

func (t *Tx) insert(category, typeID, levelID string, g geometryRecord) (models.Handle, error) {
	if t.done {
		return "", sql.ErrTxDone
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encode geometry: %w", err)
	}

	id := uuid.NewString()
	_, err = t.tx.ExecContext(t.ctx, `
        INSERT INTO elements (id, category, type_id, level_id, geometry, tx_name)
        VALUES (?, ?, ?, ?, ?, ?)
    `, id, category, typeID, levelID, string(raw), t.name)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", category, err)
	}
	return models.Handle(id), nil
}

func (t *Tx) requireRow(table, id string) error {
	var one int
	err := t.tx.QueryRowContext(t.ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrNotFound)
	}
	return err
}

func (t *Tx) CreatePlatform(loop models.PlanarLoop, floorTypeID, levelID string) (models.Handle, error) {
	if len(loop.Segments) == 0 {
		return "", fmt.Errorf("create floor: empty loop")
	}
	if err := t.requireRow("floor_types", floorTypeID); err != nil {
		return "", err
	}
	if err := t.requireRow("levels", levelID); err != nil {
		return "", err
	}
	return t.insert(models.CategoryFloor, floorTypeID, levelID, geometryRecord{Loop: &loop})
}

func (t *Tx) CreateWall(edge models.Segment, wallTypeID, levelID string, unconnectedHeight, baseOffset float64, flags models.WallFlags) (models.Handle, error) {
	if err := t.requireRow("wall_types", wallTypeID); err != nil {
		return "", err
	}
	if err := t.requireRow("levels", levelID); err != nil {
		return "", err
	}
	if unconnectedHeight <= 0 {
		return "", fmt.Errorf("create wall: unconnected height must be positive, got %v", unconnectedHeight)
	}

	h, err := t.insert(models.CategoryWall, wallTypeID, levelID, geometryRecord{Edge: &edge, Flags: &flags})
	if err != nil {
		return "", err
	}
	if err := t.SetLength(h, models.ParamWallUnconnectedHeight, unconnectedHeight); err != nil {
		return "", err
	}
	if err := t.SetLength(h, models.ParamWallBaseOffset, baseOffset); err != nil {
		return "", err
	}
	return h, nil
}

func (t *Tx) CreatePreviewLine(seg models.Segment) (models.Handle, error) {
	return t.insert(models.CategoryPreview, "", "", geometryRecord{Edge: &seg})
}

func (t *Tx) SetLength(h models.Handle, key string, value float64) error {
	return t.setParameter(h, key, sql.NullFloat64{Float64: value, Valid: true}, sql.NullString{})
}

// SetReference points an element parameter at a level.
func (t *Tx) SetReference(h models.Handle, key, refID string) error {
	if err := t.requireRow("levels", refID); err != nil {
		return err
	}
	return t.setParameter(h, key, sql.NullFloat64{}, sql.NullString{String: refID, Valid: true})
}

func (t *Tx) setParameter(h models.Handle, key string, number sql.NullFloat64, ref sql.NullString) error {
	if t.done {
		return sql.ErrTxDone
	}
	if err := t.requireRow("elements", string(h)); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(t.ctx, `
        INSERT INTO parameters (element_id, key, number, ref)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (element_id, key) DO UPDATE SET number = excluded.number, ref = excluded.ref
    `, string(h), key, number, ref)
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", key, h, err)
	}
	return nil
}

// DeleteEntities removes elements and their parameters. Unknown handles are
// ignored.
func (t *Tx) DeleteEntities(handles []models.Handle) error {
	if t.done {
		return sql.ErrTxDone
	}
	for _, h := range handles {
		if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM parameters WHERE element_id = ?`, string(h)); err != nil {
			return fmt.Errorf("delete parameters of %s: %w", h, err)
		}
		if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM elements WHERE id = ?`, string(h)); err != nil {
			return fmt.Errorf("delete %s: %w", h, err)
		}
	}
	return nil
}

func (t *Tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit %q: %w", t.name, err)
	}
	return nil
}

// Rollback is a no-op once the transaction has finished.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}
