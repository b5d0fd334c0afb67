package preview

import (
	"context"
	"fmt"

	"mezzanine/internal/mezzanine/host"
	"mezzanine/internal/mezzanine/models"
)

// ============================================================
// Preview Manager
// ============================================================

// Transaction names used for preview mutations.
const (
	AddTransactionName     = "Mezzanine preview"
	ReleaseTransactionName = "Discard mezzanine preview"
)

// Manager owns the preview lines drawn while the outline is sketched.
type Manager struct {
	doc     host.Document
	handles []models.Handle
}

func NewManager(doc host.Document) *Manager {
	return &Manager{doc: doc}
}

// AddPreviewSegment draws a preview line in its own transaction so it shows
// up before the outline is finished.
func (m *Manager) AddPreviewSegment(ctx context.Context, p1, p2 models.Point) (models.Handle, error) {
	tx, err := m.doc.Begin(ctx, AddTransactionName)
	if err != nil {
		return "", fmt.Errorf("begin preview: %w", err)
	}
	defer tx.Rollback()

	h, err := tx.CreatePreviewLine(models.Segment{Start: p1, End: p2})
	if err != nil {
		return "", fmt.Errorf("create preview line: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit preview: %w", err)
	}

	m.handles = append(m.handles, h)
	return h, nil
}

// Pending returns the preview lines not yet released.
func (m *Manager) Pending() []models.Handle {
	return append([]models.Handle(nil), m.handles...)
}

// Forget drops handles that were deleted by someone else's transaction.
func (m *Manager) Forget(handles []models.Handle) {
	if len(handles) == 0 {
		return
	}
	gone := make(map[models.Handle]struct{}, len(handles))
	for _, h := range handles {
		gone[h] = struct{}{}
	}
	kept := m.handles[:0]
	for _, h := range m.handles {
		if _, ok := gone[h]; !ok {
			kept = append(kept, h)
		}
	}
	m.handles = kept
}

// ReleaseAll deletes every pending preview line. With nothing pending it
// does not touch the document.
func (m *Manager) ReleaseAll(ctx context.Context) error {
	if len(m.handles) == 0 {
		return nil
	}

	tx, err := m.doc.Begin(ctx, ReleaseTransactionName)
	if err != nil {
		return fmt.Errorf("begin release: %w", err)
	}
	defer tx.Rollback()

	if err := tx.DeleteEntities(m.handles); err != nil {
		return fmt.Errorf("delete preview lines: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit release: %w", err)
	}

	m.handles = nil
	return nil
}
