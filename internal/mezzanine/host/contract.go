// Package host declares what the mezzanine command needs from the modelling
// environment that owns the building model and the operator's screen.
package host

import (
	"context"

	"mezzanine/internal/common/units"
	"mezzanine/internal/mezzanine/models"
)

// SnapMode is a bit set of object snaps offered while picking.
type SnapMode uint8

const (
	SnapEndpoints SnapMode = 1 << iota
	SnapMidpoints
	SnapIntersections
	SnapNearest
	SnapPerpendicular
)

// DefaultSnaps are the snaps used while sketching an outline.
const DefaultSnaps = SnapEndpoints | SnapMidpoints | SnapIntersections | SnapNearest

// ============================================================
// Operator side
// ============================================================

// PointPicker blocks until the operator picks a point. ok is false when the
// operator ended picking; that is not an error.
type PointPicker interface {
	PickPoint(ctx context.Context, snaps SnapMode, prompt string) (p models.Point, ok bool, err error)
}

// SketchObserver is optionally implemented by a PointPicker that shows the
// outline being sketched. It receives every accepted point after its
// elevation has been locked; ignored picks are not reported.
type SketchObserver interface {
	PointAccepted(p models.Point)
}

// View is the view the command was started from.
type View interface {
	// ViewLevel returns the level of a plan view, nil for views without one.
	ViewLevel(ctx context.Context) (*models.Level, error)
	Refresh(ctx context.Context) error
}

// Dialog asks for a single line of text. ok is false when cancelled.
type Dialog interface {
	AskText(ctx context.Context, prompt, defaultValue string) (text string, ok bool, err error)
}

type Notifier interface {
	Notify(ctx context.Context, title, message string)
}

// UI bundles every operator-facing collaborator.
type UI interface {
	PointPicker
	View
	Dialog
	Notifier
}

// ============================================================
// Model side
// ============================================================

// Document is the persistent building model. All mutation happens through a
// Transaction returned by Begin.
type Document interface {
	Levels(ctx context.Context) ([]models.Level, error)
	FloorTypes(ctx context.Context) ([]models.FloorType, error)
	WallTypes(ctx context.Context) ([]models.WallType, error)
	Begin(ctx context.Context, name string) (Transaction, error)
	ToInternalUnits(value float64, unit units.Unit) (float64, error)
}

// Transaction is one atomic mutation of the document. Rollback after Commit
// is a no-op so it can always be deferred.
type Transaction interface {
	CreatePlatform(loop models.PlanarLoop, floorTypeID, levelID string) (models.Handle, error)
	CreateWall(edge models.Segment, wallTypeID, levelID string, unconnectedHeight, baseOffset float64, flags models.WallFlags) (models.Handle, error)
	CreatePreviewLine(seg models.Segment) (models.Handle, error)
	SetLength(h models.Handle, key string, value float64) error
	SetReference(h models.Handle, key, refID string) error
	DeleteEntities(handles []models.Handle) error
	Commit() error
	Rollback() error
}
