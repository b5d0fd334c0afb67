package geometry

import (
	"context"
	"fmt"

	"mezzanine/internal/mezzanine/host"
	"mezzanine/internal/mezzanine/models"
)

// ============================================================
// Accumulator
// ============================================================

// State of an outline capture.
type State int

const (
	AwaitingPoint State = iota
	Accumulating
	Closed
	Abandoned
)

func (s State) String() string {
	switch s {
	case AwaitingPoint:
		return "awaiting_point"
	case Accumulating:
		return "accumulating"
	case Closed:
		return "closed"
	case Abandoned:
		return "abandoned"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MinPoints is the smallest sketch that can enclose an area.
const MinPoints = 3

// PreviewSink draws the segment between two accepted points.
type PreviewSink interface {
	AddPreviewSegment(ctx context.Context, p1, p2 models.Point) (models.Handle, error)
}

// Accumulator collects outline points picked by the operator. Every point
// after the first is moved onto the elevation of the one before it, so the
// whole sketch lies at the first point's elevation.
type Accumulator struct {
	picker    host.PointPicker
	view      host.View
	previews  PreviewSink
	snaps     host.SnapMode
	prompt    string
	tolerance float64

	points []models.Point
	state  State
}

func NewAccumulator(picker host.PointPicker, view host.View, previews PreviewSink, tolerance float64) *Accumulator {
	return &Accumulator{
		picker:    picker,
		view:      view,
		previews:  previews,
		snaps:     host.DefaultSnaps,
		prompt:    "Pick the next outline point (finish to stop)",
		tolerance: tolerance,
	}
}

// SetPrompt overrides the text shown while picking.
func (a *Accumulator) SetPrompt(prompt string) {
	a.prompt = prompt
}

func (a *Accumulator) State() State {
	return a.state
}

// Points returns a copy of the accepted points.
func (a *Accumulator) Points() []models.Point {
	return append([]models.Point(nil), a.points...)
}

// CapturePoint waits for the next acceptable point. A pick that lands on
// the previous point is ignored and picking continues. ok is false once the
// operator ends picking.
func (a *Accumulator) CapturePoint(ctx context.Context) (models.Point, bool, error) {
	for {
		raw, ok, err := a.picker.PickPoint(ctx, a.snaps, a.prompt)
		if err != nil {
			return models.Point{}, false, fmt.Errorf("pick point: %w", err)
		}
		if !ok {
			return models.Point{}, false, nil
		}

		if len(a.points) == 0 {
			a.points = append(a.points, raw)
			a.state = Accumulating
			a.accepted(raw)
			return raw, true, nil
		}

		prev := a.points[len(a.points)-1]
		p := raw
		p.Z = prev.Z
		if Coincident(prev, p, a.tolerance) {
			continue
		}

		if _, err := a.previews.AddPreviewSegment(ctx, prev, p); err != nil {
			return models.Point{}, false, err
		}
		a.points = append(a.points, p)
		a.accepted(p)
		if err := a.view.Refresh(ctx); err != nil {
			return models.Point{}, false, fmt.Errorf("refresh view: %w", err)
		}
		return p, true, nil
	}
}

func (a *Accumulator) accepted(p models.Point) {
	if o, ok := a.picker.(host.SketchObserver); ok {
		o.PointAccepted(p)
	}
}

// Run captures points until the operator stops and returns the sketch.
func (a *Accumulator) Run(ctx context.Context) ([]models.Point, error) {
	a.state = AwaitingPoint
	for {
		_, ok, err := a.CapturePoint(ctx)
		if err != nil {
			a.state = Abandoned
			return a.Points(), err
		}
		if !ok {
			break
		}
	}

	if len(a.points) < MinPoints {
		a.state = Abandoned
	} else {
		a.state = Closed
	}
	return a.Points(), nil
}
