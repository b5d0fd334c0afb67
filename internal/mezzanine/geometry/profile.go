package geometry

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"

	"mezzanine/internal/mezzanine/models"
)

// ============================================================
// Profile Builder
// ============================================================

// DefaultTolerance is the coincidence distance in internal units.
const DefaultTolerance = 1e-6

var ErrProfileNotClosed = errors.New("profile is not closed")

// Coincident reports whether two points are closer than tol.
func Coincident(a, b models.Point, tol float64) bool {
	return models.Distance(a, b) <= tol
}

// BuildLoop turns a sketch into a closed loop at the elevation of its first
// point. Each point is joined to the next, the last one back to the first;
// pairs that coincide after flattening produce no segment.
func BuildLoop(points []models.Point, tol float64) (models.PlanarLoop, error) {
	if len(points) == 0 {
		return models.PlanarLoop{}, fmt.Errorf("%w: no points", ErrProfileNotClosed)
	}

	z := points[0].Z
	flat := make([]models.Point, len(points))
	for i, p := range points {
		p.Z = z
		flat[i] = p
	}

	loop := models.PlanarLoop{Elevation: z}
	for i := range flat {
		a := flat[i]
		b := flat[(i+1)%len(flat)]
		if Coincident(a, b, tol) {
			continue
		}
		loop.Segments = append(loop.Segments, models.Segment{Start: a, End: b})
	}

	if err := CheckClosed(loop, tol); err != nil {
		return models.PlanarLoop{}, err
	}
	return loop, nil
}

// CheckClosed verifies every segment starts where the previous one ended,
// the chain returns to its start and every endpoint lies at the loop
// elevation. Fewer than three segments cannot enclose an area.
func CheckClosed(loop models.PlanarLoop, tol float64) error {
	n := len(loop.Segments)
	if n < MinPoints {
		return fmt.Errorf("%w: %d segment(s)", ErrProfileNotClosed, n)
	}

	for i, seg := range loop.Segments {
		if seg.Length() <= tol {
			return fmt.Errorf("%w: segment %d has zero length", ErrProfileNotClosed, i)
		}
		if !scalar.EqualWithinAbs(seg.Start.Z, loop.Elevation, tol) || !scalar.EqualWithinAbs(seg.End.Z, loop.Elevation, tol) {
			return fmt.Errorf("%w: segment %d leaves the sketch plane", ErrProfileNotClosed, i)
		}
		next := loop.Segments[(i+1)%n]
		if !Coincident(seg.End, next.Start, tol) {
			return fmt.Errorf("%w: gap after segment %d", ErrProfileNotClosed, i)
		}
	}
	return nil
}
