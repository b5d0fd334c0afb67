package geometry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mezzanine/internal/mezzanine/host/hosttest"
	"mezzanine/internal/mezzanine/models"
	"mezzanine/internal/mezzanine/preview"
)

func newAccumulator(ui *hosttest.UI) (*Accumulator, *hosttest.Document, *preview.Manager) {
	doc := hosttest.Standard(0)
	previews := preview.NewManager(doc)
	return NewAccumulator(ui, ui, previews, DefaultTolerance), doc, previews
}

func TestRunLocksElevationToPreviousPoint(t *testing.T) {
	ui := &hosttest.UI{Picks: []hosttest.Pick{
		{Point: models.Point{X: 0, Y: 0, Z: 1.5}},
		{Point: models.Point{X: 4, Y: 0, Z: 9}},
		{Point: models.Point{X: 4, Y: 4, Z: -3}},
		{Point: models.Point{X: 0, Y: 4, Z: 0}},
		{Cancel: true},
	}}
	acc, _, _ := newAccumulator(ui)

	sketch, err := acc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sketch, 4)
	for _, p := range sketch {
		assert.Equal(t, 1.5, p.Z)
	}
	assert.Equal(t, Closed, acc.State())
}

func TestRunCreatesOnePreviewPerSegment(t *testing.T) {
	ui := &hosttest.UI{Picks: hosttest.Square(10, 0)}
	acc, doc, previews := newAccumulator(ui)

	_, err := acc.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, doc.Elements(models.CategoryPreview), 3)
	assert.Len(t, previews.Pending(), 3)
	assert.Equal(t, 3, ui.Refreshes)
}

func TestRunSkipsRepeatedPoint(t *testing.T) {
	ui := &hosttest.UI{Picks: []hosttest.Pick{
		{Point: models.Point{X: 0, Y: 0}},
		{Point: models.Point{X: 0, Y: 0, Z: 3}},
		{Point: models.Point{X: 1, Y: 0}},
		{Point: models.Point{X: 1, Y: 0}},
		{Point: models.Point{X: 1, Y: 1}},
	}}
	acc, doc, _ := newAccumulator(ui)

	sketch, err := acc.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, sketch, 3)
	assert.Len(t, doc.Elements(models.CategoryPreview), 2)
	assert.Equal(t, sketch, ui.Accepted)
	assert.Equal(t, 5, ui.Picked)
}

func TestRunWithFewPointsIsAbandoned(t *testing.T) {
	tests := []struct {
		name  string
		picks []hosttest.Pick
	}{
		{"cancel immediately", []hosttest.Pick{{Cancel: true}}},
		{"one point", []hosttest.Pick{{Point: models.Point{}}, {Cancel: true}}},
		{"two points", []hosttest.Pick{{Point: models.Point{}}, {Point: models.Point{X: 1}}, {Cancel: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, _, _ := newAccumulator(&hosttest.UI{Picks: tt.picks})
			sketch, err := acc.Run(context.Background())
			require.NoError(t, err)
			assert.Less(t, len(sketch), MinPoints)
			assert.Equal(t, Abandoned, acc.State())
		})
	}
}

func TestRunPropagatesPickerError(t *testing.T) {
	boom := errors.New("device lost")
	ui := &hosttest.UI{Picks: []hosttest.Pick{{Point: models.Point{}}, {Err: boom}}}
	acc, _, _ := newAccumulator(ui)

	sketch, err := acc.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Len(t, sketch, 1)
	assert.Equal(t, Abandoned, acc.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_point", AwaitingPoint.String())
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
