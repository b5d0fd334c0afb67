package pipeline

import (
	"context"
	"errors"
	"fmt"

	"mezzanine/internal/mezzanine/generator"
	"mezzanine/internal/mezzanine/geometry"
	"mezzanine/internal/mezzanine/host"
	"mezzanine/internal/mezzanine/levels"
	"mezzanine/internal/mezzanine/models"
	"mezzanine/internal/mezzanine/preview"
	"mezzanine/internal/mezzanine/prompt"
)

// ============================================================
// Mezzanine Command
// ============================================================

const noticeTitle = "Mezzanine"

type Status string

const (
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Outcome of a run that did not fail.
type Outcome struct {
	Status         Status                     `json:"status"`
	Points         int                        `json:"points"`
	HeightOffsetMM float64                    `json:"height_offset_mm,omitempty"`
	Elevations     *models.ElevationContext   `json:"elevations,omitempty"`
	Structure      *models.GeneratedStructure `json:"structure,omitempty"`
}

type Config struct {
	DefaultHeightOffsetMM float64
	DefaultWallHeightMM   float64
	Tolerance             float64
}

// Command runs one mezzanine invocation: sketch, height, levels, generate.
type Command struct {
	doc host.Document
	ui  host.UI
	cfg Config
}

func New(doc host.Document, ui host.UI, cfg Config) *Command {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = geometry.DefaultTolerance
	}
	if cfg.DefaultWallHeightMM <= 0 {
		cfg.DefaultWallHeightMM = generator.DefaultWallHeightMM
	}
	return &Command{doc: doc, ui: ui, cfg: cfg}
}

// Run executes the command. Preview lines are removed on every return
// path before the operator is told how the command ended.
func (c *Command) Run(ctx context.Context) (Outcome, error) {
	outcome, err := c.runScoped(ctx)
	if err != nil {
		Logf("[MEZZANINE] failed: %v", err)
		c.ui.Notify(context.WithoutCancel(ctx), noticeTitle, err.Error())
		return outcome, err
	}

	switch outcome.Status {
	case StatusCompleted:
		c.ui.Notify(ctx, noticeTitle, fmt.Sprintf("Mezzanine created %s mm above level %q with %d wall(s).",
			prompt.FormatMillimeters(outcome.HeightOffsetMM), outcome.Elevations.Base.Name, len(outcome.Structure.Walls)))
		Logf("[MEZZANINE] created platform %s with %d wall(s) on %s",
			outcome.Structure.Platform, len(outcome.Structure.Walls), outcome.Elevations.Base.Name)
	case StatusAbandoned:
		Logf("[MEZZANINE] abandoned after %d point(s)", outcome.Points)
	}
	return outcome, nil
}

// runScoped owns the preview lines: they are released when it returns. A
// failed release is logged and never replaces the command's own error.
func (c *Command) runScoped(ctx context.Context) (Outcome, error) {
	previews := preview.NewManager(c.doc)
	defer func() {
		// Cleanup must run even when ctx was cancelled.
		if err := previews.ReleaseAll(context.WithoutCancel(ctx)); err != nil {
			Logf("[MEZZANINE] release previews: %v", err)
		}
	}()
	return c.run(ctx, previews)
}

func (c *Command) run(ctx context.Context, previews *preview.Manager) (Outcome, error) {
	acc := geometry.NewAccumulator(c.ui, c.ui, previews, c.cfg.Tolerance)
	sketch, err := acc.Run(ctx)
	out := Outcome{Points: len(sketch)}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			out.Status = StatusAbandoned
			return out, nil
		}
		return out, fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}
	if acc.State() == geometry.Abandoned {
		out.Status = StatusAbandoned
		return out, nil
	}

	loop, err := geometry.BuildLoop(sketch, c.cfg.Tolerance)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrProfileNotClosed, err)
	}

	height, err := prompt.NewHeightPrompt(c.ui).Ask(ctx, "Mezzanine height above the base level (mm)", c.cfg.DefaultHeightOffsetMM)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			out.Status = StatusAbandoned
			return out, nil
		}
		return out, fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}
	if height == prompt.Abandoned {
		out.Status = StatusAbandoned
		return out, nil
	}
	out.HeightOffsetMM = height

	elevations, err := levels.NewResolver(c.doc, c.ui).Resolve(ctx)
	if err != nil {
		if errors.Is(err, levels.ErrNotFound) {
			return out, ErrUnresolvedLevel
		}
		return out, fmt.Errorf("%w: %w", ErrUnresolvedLevel, err)
	}
	out.Elevations = &elevations

	gen := generator.New(c.doc, previews, generator.Config{DefaultWallHeightMM: c.cfg.DefaultWallHeightMM})
	structure, err := gen.Generate(ctx, generator.Request{
		Loop:           loop,
		Elevations:     elevations,
		HeightOffsetMM: height,
	})
	if err != nil {
		if errors.Is(err, generator.ErrMissingTypes) {
			return out, ErrMissingConstructionTypes
		}
		return out, fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}

	out.Status = StatusCompleted
	out.Structure = &structure
	return out, nil
}
