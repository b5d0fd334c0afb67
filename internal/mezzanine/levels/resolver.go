package levels

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"mezzanine/internal/mezzanine/host"
	"mezzanine/internal/mezzanine/models"
)

// ============================================================
// Level Resolver
// ============================================================

var ErrNotFound = errors.New("no base level found")

// Resolver picks the level the platform rests on and the level above it.
type Resolver struct {
	doc  host.Document
	view host.View
}

func NewResolver(doc host.Document, view host.View) *Resolver {
	return &Resolver{doc: doc, view: view}
}

// ResolveBase uses the level of the active plan view and falls back to the
// lowest level in the model.
func (r *Resolver) ResolveBase(ctx context.Context) (models.Level, error) {
	lvl, err := r.view.ViewLevel(ctx)
	if err != nil {
		return models.Level{}, fmt.Errorf("view level: %w", err)
	}
	if lvl != nil {
		return *lvl, nil
	}

	all, err := r.doc.Levels(ctx)
	if err != nil {
		return models.Level{}, fmt.Errorf("list levels: %w", err)
	}
	lowest, ok := Lowest(all)
	if !ok {
		return models.Level{}, ErrNotFound
	}
	return lowest, nil
}

// ResolveTop returns the nearest level strictly above base, nil if none.
func (r *Resolver) ResolveTop(ctx context.Context, base models.Level) (*models.Level, error) {
	all, err := r.doc.Levels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	top, ok := NextAbove(all, base.Elevation)
	if !ok {
		return nil, nil
	}
	return &top, nil
}

func (r *Resolver) Resolve(ctx context.Context) (models.ElevationContext, error) {
	base, err := r.ResolveBase(ctx)
	if err != nil {
		return models.ElevationContext{}, err
	}
	top, err := r.ResolveTop(ctx, base)
	if err != nil {
		return models.ElevationContext{}, err
	}
	return models.ElevationContext{Base: base, Top: top}, nil
}

// ============================================================
// Helpers
// ============================================================

// sorted orders levels by elevation, then name, so ties resolve the same
// way every time.
func sorted(all []models.Level) []models.Level {
	out := append([]models.Level(nil), all...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Elevation != out[j].Elevation {
			return out[i].Elevation < out[j].Elevation
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func Lowest(all []models.Level) (models.Level, bool) {
	if len(all) == 0 {
		return models.Level{}, false
	}
	return sorted(all)[0], true
}

func NextAbove(all []models.Level, elevation float64) (models.Level, bool) {
	for _, l := range sorted(all) {
		if l.Elevation > elevation {
			return l, true
		}
	}
	return models.Level{}, false
}
