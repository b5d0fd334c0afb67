package hosttest

import (
	"context"

	"mezzanine/internal/mezzanine/host"
	"mezzanine/internal/mezzanine/models"
)

// Pick is one scripted answer to PickPoint.
type Pick struct {
	Point  models.Point
	Cancel bool
	Err    error
}

type Notice struct {
	Title   string
	Message string
}

// UI is a scripted host.UI. Picks are served in order; once they run out
// picking is cancelled.
type UI struct {
	Picks     []Pick
	Answer    string
	AnswerOK  bool
	AnswerErr error
	Level     *models.Level

	// OnPick runs before the n-th pick (0-based) is served.
	OnPick   func(n int)
	OnNotify func(Notice)

	Picked        int
	Accepted      []models.Point
	Refreshes     int
	PickPrompts   []string
	AskedDefaults []string
	Notices       []Notice
}

// Square returns picks for an axis-aligned square of side size at z,
// followed by a cancel.
func Square(size, z float64) []Pick {
	return []Pick{
		{Point: models.Point{X: 0, Y: 0, Z: z}},
		{Point: models.Point{X: size, Y: 0, Z: z}},
		{Point: models.Point{X: size, Y: size, Z: z}},
		{Point: models.Point{X: 0, Y: size, Z: z}},
		{Cancel: true},
	}
}

func (u *UI) PickPoint(ctx context.Context, snaps host.SnapMode, prompt string) (models.Point, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Point{}, false, err
	}
	if u.OnPick != nil {
		u.OnPick(u.Picked)
	}
	u.PickPrompts = append(u.PickPrompts, prompt)
	if u.Picked >= len(u.Picks) {
		return models.Point{}, false, nil
	}
	p := u.Picks[u.Picked]
	u.Picked++
	if p.Err != nil {
		return models.Point{}, false, p.Err
	}
	if p.Cancel {
		return models.Point{}, false, nil
	}
	return p.Point, true, nil
}

func (u *UI) PointAccepted(p models.Point) {
	u.Accepted = append(u.Accepted, p)
}

func (u *UI) ViewLevel(ctx context.Context) (*models.Level, error) {
	return u.Level, nil
}

func (u *UI) Refresh(ctx context.Context) error {
	u.Refreshes++
	return nil
}

func (u *UI) AskText(ctx context.Context, prompt, defaultValue string) (string, bool, error) {
	u.AskedDefaults = append(u.AskedDefaults, defaultValue)
	if u.AnswerErr != nil {
		return "", false, u.AnswerErr
	}
	return u.Answer, u.AnswerOK, nil
}

func (u *UI) Notify(ctx context.Context, title, message string) {
	n := Notice{Title: title, Message: message}
	u.Notices = append(u.Notices, n)
	if u.OnNotify != nil {
		u.OnNotify(n)
	}
}
