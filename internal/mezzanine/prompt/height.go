package prompt

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"mezzanine/internal/mezzanine/host"
)

// Abandoned is returned when the operator cancels or types something that
// is not a non-negative number.
const Abandoned = -1.0

// HeightPrompt asks for the platform's offset above the base level, in
// millimetres.
type HeightPrompt struct {
	dialog host.Dialog
}

func NewHeightPrompt(dialog host.Dialog) *HeightPrompt {
	return &HeightPrompt{dialog: dialog}
}

// Ask shows the dialog pre-filled with defaultValue. The error is only set
// when the dialog itself fails.
func (p *HeightPrompt) Ask(ctx context.Context, text string, defaultValue float64) (float64, error) {
	answer, ok, err := p.dialog.AskText(ctx, text, FormatMillimeters(defaultValue))
	if err != nil {
		return Abandoned, fmt.Errorf("ask height: %w", err)
	}
	if !ok {
		return Abandoned, nil
	}
	return ParseHeight(answer), nil
}

// ParseHeight parses a height in millimetres.
func ParseHeight(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return Abandoned
	}
	return v
}

func FormatMillimeters(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
