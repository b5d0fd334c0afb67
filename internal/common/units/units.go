// Package units converts lengths between display units and the host's
// internal unit (decimal feet).
package units

import (
	"fmt"
	"strings"
)

// Unit is a linear length unit.
type Unit string

// Unit constants
const (
	Millimeters Unit = "mm"
	Centimeters Unit = "cm"
	Meters      Unit = "m"
	Feet        Unit = "ft"
	Inches      Unit = "in"
)

// Internal is the unit every stored length and elevation is expressed in.
const Internal = Feet

// ValidUnits contains all valid unit values
var ValidUnits = []Unit{Millimeters, Centimeters, Meters, Feet, Inches}

// feetPer holds how many feet one unit is worth.
var feetPer = map[Unit]float64{
	Millimeters: 1 / 304.8,
	Centimeters: 1 / 30.48,
	Meters:      1 / 0.3048,
	Feet:        1,
	Inches:      1.0 / 12,
}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit Unit) bool {
	_, ok := feetPer[unit]
	return ok
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	names := make([]string, 0, len(ValidUnits))
	for _, u := range ValidUnits {
		names = append(names, string(u))
	}
	return strings.Join(names, ", ")
}

// ToInternal converts value expressed in unit to internal units.
func ToInternal(value float64, unit Unit) (float64, error) {
	factor, ok := feetPer[unit]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q (valid: %s)", unit, GetValidUnitsString())
	}
	return value * factor, nil
}

// FromInternal converts an internal-unit value back to unit.
func FromInternal(value float64, unit Unit) (float64, error) {
	factor, ok := feetPer[unit]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q (valid: %s)", unit, GetValidUnitsString())
	}
	return value / factor, nil
}

// MustToInternal is ToInternal for units known at compile time.
func MustToInternal(value float64, unit Unit) float64 {
	v, err := ToInternal(value, unit)
	if err != nil {
		panic(err)
	}
	return v
}
