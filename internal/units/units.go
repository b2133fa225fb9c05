// Package units provides shared constants, validation and conversion for
// length units.
package units

import "strings"

// Unit constants
const (
	MM       = "mm"
	CM       = "cm"
	IN       = "in"
	Unitless = "unitless"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MM, CM, IN, Unitless}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// Normalize lowercases and trims a unit name. An empty name means MM.
func Normalize(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "":
		return MM
	case "inch", "inches":
		return IN
	case "none":
		return Unitless
	}
	return u
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mm, cm, in, unitless"
}

// mmPer is the length of one unit in millimetres.
func mmPer(unit string) float64 {
	switch unit {
	case CM:
		return 10
	case IN:
		return 25.4
	default:
		return 1
	}
}

// Convert converts a length between units. Unitless on either side is a
// no-op so drawings without declared units keep their raw coordinates.
func Convert(v float64, from, to string) float64 {
	if from == to || from == Unitless || to == Unitless {
		return v
	}
	return v * mmPer(from) / mmPer(to)
}

// ToMM converts a length in the given unit to millimetres.
func ToMM(v float64, from string) float64 {
	return Convert(v, from, MM)
}

// InsUnits returns the DXF $INSUNITS code for a unit.
// 0 = unitless, 1 = inches, 4 = millimetres, 5 = centimetres.
func InsUnits(unit string) int {
	switch unit {
	case MM:
		return 4
	case CM:
		return 5
	case IN:
		return 1
	default:
		return 0
	}
}

// IsMetric reports whether the unit belongs to the metric system, used for
// the DXF $MEASUREMENT header.
func IsMetric(unit string) bool {
	return unit != IN
}
