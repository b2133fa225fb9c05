package units

import (
	"math"
	"testing"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to string
		expected float64
	}{
		{"mm to mm", 12.5, MM, MM, 12.5},
		{"cm to mm", 96, CM, MM, 960},
		{"in to mm", 1, IN, MM, 25.4},
		{"mm to in", 254, MM, IN, 10},
		{"mm to cm", 15, MM, CM, 1.5},
		{"unitless source is untouched", 7, Unitless, IN, 7},
		{"unitless target is untouched", 7, MM, Unitless, 7},
		{"zero", 0, IN, MM, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Convert(tt.value, tt.from, tt.to)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("Convert(%f, %s, %s) = %f, want %f", tt.value, tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid mm", MM, true},
		{"valid cm", CM, true},
		{"valid in", IN, true},
		{"valid unitless", Unitless, true},
		{"invalid unit", "furlong", false},
		{"empty string", "", false},
		{"case sensitive", "MM", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":        MM,
		" MM ":    MM,
		"Inches":  IN,
		"none":    Unitless,
		"cm":      CM,
		"unknown": "unknown",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInsUnits(t *testing.T) {
	tests := []struct {
		unit string
		code int
	}{
		{MM, 4},
		{CM, 5},
		{IN, 1},
		{Unitless, 0},
		{"bogus", 0},
	}
	for _, tt := range tests {
		if got := InsUnits(tt.unit); got != tt.code {
			t.Errorf("InsUnits(%s) = %d, want %d", tt.unit, got, tt.code)
		}
	}
}

func TestGetValidUnitsString(t *testing.T) {
	expected := "mm, cm, in, unitless"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}

func TestIsMetric(t *testing.T) {
	if !IsMetric(MM) || !IsMetric(CM) {
		t.Error("mm and cm should be metric")
	}
	if IsMetric(IN) {
		t.Error("in should not be metric")
	}
}
