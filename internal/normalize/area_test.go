package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArea(t *testing.T) {
	tests := []struct {
		name  string
		input string
		value *float64
		unit  string
	}{
		{"sqft", "900 sqft", f(900), UnitSqft},
		{"sq.ft", "1,200 sq.ft", f(1200), UnitSqft},
		{"ft2", "850ft2", f(850), UnitSqft},
		{"sqm", "85 sqm", f(85), UnitSqm},
		{"m2", "85 m2", f(85), UnitSqm},
		{"unicode m²", "85 m²", f(85), UnitSqm},
		{"acre singular", "1 acre", f(1), UnitAcres},
		{"acres", "2.5 acres", f(2.5), UnitAcres},
		{"bare number", "1100", f(1100), ""},
		{"no digits", "spacious", nil, ""},
		{"empty", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseArea(tt.input)
			assert.Equal(t, tt.unit, got.Unit)
			if tt.value == nil {
				assert.Nil(t, got.Value)
			} else {
				require.NotNil(t, got.Value)
				assert.InDelta(t, *tt.value, *got.Value, 0.001)
			}
		})
	}
}

func TestConvertToSqft(t *testing.T) {
	one := ParseArea("1 acres")
	require.NotNil(t, one.Value)
	got := ConvertToSqft(one.Value, one.Unit)
	require.NotNil(t, got)
	assert.InDelta(t, 43560, *got, 0.001)

	sqm := ConvertToSqft(f(100), UnitSqm)
	require.NotNil(t, sqm)
	assert.InDelta(t, 1076.39, *sqm, 0.001)

	// No unit token means the value is taken as square feet.
	plain := ConvertToSqft(f(900), "")
	require.NotNil(t, plain)
	assert.InDelta(t, 900, *plain, 0.001)

	assert.Nil(t, ConvertToSqft(nil, UnitSqft))
}
