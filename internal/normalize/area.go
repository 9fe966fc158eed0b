package normalize

import (
	"strconv"
	"strings"
)

// Area units as stored on the master record.
const (
	UnitSqft  = "sqft"
	UnitSqm   = "m²"
	UnitAcres = "acres"
)

// sqftFactors converts an area unit to square feet.
var sqftFactors = map[string]float64{
	UnitSqft:  1,
	UnitSqm:   10.7639,
	UnitAcres: 43560,
}

// areaTokens maps unit spellings seen in the wild to the canonical unit.
// Order matters: the first token found in the text decides the unit.
var areaTokens = []struct {
	token string
	unit  string
}{
	{"sqft", UnitSqft},
	{"sq.ft", UnitSqft},
	{"ft2", UnitSqft},
	{"m²", UnitSqm},
	{"sqm", UnitSqm},
	{"m2", UnitSqm},
	{"acres", UnitAcres},
	{"acre", UnitAcres},
}

// Area is the parsed form of a free-text area string.
type Area struct {
	Value *float64
	Unit  string // canonical unit, "" when no unit token was present
}

// ParseArea extracts a numeric value and unit from text like "900 sqft",
// "85 m2" or "1.5 acres".
func ParseArea(text string) Area {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Area{}
	}

	var unit string
	for _, t := range areaTokens {
		if strings.Contains(lower, t.token) {
			unit = t.unit
			break
		}
	}

	cleaned := lower
	for _, t := range areaTokens {
		cleaned = strings.ReplaceAll(cleaned, t.token, "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	a := Area{Unit: unit}
	if run := numberRun.FindString(cleaned); run != "" {
		if v, err := strconv.ParseFloat(run, 64); err == nil {
			a.Value = &v
		}
	}
	return a
}

// ConvertToSqft converts value in the given unit to square feet. A value with
// no recognized unit is assumed to already be square feet.
func ConvertToSqft(value *float64, unit string) *float64 {
	if value == nil {
		return nil
	}
	factor, ok := sqftFactors[unit]
	if !ok {
		factor = 1
	}
	v := *value * factor
	return &v
}
