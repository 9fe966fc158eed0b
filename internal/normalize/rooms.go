package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	bedroomsRe  = regexp.MustCompile(`(\d+)\s*(bedrooms?|beds?|br)`)
	bathroomsRe = regexp.MustCompile(`([0-9.]+)\s*(bathrooms?|baths?|ba)`)
	bareIntRe   = regexp.MustCompile(`^\d+$`)
	bareDecRe   = regexp.MustCompile(`^[0-9.]+$`)
)

// ParseBedrooms extracts a bedroom count from text like "3 Beds", "2br" or
// "Studio". Studios map to 0.
func ParseBedrooms(text string) *int {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return nil
	}
	if strings.Contains(lower, "studio") {
		zero := 0
		return &zero
	}
	if m := bedroomsRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return &v
		}
	}
	if bareIntRe.MatchString(lower) {
		if v, err := strconv.Atoi(lower); err == nil {
			return &v
		}
	}
	return nil
}

// ParseBathrooms extracts a bathroom count from text like "1.5 Bathrooms" or
// "2 BA". Half-steps are preserved.
func ParseBathrooms(text string) *float64 {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return nil
	}
	if m := bathroomsRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return &v
		}
	}
	if bareDecRe.MatchString(lower) {
		if v, err := strconv.ParseFloat(lower, 64); err == nil {
			return &v
		}
	}
	return nil
}
