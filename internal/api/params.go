package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-aggregator/internal/search"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

var validSortKeys = map[string]bool{
	"price":     true,
	"date":      true,
	"area":      true,
	"relevance": true,
	"distance":  true,
}

// parseSearchParams validates the /properties query string. Errors are safe
// to echo back to the client.
func parseSearchParams(q url.Values) (search.Params, error) {
	p := search.Params{
		Query: strings.TrimSpace(q.Get("q")),
		Page:  defaultPage,
		Limit: defaultLimit,
	}

	var err error
	if p.Page, err = positiveInt(q, "page", defaultPage); err != nil {
		return p, err
	}
	if p.Limit, err = positiveInt(q, "limit", defaultLimit); err != nil {
		return p, err
	}

	if p.Lat, err = optionalFloat(q, "lat"); err != nil {
		return p, err
	}
	if p.Lon, err = optionalFloat(q, "lon"); err != nil {
		return p, err
	}
	if p.RadiusKM, err = optionalFloat(q, "radius_km"); err != nil {
		return p, err
	}
	if err := validateGeo(p); err != nil {
		return p, err
	}

	if p.MinPrice, err = optionalFloat(q, "min_price"); err != nil {
		return p, err
	}
	if p.MaxPrice, err = optionalFloat(q, "max_price"); err != nil {
		return p, err
	}
	if p.MinBeds, err = optionalInt(q, "min_beds"); err != nil {
		return p, err
	}
	if p.MaxBeds, err = optionalInt(q, "max_beds"); err != nil {
		return p, err
	}
	if p.MinBaths, err = optionalFloat(q, "min_baths"); err != nil {
		return p, err
	}
	if p.MaxBaths, err = optionalFloat(q, "max_baths"); err != nil {
		return p, err
	}
	if p.MinAreaSqft, err = optionalFloat(q, "min_area_sqft"); err != nil {
		return p, err
	}
	if p.MaxAreaSqft, err = optionalFloat(q, "max_area_sqft"); err != nil {
		return p, err
	}

	p.PropertyTypes = commaList(q.Get("property_type"))
	p.Amenities = commaList(q.Get("amenities"))

	p.SortBy = strings.ToLower(strings.TrimSpace(q.Get("sort_by")))
	if p.SortBy != "" && !validSortKeys[p.SortBy] {
		return p, eris.Errorf("invalid sort_by %q", p.SortBy)
	}
	if p.SortBy == "distance" && !p.HasGeo() {
		return p, eris.New("sort_by=distance requires lat, lon, and radius_km")
	}

	p.Order = strings.ToLower(strings.TrimSpace(q.Get("order")))
	if p.Order != "" && p.Order != "asc" && p.Order != "desc" {
		return p, eris.Errorf("invalid order %q", p.Order)
	}

	return p, nil
}

// validateGeo enforces the all-or-nothing geo triple with a positive radius.
func validateGeo(p search.Params) error {
	present := 0
	for _, v := range []*float64{p.Lat, p.Lon, p.RadiusKM} {
		if v != nil {
			present++
		}
	}
	if present == 0 {
		return nil
	}
	if present < 3 {
		return eris.New("geo filter requires all of lat, lon, and radius_km")
	}
	if *p.RadiusKM <= 0 {
		return eris.New("radius_km must be positive")
	}
	if *p.Lat < -90 || *p.Lat > 90 {
		return eris.New("lat must be between -90 and 90")
	}
	if *p.Lon < -180 || *p.Lon > 180 {
		return eris.New("lon must be between -180 and 180")
	}
	return nil
}

func positiveInt(q url.Values, name string, def int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Errorf("%s must be an integer", name)
	}
	if v < 1 {
		return 0, eris.Errorf("%s must be positive", name)
	}
	return v, nil
}

func optionalInt(q url.Values, name string) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, eris.Errorf("%s must be an integer", name)
	}
	return &v, nil
}

func optionalFloat(q url.Values, name string) (*float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, eris.Errorf("%s must be a number", name)
	}
	return &v, nil
}

// commaList splits, trims, lower-cases, and drops empty entries.
func commaList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// cacheParams flattens the query string for cache-key derivation. Only the
// first value of each parameter participates, matching how the handlers
// read them.
func cacheParams(q url.Values) map[string]string {
	params := make(map[string]string, len(q))
	for k := range q {
		if v := q.Get(k); v != "" {
			params[k] = v
		}
	}
	return params
}
