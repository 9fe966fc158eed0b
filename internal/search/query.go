package search

import "strconv"

// Params is a validated property search. Pointer fields are absent filters.
type Params struct {
	Query string

	Lat      *float64
	Lon      *float64
	RadiusKM *float64

	MinPrice *float64
	MaxPrice *float64

	PropertyTypes []string

	MinBeds  *int
	MaxBeds  *int
	MinBaths *float64
	MaxBaths *float64

	MinAreaSqft *float64
	MaxAreaSqft *float64

	Amenities []string

	SortBy string
	Order  string

	Page  int
	Limit int
}

// HasGeo reports whether the geo-disc filter is active.
func (p *Params) HasGeo() bool {
	return p.Lat != nil && p.Lon != nil && p.RadiusKM != nil
}

// multiMatchFields carries the relevance boosts for free-text search.
var multiMatchFields = []string{
	"title^3",
	"location_text^2",
	"address_raw^2",
	"description",
	"source_name",
	"property_type",
	"amenities",
}

type m = map[string]any

// buildSearchBody assembles the search request body for /properties.
func buildSearchBody(p Params) m {
	filters := []any{
		m{"term": m{"status": "active"}},
	}

	if r := rangeClause(p.MinPrice, p.MaxPrice); r != nil {
		filters = append(filters, m{"range": m{"normalized_price_usd": r}})
	}
	if r := intRangeClause(p.MinBeds, p.MaxBeds); r != nil {
		filters = append(filters, m{"range": m{"bedrooms": r}})
	}
	if r := rangeClause(p.MinBaths, p.MaxBaths); r != nil {
		filters = append(filters, m{"range": m{"bathrooms": r}})
	}
	if r := rangeClause(p.MinAreaSqft, p.MaxAreaSqft); r != nil {
		filters = append(filters, m{"range": m{"normalized_area_sqft": r}})
	}
	if len(p.PropertyTypes) > 0 {
		filters = append(filters, m{"terms": m{"property_type": p.PropertyTypes}})
	}
	// Amenities are AND-combined: one term filter per amenity.
	for _, a := range p.Amenities {
		filters = append(filters, m{"term": m{"amenities": a}})
	}
	if p.HasGeo() {
		filters = append(filters, m{"geo_distance": m{
			"distance":             formatDistanceKM(*p.RadiusKM),
			"location_coordinates": m{"lat": *p.Lat, "lon": *p.Lon},
		}})
	}

	boolQuery := m{"filter": filters}
	if p.Query != "" {
		boolQuery["must"] = m{"multi_match": m{
			"query":     p.Query,
			"fields":    multiMatchFields,
			"fuzziness": "AUTO",
		}}
	}

	return m{
		"query":            m{"bool": boolQuery},
		"sort":             buildSort(p),
		"from":             (p.Page - 1) * p.Limit,
		"size":             p.Limit,
		"track_total_hits": true,
	}
}

// buildSort resolves the sort chain: the requested (or default) primary key,
// then date descending, then score descending as tie-breaks.
func buildSort(p Params) []any {
	sortBy := p.SortBy
	if sortBy == "" {
		switch {
		case p.Query != "":
			sortBy = "relevance"
		case p.HasGeo():
			sortBy = "distance"
		default:
			sortBy = "date"
		}
	}

	order := p.Order
	if order == "" {
		if sortBy == "distance" {
			order = "asc"
		} else {
			order = "desc"
		}
	}

	var primary any
	switch sortBy {
	case "price":
		primary = m{"normalized_price_usd": m{"order": order}}
	case "area":
		primary = m{"normalized_area_sqft": m{"order": order}}
	case "relevance":
		primary = m{"_score": m{"order": order}}
	case "distance":
		primary = m{"_geo_distance": m{
			"location_coordinates": m{"lat": *p.Lat, "lon": *p.Lon},
			"order":                order,
			"unit":                 "km",
		}}
	default:
		primary = m{"date_posted": m{"order": order}}
	}

	sort := []any{primary}
	if sortBy != "date" {
		sort = append(sort, m{"date_posted": m{"order": "desc"}})
	}
	if sortBy != "relevance" {
		sort = append(sort, m{"_score": m{"order": "desc"}})
	}
	return sort
}

// buildFacetBody assembles the aggregation request for the facet metadata
// endpoint. Location buckets use the address keyword sub-field since
// location_text is analyzed text.
func buildFacetBody() m {
	return m{
		"size":  0,
		"query": m{"term": m{"status": "active"}},
		"aggs": m{
			"min_price":      m{"min": m{"field": "normalized_price_usd"}},
			"max_price":      m{"max": m{"field": "normalized_price_usd"}},
			"min_bedrooms":   m{"min": m{"field": "bedrooms"}},
			"max_bedrooms":   m{"max": m{"field": "bedrooms"}},
			"min_bathrooms":  m{"min": m{"field": "bathrooms"}},
			"max_bathrooms":  m{"max": m{"field": "bathrooms"}},
			"min_area_sqft":  m{"min": m{"field": "normalized_area_sqft"}},
			"max_area_sqft":  m{"max": m{"field": "normalized_area_sqft"}},
			"property_types": m{"terms": m{"field": "property_type", "size": 50}},
			"amenities":      m{"terms": m{"field": "amenities", "size": 50}},
			"locations":      m{"terms": m{"field": "address_raw.keyword", "size": 50}},
		},
	}
}

func formatDistanceKM(km float64) string {
	return strconv.FormatFloat(km, 'f', -1, 64) + "km"
}

func rangeClause(min, max *float64) m {
	if min == nil && max == nil {
		return nil
	}
	r := m{}
	if min != nil {
		r["gte"] = *min
	}
	if max != nil {
		r["lte"] = *max
	}
	return r
}

func intRangeClause(min, max *int) m {
	if min == nil && max == nil {
		return nil
	}
	r := m{}
	if min != nil {
		r["gte"] = *min
	}
	if max != nil {
		r["lte"] = *max
	}
	return r
}
