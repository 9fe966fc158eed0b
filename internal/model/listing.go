// Package model defines the domain types shared across the ingest pipeline
// and the query API.
package model

import (
	"encoding/json"
	"time"
)

// Status is the dedup lifecycle state of a listing.
type Status string

const (
	StatusActive             Status = "active"
	StatusPotentialDuplicate Status = "potential_duplicate"
	StatusMerged             Status = "merged"
	StatusInactive           Status = "inactive"
)

// Listing is the master record for a single property observation, keyed by
// SourceURL. Optional attributes are pointers; nil means the source did not
// provide the value (or it could not be parsed).
type Listing struct {
	ID         int64  `json:"id,omitempty"`
	SourceURL  string `json:"source_url"`
	SourceName string `json:"source_name"`

	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`

	PriceOriginalNumeric *float64 `json:"price_original_numeric,omitempty"`
	PriceOriginalText    string   `json:"price_original_text,omitempty"`
	CurrencyOriginal     *string  `json:"currency_original,omitempty"`
	NormalizedPriceUSD   *float64 `json:"normalized_price_usd,omitempty"`

	AddressRaw      string          `json:"address_raw,omitempty"`
	LocationText    string          `json:"location_text,omitempty"`
	Latitude        *float64        `json:"latitude,omitempty"`
	Longitude       *float64        `json:"longitude,omitempty"`
	GeocodedPayload json.RawMessage `json:"geocoded_payload,omitempty"`

	Bedrooms           *int     `json:"bedrooms,omitempty"`
	Bathrooms          *float64 `json:"bathrooms,omitempty"`
	AreaValue          *float64 `json:"area_value,omitempty"`
	AreaUnit           *string  `json:"area_unit,omitempty"`
	NormalizedAreaSqft *float64 `json:"normalized_area_sqft,omitempty"`

	PropertyType *string  `json:"property_type,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`

	DatePosted      *time.Time `json:"date_posted,omitempty"`
	ScrapeTimestamp time.Time  `json:"scrape_timestamp"`
	CreatedAt       time.Time  `json:"created_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at,omitempty"`

	Status        Status `json:"status"`
	DuplicateOfID *int64 `json:"duplicate_of_id,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (l *Listing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// GeoPoint is a latitude/longitude pair as indexed in the search store.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Document is the search-index projection of a Listing, keyed by source_url.
// Field names follow the index mapping, which predates the master schema and
// spells a few attributes differently (area_unit_original, area_original_value,
// duplicate_of_property_id).
type Document struct {
	SourceURL  string `json:"source_url"`
	SourceName string `json:"source_name,omitempty"`

	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Images      []string `json:"images,omitempty"`

	PriceOriginalNumeric *float64 `json:"price_original_numeric,omitempty"`
	PriceOriginalText    string   `json:"price_original_text,omitempty"`
	CurrencyOriginal     *string  `json:"currency_original,omitempty"`
	NormalizedPriceUSD   *float64 `json:"normalized_price_usd,omitempty"`

	AddressRaw   string `json:"address_raw,omitempty"`
	LocationText string `json:"location_text,omitempty"`

	Bedrooms           *int     `json:"bedrooms,omitempty"`
	Bathrooms          *float64 `json:"bathrooms,omitempty"`
	AreaOriginalValue  *float64 `json:"area_original_value,omitempty"`
	AreaUnitOriginal   *string  `json:"area_unit_original,omitempty"`
	NormalizedAreaSqft *float64 `json:"normalized_area_sqft,omitempty"`

	PropertyType *string  `json:"property_type,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`

	DatePosted      *time.Time `json:"date_posted,omitempty"`
	ScrapeTimestamp time.Time  `json:"scrape_timestamp"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`

	Status                Status    `json:"status"`
	DuplicateOfPropertyID *int64    `json:"duplicate_of_property_id,omitempty"`
	LocationCoordinates   *GeoPoint `json:"location_coordinates,omitempty"`
}

// NewDocument projects a master Listing onto its search document.
func NewDocument(l *Listing) *Document {
	doc := &Document{
		SourceURL:             l.SourceURL,
		SourceName:            l.SourceName,
		Title:                 l.Title,
		Description:           l.Description,
		Images:                l.Images,
		PriceOriginalNumeric:  l.PriceOriginalNumeric,
		PriceOriginalText:     l.PriceOriginalText,
		CurrencyOriginal:      l.CurrencyOriginal,
		NormalizedPriceUSD:    l.NormalizedPriceUSD,
		AddressRaw:            l.AddressRaw,
		LocationText:          l.LocationText,
		Bedrooms:              l.Bedrooms,
		Bathrooms:             l.Bathrooms,
		AreaOriginalValue:     l.AreaValue,
		AreaUnitOriginal:      l.AreaUnit,
		NormalizedAreaSqft:    l.NormalizedAreaSqft,
		PropertyType:          l.PropertyType,
		Amenities:             l.Amenities,
		DatePosted:            l.DatePosted,
		ScrapeTimestamp:       l.ScrapeTimestamp,
		Status:                l.Status,
		DuplicateOfPropertyID: l.DuplicateOfID,
	}
	if !l.CreatedAt.IsZero() {
		t := l.CreatedAt
		doc.CreatedAt = &t
	}
	if !l.UpdatedAt.IsZero() {
		t := l.UpdatedAt
		doc.UpdatedAt = &t
	}
	if l.HasCoordinates() {
		doc.LocationCoordinates = &GeoPoint{Lat: *l.Latitude, Lon: *l.Longitude}
	}
	return doc
}
