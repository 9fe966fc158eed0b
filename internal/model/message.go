package model

import (
	"encoding/json"
	"strings"
)

// RawListing is the queue message published by the scraper workers. Every
// field is optional; scrapers disagree about types, so the flexible fields
// accept more than one JSON shape.
type RawListing struct {
	Title         string     `json:"title"`
	Price         FlexString `json:"price"`
	PriceText     string     `json:"price_text"`
	Location      string     `json:"location"`
	LocationText  string     `json:"location_text"`
	Address       string     `json:"address"`
	BedroomsText  string     `json:"bedrooms_text"`
	BathroomsText string     `json:"bathrooms_text"`
	Area          FlexString `json:"area"`
	AreaText      string     `json:"area_text"`
	Images        StringList `json:"images"`
	Description   string     `json:"description"`
	PropertyType  string     `json:"property_type"`
	Amenities     StringList `json:"amenities"`
	SourceURL     string     `json:"source_url"`
	SourceName    string     `json:"source_name"`
	DatePosted    string     `json:"date_posted"`
}

// PriceInput returns the best available price text, preferring price_text.
func (r *RawListing) PriceInput() string {
	if r.PriceText != "" {
		return r.PriceText
	}
	return string(r.Price)
}

// AreaInput returns the best available area text, preferring area_text.
func (r *RawListing) AreaInput() string {
	if r.AreaText != "" {
		return r.AreaText
	}
	return string(r.Area)
}

// LocationInput returns the best available location label. Some scrapers
// publish "address" instead of "location".
func (r *RawListing) LocationInput() string {
	if r.LocationText != "" {
		return r.LocationText
	}
	if r.Location != "" {
		return r.Location
	}
	return r.Address
}

// FlexString is a string that also accepts a JSON number or null.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// StringList is a []string that also accepts a single JSON string, which is
// split on commas. Empty elements are dropped.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*s = nil
		return nil
	}
	if trimmed[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*s = cleanList(items)
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*s = cleanList(strings.Split(single, ","))
	return nil
}

func cleanList(items []string) []string {
	var out []string
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}
