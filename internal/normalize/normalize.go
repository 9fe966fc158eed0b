package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/listing-aggregator/internal/model"
)

// DefaultTitle is substituted when a message carries no title.
const DefaultTitle = "Untitled Listing"

// Normalize converts a raw queue message into a master Listing with every
// derivable field populated. It is deterministic apart from the synthetic
// source URL generated for messages that lack one.
func Normalize(raw *model.RawListing, now time.Time) *model.Listing {
	l := &model.Listing{
		SourceURL:       strings.TrimSpace(raw.SourceURL),
		SourceName:      strings.TrimSpace(raw.SourceName),
		Title:           strings.TrimSpace(raw.Title),
		Description:     strings.TrimSpace(raw.Description),
		Images:          raw.Images,
		LocationText:    strings.TrimSpace(raw.LocationInput()),
		AddressRaw:      strings.TrimSpace(raw.Address),
		Amenities:       lowerAll(raw.Amenities),
		ScrapeTimestamp: now.UTC(),
		Status:          model.StatusActive,
	}

	if l.Title == "" {
		l.Title = DefaultTitle
	}
	if l.SourceURL == "" {
		// Uniqueness of source_url anchors the whole pipeline, so a missing
		// URL gets a synthetic one rather than failing the message.
		l.SourceURL = SyntheticSourceURL(now)
	}
	if l.AddressRaw == "" {
		l.AddressRaw = l.LocationText
	}

	price := ParsePrice(raw.PriceInput())
	l.PriceOriginalNumeric = price.Amount
	l.PriceOriginalText = strings.TrimSpace(raw.PriceInput())
	if price.Currency != "" {
		c := price.Currency
		l.CurrencyOriginal = &c
	}
	if price.Amount != nil && price.Currency != "" {
		l.NormalizedPriceUSD = ConvertToUSD(price.Amount, price.Currency)
	}

	area := ParseArea(raw.AreaInput())
	l.AreaValue = area.Value
	if area.Unit != "" {
		u := area.Unit
		l.AreaUnit = &u
	}
	l.NormalizedAreaSqft = ConvertToSqft(area.Value, area.Unit)

	l.Bedrooms = ParseBedrooms(raw.BedroomsText)
	l.Bathrooms = ParseBathrooms(raw.BathroomsText)
	l.DatePosted = ParseDate(raw.DatePosted)

	if pt := strings.ToLower(strings.TrimSpace(raw.PropertyType)); pt != "" {
		l.PropertyType = &pt
	}

	return l
}

// SyntheticSourceURL builds a unique placeholder source URL for messages
// that arrive without one.
func SyntheticSourceURL(now time.Time) string {
	return fmt.Sprintf("missing_url_%d_%s", now.UTC().UnixNano(), uuid.NewString()[:8])
}

// lowerAll lower-cases every element. Amenities are matched with exact
// keyword terms at query time, so the stored form must already be the
// lower-cased form the filter uses.
func lowerAll(items []string) []string {
	if len(items) == 0 {
		return items
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strings.ToLower(it)
	}
	return out
}
