package normalize

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-aggregator/internal/model"
)

func TestNormalizeHappyPath(t *testing.T) {
	raw := &model.RawListing{
		Title:         "Sunny 2BR",
		PriceText:     "$2,000/month",
		BedroomsText:  "2 Beds",
		BathroomsText: "1 Bath",
		AreaText:      "900 sqft",
		LocationText:  "Seattle, WA",
		SourceURL:     "u1",
		SourceName:    "S1",
	}
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	l := Normalize(raw, now)

	assert.Equal(t, "u1", l.SourceURL)
	assert.Equal(t, "S1", l.SourceName)
	assert.Equal(t, "Sunny 2BR", l.Title)
	require.NotNil(t, l.NormalizedPriceUSD)
	assert.InDelta(t, 2000, *l.NormalizedPriceUSD, 0.001)
	require.NotNil(t, l.CurrencyOriginal)
	assert.Equal(t, "USD", *l.CurrencyOriginal)
	require.NotNil(t, l.Bedrooms)
	assert.Equal(t, 2, *l.Bedrooms)
	require.NotNil(t, l.Bathrooms)
	assert.InDelta(t, 1, *l.Bathrooms, 0.001)
	require.NotNil(t, l.NormalizedAreaSqft)
	assert.InDelta(t, 900, *l.NormalizedAreaSqft, 0.001)
	assert.Equal(t, "Seattle, WA", l.LocationText)
	assert.Equal(t, model.StatusActive, l.Status)
	assert.Equal(t, now, l.ScrapeTimestamp)
}

func TestNormalizePriceInvariant(t *testing.T) {
	// normalized_price_usd present implies both original amount and currency.
	inputs := []string{"$1,500", "1500", "EUR 900", "cheap", "", "£1.2k"}
	for _, in := range inputs {
		l := Normalize(&model.RawListing{PriceText: in, SourceURL: "u"}, time.Now())
		if l.NormalizedPriceUSD != nil {
			assert.NotNil(t, l.PriceOriginalNumeric, "input %q", in)
			assert.NotNil(t, l.CurrencyOriginal, "input %q", in)
		}
	}
}

func TestNormalizeDefaults(t *testing.T) {
	now := time.Now()
	l := Normalize(&model.RawListing{}, now)

	assert.Equal(t, DefaultTitle, l.Title)
	assert.True(t, strings.HasPrefix(l.SourceURL, "missing_url_"), "got %q", l.SourceURL)

	// Synthetic URLs must not collide.
	l2 := Normalize(&model.RawListing{}, now)
	assert.NotEqual(t, l.SourceURL, l2.SourceURL)
}

func TestNormalizeAmenitiesFromString(t *testing.T) {
	var raw model.RawListing
	payload := `{"source_url":"u","amenities":"Pool, Gym, , Parking"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	l := Normalize(&raw, time.Now())
	assert.Equal(t, []string{"pool", "gym", "parking"}, l.Amenities)
}

func TestNormalizeAmenitiesLowerCased(t *testing.T) {
	// Amenity filters run as exact keyword terms against the stored values,
	// so mixed-case input must land in the index already lower-cased.
	raw := &model.RawListing{
		SourceURL: "u",
		Amenities: []string{"Covered Parking", "Gym", "POOL"},
	}

	l := Normalize(raw, time.Now())
	assert.Equal(t, []string{"covered parking", "gym", "pool"}, l.Amenities)
}

func TestNormalizeImagesFromScalar(t *testing.T) {
	var raw model.RawListing
	payload := `{"source_url":"u","images":"https://a.example/1.jpg"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	l := Normalize(&raw, time.Now())
	assert.Equal(t, []string{"https://a.example/1.jpg"}, l.Images)
}

func TestNormalizePropertyType(t *testing.T) {
	l := Normalize(&model.RawListing{SourceURL: "u", PropertyType: "  Apartment "}, time.Now())
	require.NotNil(t, l.PropertyType)
	assert.Equal(t, "apartment", *l.PropertyType)

	l = Normalize(&model.RawListing{SourceURL: "u", PropertyType: "   "}, time.Now())
	assert.Nil(t, l.PropertyType)
}

func TestNormalizeNumericPriceField(t *testing.T) {
	var raw model.RawListing
	payload := `{"source_url":"u","price":1850.5}`
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	l := Normalize(&raw, time.Now())
	require.NotNil(t, l.PriceOriginalNumeric)
	assert.InDelta(t, 1850.5, *l.PriceOriginalNumeric, 0.001)
	// No currency marker, so no USD normalization.
	assert.Nil(t, l.NormalizedPriceUSD)
}

func TestNormalizeAddressFallsBackToLocation(t *testing.T) {
	var raw model.RawListing
	payload := `{"source_url":"u","location_text":"Portland, OR"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	l := Normalize(&raw, time.Now())
	assert.Equal(t, "Portland, OR", l.AddressRaw)
}
