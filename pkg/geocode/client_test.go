package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-aggregator/internal/resilience"
)

func TestNominatimGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "123 Main St, Seattle, WA", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"47.6062","lon":"-122.3321","display_name":"Seattle, WA"}]`))
	}))
	defer srv.Close()

	c, err := NewClient("nominatim", WithBaseURL(srv.URL), WithRateLimit(100))
	require.NoError(t, err)

	res, err := c.Geocode(context.Background(), "123 Main St, Seattle, WA")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.InDelta(t, 47.6062, res.Latitude, 0.0001)
	assert.InDelta(t, -122.3321, res.Longitude, 0.0001)
	assert.Equal(t, "nominatim", res.Source)
	assert.NotEmpty(t, res.Raw)
}

func TestNominatimGeocodeNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := NewClient("nominatim", WithBaseURL(srv.URL), WithRateLimit(100))
	require.NoError(t, err)

	res, err := c.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestNominatimGeocodeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient("nominatim", WithBaseURL(srv.URL), WithRateLimit(100))
	require.NoError(t, err)

	_, err = c.Geocode(context.Background(), "somewhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.True(t, resilience.IsTransient(err), "5xx from the provider must be retryable")
}

func TestNominatimGeocodeClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewClient("nominatim", WithBaseURL(srv.URL), WithRateLimit(100))
	require.NoError(t, err)

	_, err = c.Geocode(context.Background(), "somewhere")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err), "4xx rejections must not be retried")
}

func TestGoogleGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":40.7128,"lng":-74.006}},"formatted_address":"New York, NY"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient("google", WithAPIKey("secret"), WithBaseURL(srv.URL), WithRateLimit(100))
	require.NoError(t, err)

	res, err := c.Geocode(context.Background(), "New York")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.InDelta(t, 40.7128, res.Latitude, 0.0001)
	assert.InDelta(t, -74.006, res.Longitude, 0.0001)
	assert.Equal(t, "google", res.Source)
}

func TestGoogleGeocodeZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient("google", WithAPIKey("secret"), WithBaseURL(srv.URL), WithRateLimit(100))
	require.NoError(t, err)

	res, err := c.Geocode(context.Background(), "atlantis")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestGoogleRequiresAPIKey(t *testing.T) {
	_, err := NewClient("google")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestUnknownProvider(t *testing.T) {
	_, err := NewClient("mapzen")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestEmptyAddressShortCircuits(t *testing.T) {
	c, err := NewClient("nominatim", WithBaseURL("http://127.0.0.1:1"))
	require.NoError(t, err)

	res, err := c.Geocode(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}
