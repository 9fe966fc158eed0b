package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-aggregator/internal/config"
	"github.com/sells-group/listing-aggregator/internal/model"
)

// newTestClient points the search client at a stub cluster. The product
// header is required by the client's server verification.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(config.SearchConfig{URL: srv.URL, Index: "properties"})
	require.NoError(t, err)
	return c
}

func TestEnsureIndexCreatesWhenMissing(t *testing.T) {
	var created bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/properties":
			var mapping map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&mapping))
			props := mapping["mappings"].(map[string]any)["properties"].(map[string]any)
			assert.Contains(t, props, "location_coordinates")
			assert.Contains(t, props, "bathrooms")
			created = true
			w.Write([]byte(`{"acknowledged":true}`))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	require.NoError(t, c.EnsureIndex(context.Background()))
	assert.True(t, created)
}

func TestEnsureIndexNoopWhenPresent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.EnsureIndex(context.Background()))
}

func TestIndexListingKeyedBySourceURL(t *testing.T) {
	sourceURL := "https://example.com/listing/1"

	var gotPath string
	var gotDoc map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotDoc))
		w.Write([]byte(`{"result":"created"}`))
	})

	lat, lon := 47.6, -122.3
	err := c.IndexListing(context.Background(), &model.Listing{
		SourceURL:       sourceURL,
		Title:           "Loft",
		Latitude:        &lat,
		Longitude:       &lon,
		ScrapeTimestamp: time.Now().UTC(),
		Status:          model.StatusActive,
	})
	require.NoError(t, err)

	// The document id is the escaped source_url.
	assert.True(t, strings.HasPrefix(gotPath, "/properties/_doc/"), gotPath)
	id := strings.TrimPrefix(gotPath, "/properties/_doc/")
	decoded, err := url.PathUnescape(id)
	require.NoError(t, err)
	assert.Equal(t, sourceURL, decoded)

	coords := gotDoc["location_coordinates"].(map[string]any)
	assert.Equal(t, 47.6, coords["lat"])
	assert.Equal(t, -122.3, coords["lon"])
	assert.Equal(t, "active", gotDoc["status"])
}

func TestIndexListingServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	})

	err := c.IndexListing(context.Background(), &model.Listing{SourceURL: "https://x/1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestSearchParsesHits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/properties/_search", r.URL.Path)
		w.Write([]byte(`{
			"hits": {
				"total": {"value": 2},
				"hits": [
					{"_source": {"source_url": "https://x/1", "title": "A", "status": "active"}},
					{"_source": {"source_url": "https://x/2", "title": "B", "status": "active"}}
				]
			}
		}`))
	})

	res, err := c.Search(context.Background(), Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "https://x/1", res.Items[0].SourceURL)
	assert.Equal(t, "B", res.Items[1].Title)
}

func TestSearchServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"parsing_exception"}}`))
	})

	_, err := c.Search(context.Background(), Params{Page: 1, Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing_exception")
}

func TestFacetMetadataParsesAggregations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(0), body["size"])

		w.Write([]byte(`{
			"hits": {"total": {"value": 3}, "hits": []},
			"aggregations": {
				"min_price": {"value": 1200},
				"max_price": {"value": 3500},
				"min_bedrooms": {"value": 1},
				"max_bedrooms": {"value": 4},
				"min_bathrooms": {"value": 1},
				"max_bathrooms": {"value": 2.5},
				"min_area_sqft": {"value": null},
				"max_area_sqft": {"value": null},
				"property_types": {"buckets": [{"key": "apartment", "doc_count": 2}, {"key": "house", "doc_count": 1}]},
				"amenities": {"buckets": [{"key": "parking", "doc_count": 3}]},
				"locations": {"buckets": []}
			}
		}`))
	})

	f, err := c.FacetMetadata(context.Background())
	require.NoError(t, err)
	require.NotNil(t, f.Price.Min)
	assert.Equal(t, 1200.0, *f.Price.Min)
	assert.Equal(t, 3500.0, *f.Price.Max)
	assert.Nil(t, f.AreaSqft.Min)
	require.Len(t, f.PropertyTypes, 2)
	assert.Equal(t, Bucket{Value: "apartment", Count: 2}, f.PropertyTypes[0])
	assert.Empty(t, f.Locations)
}
