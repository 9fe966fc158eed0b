// Package search maintains the derived search index and runs the query
// API's searches against it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/url"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-aggregator/internal/config"
	"github.com/sells-group/listing-aggregator/internal/model"
)

// Index is the search-store interface used by the ingest pipeline and the
// query API.
type Index interface {
	// EnsureIndex creates the index with its mapping if it does not exist.
	EnsureIndex(ctx context.Context) error

	// IndexListing upserts the listing's document, keyed by source_url.
	IndexListing(ctx context.Context, l *model.Listing) error

	// Search runs a filtered, sorted, paginated property search.
	Search(ctx context.Context, p Params) (*Result, error)

	// FacetMetadata aggregates filter bounds and term buckets over active
	// listings.
	FacetMetadata(ctx context.Context) (*Facets, error)

	Ping(ctx context.Context) error
}

// Result is one page of search hits.
type Result struct {
	Total int64
	Items []*model.Document
}

// Bounds is a numeric min/max facet. Nil when the corpus has no values for
// the field.
type Bounds struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// Bucket is one term facet entry.
type Bucket struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Facets is the filter-metadata bundle served by the query API.
type Facets struct {
	Price         Bounds   `json:"price"`
	Bedrooms      Bounds   `json:"bedrooms"`
	Bathrooms     Bounds   `json:"bathrooms"`
	AreaSqft      Bounds   `json:"area_sqft"`
	PropertyTypes []Bucket `json:"property_types"`
	Amenities     []Bucket `json:"amenities"`
	Locations     []Bucket `json:"locations"`
}

// Client implements Index over an Elasticsearch cluster.
type Client struct {
	es    *elasticsearch.Client
	index string
}

// New creates a search client for the configured cluster and index.
func New(cfg config.SearchConfig) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: create client")
	}
	return &Client{es: es, index: cfg.Index}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return eris.Wrap(err, "search: ping")
	}
	defer res.Body.Close() //nolint:errcheck
	if res.IsError() {
		return eris.Errorf("search: ping returned %s", res.Status())
	}
	return nil
}

// EnsureIndex implements Index.
func (c *Client) EnsureIndex(ctx context.Context) error {
	exists, err := c.es.Indices.Exists([]string{c.index},
		c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return eris.Wrap(err, "search: check index")
	}
	defer exists.Body.Close() //nolint:errcheck
	if exists.StatusCode == 200 {
		return nil
	}
	if exists.StatusCode != 404 {
		return eris.Errorf("search: check index returned %s", exists.Status())
	}

	res, err := c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))))
	if err != nil {
		return eris.Wrap(err, "search: create index")
	}
	defer res.Body.Close() //nolint:errcheck
	if res.IsError() {
		return eris.Errorf("search: create index returned %s: %s", res.Status(), readBody(res.Body))
	}
	return nil
}

// IndexListing implements Index. The document id is the source_url, so a
// re-ingest of the same listing overwrites its document in place.
func (c *Client) IndexListing(ctx context.Context, l *model.Listing) error {
	body, err := json.Marshal(model.NewDocument(l))
	if err != nil {
		return eris.Wrap(err, "search: marshal document")
	}

	res, err := c.es.Index(c.index, bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(url.PathEscape(l.SourceURL)))
	if err != nil {
		return eris.Wrapf(err, "search: index %s", l.SourceURL)
	}
	defer res.Body.Close() //nolint:errcheck
	if res.IsError() {
		return eris.Errorf("search: index %s returned %s: %s", l.SourceURL, res.Status(), readBody(res.Body))
	}
	return nil
}

// searchResponse is the subset of the search API response we read.
type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source *model.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search implements Index.
func (c *Client) Search(ctx context.Context, p Params) (*Result, error) {
	body, err := json.Marshal(buildSearchBody(p))
	if err != nil {
		return nil, eris.Wrap(err, "search: marshal query")
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, eris.Wrap(err, "search: execute query")
	}
	defer res.Body.Close() //nolint:errcheck
	if res.IsError() {
		return nil, eris.Errorf("search: query returned %s: %s", res.Status(), readBody(res.Body))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, eris.Wrap(err, "search: decode response")
	}

	items := make([]*model.Document, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		if h.Source != nil {
			items = append(items, h.Source)
		}
	}
	return &Result{Total: parsed.Hits.Total.Value, Items: items}, nil
}

// facetResponse is the subset of the aggregation response we read.
type facetResponse struct {
	Aggregations struct {
		MinPrice     valueAgg `json:"min_price"`
		MaxPrice     valueAgg `json:"max_price"`
		MinBedrooms  valueAgg `json:"min_bedrooms"`
		MaxBedrooms  valueAgg `json:"max_bedrooms"`
		MinBathrooms valueAgg `json:"min_bathrooms"`
		MaxBathrooms valueAgg `json:"max_bathrooms"`
		MinAreaSqft  valueAgg `json:"min_area_sqft"`
		MaxAreaSqft  valueAgg `json:"max_area_sqft"`

		PropertyTypes termsAgg `json:"property_types"`
		Amenities     termsAgg `json:"amenities"`
		Locations     termsAgg `json:"locations"`
	} `json:"aggregations"`
}

type valueAgg struct {
	Value *float64 `json:"value"`
}

type termsAgg struct {
	Buckets []struct {
		Key      string `json:"key"`
		DocCount int64  `json:"doc_count"`
	} `json:"buckets"`
}

// FacetMetadata implements Index.
func (c *Client) FacetMetadata(ctx context.Context) (*Facets, error) {
	body, err := json.Marshal(buildFacetBody())
	if err != nil {
		return nil, eris.Wrap(err, "search: marshal facet query")
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, eris.Wrap(err, "search: execute facet query")
	}
	defer res.Body.Close() //nolint:errcheck
	if res.IsError() {
		return nil, eris.Errorf("search: facet query returned %s: %s", res.Status(), readBody(res.Body))
	}

	var parsed facetResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, eris.Wrap(err, "search: decode facet response")
	}

	a := parsed.Aggregations
	return &Facets{
		Price:         Bounds{Min: a.MinPrice.Value, Max: a.MaxPrice.Value},
		Bedrooms:      Bounds{Min: a.MinBedrooms.Value, Max: a.MaxBedrooms.Value},
		Bathrooms:     Bounds{Min: a.MinBathrooms.Value, Max: a.MaxBathrooms.Value},
		AreaSqft:      Bounds{Min: a.MinAreaSqft.Value, Max: a.MaxAreaSqft.Value},
		PropertyTypes: buckets(a.PropertyTypes),
		Amenities:     buckets(a.Amenities),
		Locations:     buckets(a.Locations),
	}, nil
}

func buckets(t termsAgg) []Bucket {
	out := make([]Bucket, 0, len(t.Buckets))
	for _, b := range t.Buckets {
		out = append(out, Bucket{Value: b.Key, Count: b.DocCount})
	}
	return out
}

func readBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil {
		return ""
	}
	return string(b)
}
