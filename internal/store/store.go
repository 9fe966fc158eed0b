// Package store persists listings to the relational master store.
package store

import (
	"context"
	"time"

	"github.com/sells-group/listing-aggregator/internal/model"
)

// DuplicateQuery describes a duplicate-candidate search against the master
// store. Latitude/longitude bounds form a coarse rectangular band; title
// similarity is computed with pg_trgm.
type DuplicateQuery struct {
	Title               string
	SourceName          string
	Latitude            float64
	Longitude           float64
	LatThreshold        float64
	LonThreshold        float64
	SimilarityThreshold float64
	Limit               int
}

// Candidate is one potential duplicate of an incoming listing.
type Candidate struct {
	ID              int64
	Title           string
	SourceName      string
	Similarity      float64
	ScrapeTimestamp time.Time
}

// UpsertResult reports the identity and timestamps assigned by an upsert.
type UpsertResult struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistence interface for the master listing record.
type Store interface {
	// UpsertListing inserts the listing or, when source_url already exists,
	// updates every normalized field in place.
	UpsertListing(ctx context.Context, l *model.Listing) (*UpsertResult, error)

	// FindDuplicateCandidates returns active listings from other sources
	// within the coordinate band whose titles are similar enough, ordered
	// by similarity then recency, both descending.
	FindDuplicateCandidates(ctx context.Context, q DuplicateQuery) ([]Candidate, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
