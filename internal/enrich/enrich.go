// Package enrich geocodes normalized listings and marks near-duplicates
// against the master store.
package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/listing-aggregator/internal/config"
	"github.com/sells-group/listing-aggregator/internal/model"
	"github.com/sells-group/listing-aggregator/internal/resilience"
	"github.com/sells-group/listing-aggregator/internal/store"
	"github.com/sells-group/listing-aggregator/pkg/geocode"
)

const candidateLimit = 5

// Enricher runs the geocode and duplicate-detection stage of the pipeline.
type Enricher struct {
	geocoder geocode.Client
	store    store.Store
	dedup    config.DedupConfig
	timeout  config.GeocoderConfig
	retry    resilience.RetryConfig
}

// New creates an Enricher. The retry policy applies to geocoder calls only;
// duplicate lookups run once.
func New(geocoder geocode.Client, st store.Store, geoCfg config.GeocoderConfig, dedupCfg config.DedupConfig) *Enricher {
	return &Enricher{
		geocoder: geocoder,
		store:    st,
		dedup:    dedupCfg,
		timeout:  geoCfg,
		retry:    resilience.DefaultRetryConfig(),
	}
}

// Enrich geocodes the listing and, when coordinates are available, marks it
// as a potential duplicate of the best-matching active listing from another
// source. Both steps are best-effort: failures log and leave the listing
// publishable as active.
func (e *Enricher) Enrich(ctx context.Context, l *model.Listing) {
	e.geocodeListing(ctx, l)
	e.markDuplicate(ctx, l)
}

func (e *Enricher) geocodeListing(ctx context.Context, l *model.Listing) {
	address := l.AddressRaw
	if address == "" {
		address = l.LocationText
	}
	if address == "" {
		return
	}

	cfg := e.retry
	cfg.OnRetry = resilience.RetryLogger("geocoder", "geocode")

	res, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*geocode.Result, error) {
		ctx, cancel := context.WithTimeout(ctx, e.timeout.Timeout())
		defer cancel()
		return e.geocoder.Geocode(ctx, address)
	})
	if err != nil {
		zap.L().Warn("geocoding failed, proceeding without coordinates",
			zap.String("source_url", l.SourceURL),
			zap.Error(err),
		)
		return
	}
	if !res.Matched {
		zap.L().Debug("geocoder returned no match",
			zap.String("source_url", l.SourceURL),
			zap.String("address", address),
		)
		return
	}

	lat, lon := res.Latitude, res.Longitude
	l.Latitude = &lat
	l.Longitude = &lon
	l.GeocodedPayload = res.Raw
}

// markDuplicate annotates the listing only; the matched peer record is
// never modified.
func (e *Enricher) markDuplicate(ctx context.Context, l *model.Listing) {
	if !l.HasCoordinates() || l.Title == "" {
		return
	}

	candidates, err := e.store.FindDuplicateCandidates(ctx, store.DuplicateQuery{
		Title:               l.Title,
		SourceName:          l.SourceName,
		Latitude:            *l.Latitude,
		Longitude:           *l.Longitude,
		LatThreshold:        e.dedup.LatThreshold,
		LonThreshold:        e.dedup.LonThreshold,
		SimilarityThreshold: e.dedup.SimilarityThreshold,
		Limit:               candidateLimit,
	})
	if err != nil {
		zap.L().Warn("duplicate lookup failed, treating as no candidates",
			zap.String("source_url", l.SourceURL),
			zap.Error(err),
		)
		return
	}
	if len(candidates) == 0 {
		return
	}

	best := candidates[0]
	l.Status = model.StatusPotentialDuplicate
	l.DuplicateOfID = &best.ID

	zap.L().Info("marked potential duplicate",
		zap.String("source_url", l.SourceURL),
		zap.Int64("duplicate_of_id", best.ID),
		zap.Float64("similarity", best.Similarity),
	)
}
