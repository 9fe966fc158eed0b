// Package ingest consumes listing messages from the intake queue and drives
// them through normalization, enrichment, and the dual-store write.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-aggregator/internal/enrich"
	"github.com/sells-group/listing-aggregator/internal/model"
	"github.com/sells-group/listing-aggregator/internal/normalize"
	"github.com/sells-group/listing-aggregator/internal/search"
	"github.com/sells-group/listing-aggregator/internal/store"
)

// Processor runs a single message through the pipeline stages in order.
type Processor struct {
	enricher *enrich.Enricher
	store    store.Store
	index    search.Index
	now      func() time.Time
}

// NewProcessor wires the pipeline stages.
func NewProcessor(enricher *enrich.Enricher, st store.Store, idx search.Index) *Processor {
	return &Processor{
		enricher: enricher,
		store:    st,
		index:    idx,
		now:      time.Now,
	}
}

// Process parses, normalizes, enriches, and persists one message. Any error
// is terminal for the message; the caller nacks without requeue. The
// relational upsert always precedes the index write so the master is never
// behind the index.
func (p *Processor) Process(ctx context.Context, payload []byte) error {
	var raw model.RawListing
	if err := json.Unmarshal(payload, &raw); err != nil {
		return eris.Wrap(err, "ingest: parse message")
	}

	l := normalize.Normalize(&raw, p.now().UTC())
	p.enricher.Enrich(ctx, l)

	res, err := p.store.UpsertListing(ctx, l)
	if err != nil {
		return eris.Wrap(err, "ingest: upsert")
	}
	l.ID = res.ID
	l.CreatedAt = res.CreatedAt
	l.UpdatedAt = res.UpdatedAt

	if err := p.index.IndexListing(ctx, l); err != nil {
		// The master record is retained; a re-delivery converges the index.
		return eris.Wrap(err, "ingest: index")
	}

	zap.L().Info("listing ingested",
		zap.Int64("id", l.ID),
		zap.String("source_url", l.SourceURL),
		zap.String("status", string(l.Status)),
	)
	return nil
}
