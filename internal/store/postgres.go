package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-aggregator/internal/db"
	"github.com/sells-group/listing-aggregator/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

const upsertListingSQL = `
INSERT INTO properties (
	source_url, source_name, title, description, images,
	price_original_numeric, price_original_text, currency_original, normalized_price_usd,
	address_raw, location_text, latitude, longitude, geocoded_payload,
	bedrooms, bathrooms, area_value, area_unit, normalized_area_sqft,
	property_type, amenities, date_posted, scrape_timestamp, status, duplicate_of_id
) VALUES (
	$1, $2, $3, $4, $5,
	$6, $7, $8, $9,
	$10, $11, $12, $13, $14,
	$15, $16, $17, $18, $19,
	$20, $21, $22, $23, $24, $25
)
ON CONFLICT (source_url) DO UPDATE SET
	source_name = EXCLUDED.source_name,
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	images = EXCLUDED.images,
	price_original_numeric = EXCLUDED.price_original_numeric,
	price_original_text = EXCLUDED.price_original_text,
	currency_original = EXCLUDED.currency_original,
	normalized_price_usd = EXCLUDED.normalized_price_usd,
	address_raw = EXCLUDED.address_raw,
	location_text = EXCLUDED.location_text,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	geocoded_payload = EXCLUDED.geocoded_payload,
	bedrooms = EXCLUDED.bedrooms,
	bathrooms = EXCLUDED.bathrooms,
	area_value = EXCLUDED.area_value,
	area_unit = EXCLUDED.area_unit,
	normalized_area_sqft = EXCLUDED.normalized_area_sqft,
	property_type = EXCLUDED.property_type,
	amenities = EXCLUDED.amenities,
	date_posted = EXCLUDED.date_posted,
	scrape_timestamp = EXCLUDED.scrape_timestamp,
	status = EXCLUDED.status,
	duplicate_of_id = EXCLUDED.duplicate_of_id,
	updated_at = now()
RETURNING id, created_at, updated_at`

const duplicateCandidatesSQL = `
SELECT id, title, source_name, similarity(title, $1) AS sim, scrape_timestamp
FROM properties
WHERE status = 'active'
  AND source_name <> $2
  AND latitude IS NOT NULL AND longitude IS NOT NULL
  AND abs(latitude - $3) <= $4
  AND abs(longitude - $5) <= $6
  AND similarity(title, $1) >= $7
ORDER BY sim DESC, scrape_timestamp DESC
LIMIT $8`

// preparedStatements lists queries to prepare on each new connection. The
// upsert and the duplicate search run once per ingested message.
var preparedStatements = map[string]string{
	"upsert_listing":       upsertListingSQL,
	"duplicate_candidates": duplicateCandidatesSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems needing direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS pg_trgm;

CREATE TABLE IF NOT EXISTS properties (
	id                     BIGSERIAL PRIMARY KEY,
	source_url             TEXT NOT NULL,
	source_name            TEXT NOT NULL DEFAULT '',
	title                  TEXT NOT NULL,
	description            TEXT,
	images                 JSONB,
	price_original_numeric NUMERIC,
	price_original_text    TEXT,
	currency_original      TEXT,
	normalized_price_usd   NUMERIC,
	address_raw            TEXT,
	location_text          TEXT,
	latitude               DOUBLE PRECISION,
	longitude              DOUBLE PRECISION,
	geocoded_payload       JSONB,
	bedrooms               INTEGER,
	bathrooms              NUMERIC,
	area_value             NUMERIC,
	area_unit              TEXT,
	normalized_area_sqft   NUMERIC,
	property_type          TEXT,
	amenities              JSONB,
	date_posted            TIMESTAMPTZ,
	scrape_timestamp       TIMESTAMPTZ NOT NULL,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	status                 TEXT NOT NULL DEFAULT 'active',
	duplicate_of_id        BIGINT REFERENCES properties(id),
	CONSTRAINT chk_properties_coords CHECK (
		(latitude IS NULL) = (longitude IS NULL)
	)
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_properties_source_url ON properties(source_url);
CREATE INDEX IF NOT EXISTS idx_properties_date_posted ON properties(date_posted);
CREATE INDEX IF NOT EXISTS idx_properties_price_usd ON properties(normalized_price_usd);
CREATE INDEX IF NOT EXISTS idx_properties_bedrooms ON properties(bedrooms);
CREATE INDEX IF NOT EXISTS idx_properties_bathrooms ON properties(bathrooms);
CREATE INDEX IF NOT EXISTS idx_properties_area_sqft ON properties(normalized_area_sqft);
CREATE INDEX IF NOT EXISTS idx_properties_coords ON properties(latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_properties_status ON properties(status);
CREATE INDEX IF NOT EXISTS idx_properties_title_trgm ON properties USING gin (title gin_trgm_ops);

CREATE OR REPLACE FUNCTION touch_properties_updated_at() RETURNS trigger AS $$
BEGIN
	NEW.updated_at = now();
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_properties_updated_at ON properties;
CREATE TRIGGER trg_properties_updated_at
	BEFORE UPDATE ON properties
	FOR EACH ROW EXECUTE FUNCTION touch_properties_updated_at();
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// UpsertListing implements Store. The source_url uniqueness constraint is
// the correctness anchor: re-ingesting the same URL updates in place and
// advances updated_at via the ON CONFLICT branch.
func (s *PostgresStore) UpsertListing(ctx context.Context, l *model.Listing) (*UpsertResult, error) {
	images, err := json.Marshal(l.Images)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal images")
	}
	amenities, err := json.Marshal(l.Amenities)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal amenities")
	}

	var payload []byte
	if len(l.GeocodedPayload) > 0 {
		payload = l.GeocodedPayload
	}

	var res UpsertResult
	err = s.pool.QueryRow(ctx, upsertListingSQL,
		l.SourceURL, l.SourceName, l.Title, nilIfEmpty(l.Description), images,
		l.PriceOriginalNumeric, nilIfEmpty(l.PriceOriginalText), l.CurrencyOriginal, l.NormalizedPriceUSD,
		nilIfEmpty(l.AddressRaw), nilIfEmpty(l.LocationText), l.Latitude, l.Longitude, payload,
		l.Bedrooms, l.Bathrooms, l.AreaValue, l.AreaUnit, l.NormalizedAreaSqft,
		l.PropertyType, amenities, l.DatePosted, l.ScrapeTimestamp, string(l.Status), l.DuplicateOfID,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert listing %s", l.SourceURL)
	}
	return &res, nil
}

// FindDuplicateCandidates implements Store.
func (s *PostgresStore) FindDuplicateCandidates(ctx context.Context, q DuplicateQuery) ([]Candidate, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.pool.Query(ctx, duplicateCandidatesSQL,
		q.Title, q.SourceName,
		q.Latitude, q.LatThreshold,
		q.Longitude, q.LonThreshold,
		q.SimilarityThreshold, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: duplicate candidates")
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Title, &c.SourceName, &c.Similarity, &c.ScrapeTimestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		candidates = append(candidates, c)
	}
	return candidates, eris.Wrap(rows.Err(), "postgres: duplicate candidates iterate")
}

// nilIfEmpty maps "" to NULL for optional text columns.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
