package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-aggregator/internal/enrich"
	"github.com/sells-group/listing-aggregator/internal/ingest"
	"github.com/sells-group/listing-aggregator/internal/search"
	"github.com/sells-group/listing-aggregator/internal/store"
	"github.com/sells-group/listing-aggregator/pkg/geocode"
)

var ingestWorkers int

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Consume listings from the intake queue",
	Long:  "Runs the ingest pipeline: parse, normalize, geocode, dedup, then write to Postgres and the search index. Stops after draining in-flight messages on SIGINT/SIGTERM.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		idx, err := search.New(cfg.Search)
		if err != nil {
			return err
		}
		if err := idx.EnsureIndex(ctx); err != nil {
			return err
		}

		geocoder, err := geocode.NewClient(cfg.Geocoder.Provider,
			geocode.WithAPIKey(cfg.Geocoder.APIKey),
			geocode.WithRateLimit(cfg.Geocoder.RateLimitRPS),
		)
		if err != nil {
			return err
		}

		enricher := enrich.New(geocoder, st, cfg.Geocoder, cfg.Dedup)
		processor := ingest.NewProcessor(enricher, st, idx)
		consumer := ingest.NewConsumer(cfg.Queue, processor, ingestWorkers)

		zap.L().Info("starting ingest",
			zap.String("queue", cfg.Queue.Name),
			zap.Int("workers", ingestWorkers),
		)
		return consumer.Run(ctx)
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 1, "parallel consumer workers")
	rootCmd.AddCommand(ingestCmd)
}
