package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-aggregator/internal/search"
	"github.com/sells-group/listing-aggregator/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the relational schema and ensure the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("relational schema applied")

		idx, err := search.New(cfg.Search)
		if err != nil {
			return err
		}
		if err := idx.EnsureIndex(ctx); err != nil {
			return err
		}
		zap.L().Info("search index ensured", zap.String("index", cfg.Search.Index))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
