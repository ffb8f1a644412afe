package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/account-intel/internal/db"
	"github.com/sells-group/account-intel/internal/snapshot"
)

var (
	seedClients string
	seedCatalog string
	seedMigrate bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load client and catalog files into the Postgres snapshot tables",
	Long:  "Normalizes a client JSON export (and optional catalog file) and replaces the clients, client_usage and product_catalog tables in one transaction.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cfg.Snapshot.DatabaseURL == "" {
			return eris.New("snapshot.database_url is required (ACCOUNT_INTEL_SNAPSHOT_DATABASE_URL)")
		}

		clientsPath := seedClients
		if clientsPath == "" {
			clientsPath = cfg.Snapshot.ClientsPath
		}
		p := &snapshot.Pipeline{Clients: snapshot.FileClients{Path: clientsPath}}
		if seedCatalog != "" {
			p.Catalog = snapshot.FileCatalog{Path: seedCatalog}
		}
		data, err := p.Load(ctx)
		if err != nil {
			return err
		}

		pool, err := db.Connect(ctx, cfg.Snapshot.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		src := snapshot.PostgresSource{Pool: pool}
		if seedMigrate {
			if err := src.Migrate(ctx); err != nil {
				return err
			}
		}

		n, err := src.Seed(ctx, data)
		if err != nil {
			return err
		}
		zap.L().Info("seed complete", zap.Int64("rows", n), zap.String("clients", clientsPath))
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rows\n", n)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedClients, "clients", "", "client JSON file or URL (default snapshot.clients_path)")
	seedCmd.Flags().StringVar(&seedCatalog, "catalog", "", "catalog file (.json, .csv or .xlsx)")
	seedCmd.Flags().BoolVar(&seedMigrate, "migrate", true, "create the snapshot tables first")
	rootCmd.AddCommand(seedCmd)
}
