package main

import (
	"github.com/spf13/cobra"

	"github.com/talgya/segregation/internal/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Step the model continuously and serve it over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if err := applyModelFlags(cmd, cfg); err != nil {
				return err
			}

			db, err := openStore(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			srv, err := api.NewServer(cfg.Model, cfg.Run.Seed, api.Options{
				Port:          cfg.Server.Port,
				AdminKey:      cfg.Server.AdminKey,
				Interval:      cfg.Server.Interval,
				Speed:         cfg.Server.Speed,
				Store:         db,
				SnapshotEvery: cfg.Run.SnapshotEvery,
				CORSOrigins:   cfg.Server.CORSOrigins,
			})
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().Int("port", 0, "HTTP port")
	cmd.Flags().String("preset", "", "Model preset")
	cmd.Flags().Uint64("seed", 0, "Random seed (0 draws one)")
	cmd.Flags().String("db", "", "Record runs in this SQLite database")
	return cmd
}
