package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/buildtall-systems/kitchen/internal/config"
	"github.com/buildtall-systems/kitchen/internal/db"
	"github.com/buildtall-systems/kitchen/internal/logging"
	"github.com/buildtall-systems/kitchen/internal/session"
)

func newReportCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the report of the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := logging.New(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Verbose)

			database, err := db.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer func() { _ = database.Close() }()

			// report only reads; an unmigrated or newer database is refused.
			if err := database.CheckSchema(cmd.Context()); err != nil {
				return fmt.Errorf("checking schema: %w", err)
			}

			r, err := session.Report(cmd.Context(), database, logger)
			r.Render(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if r.Degraded() {
				return errors.New("report incomplete")
			}
			return nil
		},
	}
}
