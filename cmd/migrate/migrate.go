// Package migrate implements the schema migration command.
package migrate

import (
	"github.com/spf13/cobra"

	"github.com/subtrackr/subtrackr/internal/conf"
	"github.com/subtrackr/subtrackr/internal/datastore"
	"github.com/subtrackr/subtrackr/internal/logging"
)

// Command returns the migrate subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := conf.ValidateSettings(settings); err != nil {
				return err
			}

			ds := datastore.New(settings)
			if err := ds.Open(); err != nil {
				return err
			}
			defer func() { _ = ds.Close() }()

			if seed {
				if err := datastore.Seed(ds); err != nil {
					return err
				}
			}
			logging.ForService("migrate").Info("migration complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "also seed the service catalog and default member")
	return cmd
}
