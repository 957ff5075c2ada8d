// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/subtrackr/subtrackr/internal/api"
	"github.com/subtrackr/subtrackr/internal/conf"
	"github.com/subtrackr/subtrackr/internal/datastore"
	"github.com/subtrackr/subtrackr/internal/errors"
	"github.com/subtrackr/subtrackr/internal/logging"
	"github.com/subtrackr/subtrackr/internal/notification"
	"github.com/subtrackr/subtrackr/internal/reminder"
)

// Command returns the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the SubTrackr server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), settings)
		},
	}
}

func run(ctx context.Context, settings *conf.Settings) error {
	log := logging.ForService("serve")

	if err := conf.ValidateSettings(settings); err != nil {
		return err
	}

	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return err
	}
	defer func() {
		if err := ds.Close(); err != nil {
			log.Error("failed to close datastore", "error", err)
		}
	}()

	if settings.Seed.Enabled {
		if err := datastore.Seed(ds); err != nil {
			return err
		}
	}

	notifier, err := api.BuildNotificationManager(settings, ds)
	if err != nil {
		return err
	}
	defer func() {
		if err := notification.CloseLogger(); err != nil {
			log.Error("failed to close notification log", "error", err)
		}
	}()

	sweeper := reminder.New(ds, notifier)
	server := api.New(settings, ds, notifier, sweeper)
	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(addr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		if err := server.Shutdown(context.Background()); err != nil {
			return errors.New(err).
				Component("serve").
				Category(errors.CategorySystem).
				Build()
		}
		return nil
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.New(err).
				Component("serve").
				Category(errors.CategoryNetwork).
				Context("addr", addr).
				Build()
		}
		return nil
	}
}
