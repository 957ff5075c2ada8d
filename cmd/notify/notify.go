// Package notify implements the one-shot reminder sweep command.
package notify

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subtrackr/subtrackr/internal/api"
	"github.com/subtrackr/subtrackr/internal/conf"
	"github.com/subtrackr/subtrackr/internal/datastore"
	"github.com/subtrackr/subtrackr/internal/errors"
	"github.com/subtrackr/subtrackr/internal/notification"
	"github.com/subtrackr/subtrackr/internal/reminder"
)

// Command returns the notify subcommand. By default it runs a single
// due-payment sweep and exits, suitable for cron-style scheduling; with
// --test it sends one test notification through the named channel instead.
func Command(settings *conf.Settings) *cobra.Command {
	var testChannel string
	var userID uint

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Check for due payments and send reminders once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := conf.ValidateSettings(settings); err != nil {
				return err
			}

			ds := datastore.New(settings)
			if err := ds.Open(); err != nil {
				return err
			}
			defer func() { _ = ds.Close() }()
			defer func() { _ = notification.CloseLogger() }()

			notifier, err := api.BuildNotificationManager(settings, ds)
			if err != nil {
				return err
			}

			if testChannel != "" {
				return runTest(cmd.Context(), ds, notifier, testChannel, userID)
			}

			res, err := reminder.New(ds, notifier).CheckAndSend(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("checked %d, sent %d, skipped %d, failed %d\n",
				res.Checked, res.Sent, res.Skipped, res.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&testChannel, "test", "",
		"send a test notification through this channel (email, webpush, pushbullet, pushover) instead of sweeping")
	cmd.Flags().UintVar(&userID, "user", 0,
		"member id for --test; defaults to the default household member")
	return cmd
}

func runTest(ctx context.Context, ds datastore.Interface, notifier *notification.Manager, channel string, userID uint) error {
	ch, err := notification.ParseChannel(channel)
	if err != nil {
		return err
	}
	if userID == 0 {
		user, err := ds.GetDefaultUser()
		if err != nil {
			return err
		}
		userID = user.ID
	}
	ok, err := notifier.SendTestNotification(ctx, userID, ch)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf("test notification via %s was not accepted", ch).
			Component("notify").
			Category(errors.CategoryNotification).
			Context("user_id", userID).
			Build()
	}
	fmt.Printf("test notification sent via %s\n", ch)
	return nil
}
