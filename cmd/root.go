// Package cmd assembles the command line interface.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/subtrackr/subtrackr/cmd/migrate"
	"github.com/subtrackr/subtrackr/cmd/notify"
	"github.com/subtrackr/subtrackr/cmd/serve"
	"github.com/subtrackr/subtrackr/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "subtrackr",
		Short: "SubTrackr subscription tracker",
		Long:  "Tracks household subscriptions and sends payment reminders over email, browser push, Pushbullet and Pushover.",
	}

	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "enable debug logging")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		cobra.CheckErr(err)
	}

	rootCmd.AddCommand(
		serve.Command(settings),
		migrate.Command(settings),
		notify.Command(settings),
	)
	return rootCmd
}
