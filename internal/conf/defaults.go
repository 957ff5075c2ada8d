// defaults.go: default configuration values registered with viper.
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers the default values for all settings.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Main settings
	viper.SetDefault("main.name", "SubTrackr")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/subtrackr.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 10*1024*1024)

	// Server settings
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.corsorigins", []string{})

	// Database settings, SQLite is the default backend
	viper.SetDefault("database.sqlite.enabled", true)
	viper.SetDefault("database.sqlite.path", "subtrackr.db")
	viper.SetDefault("database.mysql.enabled", false)
	viper.SetDefault("database.mysql.username", "subtrackr")
	viper.SetDefault("database.mysql.password", "secret")
	viper.SetDefault("database.mysql.database", "subtrackr")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")

	// SMTP settings, empty host selects the log-only transport
	viper.SetDefault("smtp.host", "")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.username", "")
	viper.SetDefault("smtp.password", "")
	viper.SetDefault("smtp.from", "SubTrackr <notifications@subtrackr.app>")
	viper.SetDefault("smtp.starttls", true)

	// Web push settings, keys are generated on first start when empty
	viper.SetDefault("webpush.vapidpublickey", "")
	viper.SetDefault("webpush.vapidprivatekey", "")
	viper.SetDefault("webpush.contact", "admin@subtrackr.app")

	// Notification settings
	viper.SetDefault("notification.timeout", 30*time.Second)
	viper.SetDefault("notification.dashboardurl", "")
	viper.SetDefault("notification.pushbulleturl", "")
	viper.SetDefault("notification.pushoverurl", "")

	// Seed settings
	viper.SetDefault("seed.enabled", true)
}
