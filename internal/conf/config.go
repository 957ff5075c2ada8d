// config.go: settings struct and loading for the SubTrackr application.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogRotationType represents the type of log rotation
type LogRotationType string

const (
	RotationDaily  LogRotationType = "daily"
	RotationWeekly LogRotationType = "weekly"
	RotationSize   LogRotationType = "size"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool            // true to enable file logging
	Path     string          // path to log file
	Rotation LogRotationType // rotation type
	MaxSize  int64           // max size in bytes for size rotation
}

// MainSettings contains general application settings
type MainSettings struct {
	Name string    // name of this node, also used as the application name in notifications
	Log  LogConfig // file logging settings
}

// ServerSettings contains HTTP server settings
type ServerSettings struct {
	Host        string   // server listen address
	Port        int      // server listen port
	CORSOrigins []string // allowed CORS origins, empty allows all
}

// SQLiteSettings contains SQLite database settings
type SQLiteSettings struct {
	Enabled bool   // true to enable SQLite
	Path    string // path to the database file
}

// MySQLSettings contains MySQL database settings
type MySQLSettings struct {
	Enabled  bool   // true to enable MySQL
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// DatabaseSettings groups the supported database backends.
// Exactly one backend must be enabled.
type DatabaseSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// SMTPSettings contains outbound mail settings. An empty Host selects the
// log-only fallback transport.
type SMTPSettings struct {
	Host     string // SMTP server host, empty disables real delivery
	Port     int    // SMTP server port
	Username string
	Password string
	From     string // sender address for outgoing mail
	StartTLS bool   // true to require STARTTLS
}

// WebPushSettings contains the process-wide VAPID key pair used for browser
// push. Keys are generated and persisted on first start when left empty.
type WebPushSettings struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Contact         string // contact email included in VAPID claims
}

// NotificationSettings contains settings for the notification dispatch core.
type NotificationSettings struct {
	Timeout       time.Duration // per-channel send timeout
	DashboardURL  string        // URL included in reminder notifications
	PushbulletURL string        // Pushbullet API endpoint override, for tests
	PushoverURL   string        // Pushover API endpoint override, for tests
}

// SeedSettings controls initial data seeding.
type SeedSettings struct {
	Enabled bool // true to seed default services and household member on first start
}

// Settings is the root configuration for the application.
type Settings struct {
	Debug bool // true to enable debug logging

	Main         MainSettings
	Server       ServerSettings
	Database     DatabaseSettings
	SMTP         SMTPSettings
	WebPush      WebPushSettings
	Notification NotificationSettings
	Seed         SeedSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into the global settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := loadSettings()
	if err != nil {
		return nil, fmt.Errorf("error loading settings: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

func loadSettings() (*Settings, error) {
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// No config file found, create one from the defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the default configuration to the first config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	settings := viper.AllSettings()
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling default settings: %w", err)
	}
	if err := os.WriteFile(configPath, yamlData, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the list of directories searched for config.yaml,
// in priority order: current working directory, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}

	configDir, err := os.UserConfigDir()
	if err == nil {
		paths = append(paths, filepath.Join(configDir, "subtrackr"))
	}
	return paths, nil
}

// Setting returns the global settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})

	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SettingIfLoaded returns the global settings instance without triggering a
// load, or nil when no configuration has been loaded yet.
func SettingIfLoaded() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings persists the current settings to the active config file.
// Used to write back generated VAPID keys so browser subscriptions survive restarts.
func SaveSettings(settings *Settings) error {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}

	configPath := viper.ConfigFileUsed()
	if configPath == "" {
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		configPath = filepath.Join(configPaths[0], "config.yaml")
	}

	if err := os.WriteFile(configPath, yamlData, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	settingsInstance = settings
	return nil
}
