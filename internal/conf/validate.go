// validate.go: configuration validation.
package conf

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a collection of validation failures.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings checks the loaded settings for inconsistencies.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateServerSettings(&settings.Server); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateNotificationSettings(&settings.Notification); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateServerSettings(settings *ServerSettings) error {
	if settings.Port < 1 || settings.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", settings.Port)
	}
	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) error {
	if settings.SQLite.Enabled && settings.MySQL.Enabled {
		return errors.New("only one database backend can be enabled")
	}
	if !settings.SQLite.Enabled && !settings.MySQL.Enabled {
		return errors.New("one database backend must be enabled")
	}
	if settings.SQLite.Enabled && settings.SQLite.Path == "" {
		return errors.New("sqlite path is required when sqlite is enabled")
	}
	if settings.MySQL.Enabled {
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			return errors.New("mysql host and database are required when mysql is enabled")
		}
	}
	return nil
}

func validateNotificationSettings(settings *NotificationSettings) error {
	if settings.Timeout <= 0 {
		return fmt.Errorf("notification timeout must be positive, got %s", settings.Timeout)
	}
	return nil
}
