package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Server.Port = 8080
	s.Database.SQLite.Enabled = true
	s.Database.SQLite.Path = "test.db"
	s.Notification.Timeout = 30 * time.Second
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Run("valid settings pass", func(t *testing.T) {
		require.NoError(t, ValidateSettings(validSettings()))
	})

	t.Run("invalid port", func(t *testing.T) {
		s := validSettings()
		s.Server.Port = 0
		err := ValidateSettings(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server port")
	})

	t.Run("both databases enabled", func(t *testing.T) {
		s := validSettings()
		s.Database.MySQL.Enabled = true
		s.Database.MySQL.Host = "localhost"
		s.Database.MySQL.Database = "subtrackr"
		err := ValidateSettings(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only one database backend")
	})

	t.Run("no database enabled", func(t *testing.T) {
		s := validSettings()
		s.Database.SQLite.Enabled = false
		require.Error(t, ValidateSettings(s))
	})

	t.Run("missing sqlite path", func(t *testing.T) {
		s := validSettings()
		s.Database.SQLite.Path = ""
		require.Error(t, ValidateSettings(s))
	})

	t.Run("zero notification timeout", func(t *testing.T) {
		s := validSettings()
		s.Notification.Timeout = 0
		err := ValidateSettings(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "notification timeout")
	})

	t.Run("multiple errors are collected", func(t *testing.T) {
		s := validSettings()
		s.Server.Port = -1
		s.Notification.Timeout = 0
		err := ValidateSettings(s)
		require.Error(t, err)

		var ve ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Len(t, ve.Errors, 2)
	})
}
