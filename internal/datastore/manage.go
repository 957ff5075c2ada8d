package datastore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/subtrackr/subtrackr/internal/errors"
	"github.com/subtrackr/subtrackr/internal/logging"
)

// slowQueryThreshold marks queries worth logging at warn level. One second
// accommodates migration batch statements.
const slowQueryThreshold = 1 * time.Second

var (
	storeLogger     *slog.Logger
	storeLoggerOnce sync.Once
)

func getLogger() *slog.Logger {
	storeLoggerOnce.Do(func() {
		storeLogger = logging.ForService("datastore")
	})
	return storeLogger
}

// slogGormLogger adapts the GORM logger interface onto slog.
type slogGormLogger struct {
	log       *slog.Logger
	threshold time.Duration
}

func createGormLogger() gormlogger.Interface {
	return &slogGormLogger{log: getLogger(), threshold: slowQueryThreshold}
}

func (l *slogGormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return l }

func (l *slogGormLogger) Info(_ context.Context, msg string, args ...any) {
	l.log.Info(msg, "args", args)
}

func (l *slogGormLogger) Warn(_ context.Context, msg string, args ...any) {
	l.log.Warn(msg, "args", args)
}

func (l *slogGormLogger) Error(_ context.Context, msg string, args ...any) {
	l.log.Error(msg, "args", args)
}

func (l *slogGormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error("query failed", "error", err, "sql", sql, "rows", rows, "elapsed", elapsed)
	case elapsed > l.threshold:
		sql, rows := fc()
		l.log.Warn("slow query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}

// performAutoMigration brings the schema up to date for all entities.
func performAutoMigration(db *gorm.DB, dbType string) error {
	err := db.AutoMigrate(
		&User{},
		&Category{},
		&Service{},
		&ServicePlan{},
		&Subscription{},
		&NotificationRecord{},
		&APIKey{},
	)
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", dbType).
			Build()
	}
	getLogger().Info("database schema migrated", "db_type", dbType)
	return nil
}
