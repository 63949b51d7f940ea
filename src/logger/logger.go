package logger

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SlowQueryThreshold marks queries that are logged as warnings.
const SlowQueryThreshold = 200 * time.Millisecond

// LogrusLogger routes gorm's logs through the standard logrus logger.
// Successful queries are logged at debug level.
type LogrusLogger struct {
	logger *logrus.Logger
	level  logger.LogLevel
}

func NewLogrusLogger() *LogrusLogger {
	return &LogrusLogger{
		logger: logrus.StandardLogger(),
		level:  logger.Warn,
	}
}

func (l *LogrusLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.level = level
	return &newLogger
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level < logger.Info {
		return
	}

	l.logger.WithContext(ctx).Infof(msg, data...)
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level < logger.Warn {
		return
	}

	l.logger.WithContext(ctx).Warnf(msg, data...)
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level < logger.Error {
		return
	}

	l.logger.WithContext(ctx).Errorf(msg, data...)
}

func (l *LogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.logger.WithContext(ctx).WithFields(logrus.Fields{
			"elapsed": elapsed,
			"rows":    rows,
			"sql":     sql,
		}).Error(err)
	} else if elapsed > SlowQueryThreshold {
		l.logger.WithContext(ctx).WithFields(logrus.Fields{
			"elapsed": elapsed,
			"rows":    rows,
			"sql":     sql,
		}).Warnf("SLOW SQL >= %v", SlowQueryThreshold)
	} else {
		l.logger.WithContext(ctx).WithFields(logrus.Fields{
			"elapsed": elapsed,
			"rows":    rows,
			"sql":     sql,
		}).Debug("SQL")
	}
}
