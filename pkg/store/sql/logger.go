//nolint:goprintffuncname
package sql

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormLogger routes gorm's statement log into logrus. Unique violations
// surface as ALREADY_EXISTS errors and are logged at debug level only.
type gormLogger struct {
	log    *logrus.Logger
	config LoggerAdaptorConfig
	level  logger.LogLevel
}

type LoggerAdaptorConfig struct {
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
	// ParameterizedQueries keeps bound values (model inputs, outputs) out of
	// the logged statements.
	ParameterizedQueries bool
}

//nolint:ireturn
func NewLoggerAdaptor(log *logrus.Logger, cfg LoggerAdaptorConfig) logger.Interface {
	return &gormLogger{log: log, config: cfg, level: logger.Info}
}

//nolint:ireturn
func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level

	return &clone
}

// ParamsFilter implements gorm's ParamsFilter hook.
func (l *gormLogger) ParamsFilter(_ context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.config.ParameterizedQueries {
		return sql, nil
	}

	return sql, params
}

const callerDepth = 16

// entry reports the first frame outside gorm and this package, which is the
// service call that issued the statement.
func (l *gormLogger) entry(ctx context.Context) *logrus.Entry {
	entry := l.log.WithContext(ctx)

	pcs := make([]uintptr, callerDepth)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(3, pcs)]) //nolint:mnd

	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "gorm.io/") &&
			!strings.Contains(frame.Function, "/pkg/store/sql.") {
			return entry.WithField("caller", frame.Function)
		}

		if !more {
			return entry
		}
	}
}

func (l *gormLogger) Info(ctx context.Context, format string, args ...interface{}) {
	if l.level >= logger.Info {
		l.entry(ctx).Infof(format, args...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, format string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.entry(ctx).Warnf(format, args...)
	}
}

func (l *gormLogger) Error(ctx context.Context, format string, args ...interface{}) {
	if l.level >= logger.Error {
		l.entry(ctx).Errorf(format, args...)
	}
}

func (l *gormLogger) Trace(
	ctx context.Context,
	begin time.Time,
	statement func() (sql string, rowsAffected int64),
	err error,
) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)

	withSQL := func() *logrus.Entry {
		sql, rows := statement()

		return l.entry(ctx).WithFields(logrus.Fields{
			"elapsed_ms": float64(elapsed.Microseconds()) / 1000, //nolint:mnd
			"rows":       rows,
			"sql":        sql,
		})
	}

	switch {
	case err != nil && isUniqueViolation(err):
		if l.log.IsLevelEnabled(logrus.DebugLevel) {
			withSQL().WithError(err).Debug("unique constraint hit")
		}
	case err != nil && errors.Is(err, gorm.ErrRecordNotFound) && l.config.IgnoreRecordNotFoundError:
		if l.log.IsLevelEnabled(logrus.TraceLevel) {
			withSQL().Trace("no rows")
		}
	case err != nil:
		if l.level >= logger.Error {
			withSQL().WithError(err).Error("SQL error")
		}
	case l.config.SlowThreshold > 0 && elapsed > l.config.SlowThreshold:
		if l.level >= logger.Warn {
			withSQL().Warnf("slow SQL >= %v", l.config.SlowThreshold)
		}
	case l.log.IsLevelEnabled(logrus.DebugLevel):
		withSQL().Debug("SQL trace")
	}
}
