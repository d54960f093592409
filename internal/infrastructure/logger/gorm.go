package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowQuery = 200 * time.Millisecond
	defaultLockWait  = time.Second
)

// GormLogger routes gorm statements to zap. Locking reads (SELECT ... FOR
// UPDATE on quotes, payments and statements) are judged against their own
// threshold: they queue behind concurrent confirms and are expected to be
// slower than plain reads.
type GormLogger struct {
	logger   *zap.Logger
	level    gormlogger.LogLevel
	slow     time.Duration
	lockWait time.Duration
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the slow query threshold. Zero disables it.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slow = threshold
	}
}

// WithLockWaitThreshold sets the threshold for row-locking statements
func WithLockWaitThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.lockWait = threshold
	}
}

// NewGormLogger creates a new GORM logger backed by zap
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:   zapLogger.Named("gorm"),
		level:    level,
		slow:     defaultSlowQuery,
		lockWait: defaultLockWait,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		Enrich(ctx, l.logger).Info(fmt.Sprintf(msg, data...))
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		Enrich(ctx, l.logger).Warn(fmt.Sprintf(msg, data...))
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		Enrich(ctx, l.logger).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	// Repositories translate a missing row into a NotFound domain error.
	if errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	locking := isLockingRead(sql)
	threshold := l.slow
	if locking {
		threshold = l.lockWait
	}

	log := Enrich(ctx, l.logger).With(
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.Bool("lock", locking),
		zap.String("sql", sql),
	)
	switch {
	case err != nil:
		if l.level >= gormlogger.Error {
			log.Error("SQL Error", zap.Error(err))
		}
	case threshold > 0 && elapsed > threshold && l.level >= gormlogger.Warn:
		if locking {
			log.Warn("Row lock wait exceeded threshold", zap.Duration("threshold", threshold))
			return
		}
		log.Warn("Slow SQL", zap.Duration("threshold", threshold))
	case l.level >= gormlogger.Info:
		log.Debug("SQL Query")
	}
}

func isLockingRead(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), "FOR UPDATE")
}

// MapGormLogLevel maps the log.db setting to a gorm log level; unknown
// values fall back to warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
