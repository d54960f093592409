package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNew_TeesExtraCores(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := ProductionConfig()
	cfg.Output = "stderr"

	l := New(cfg, core)
	l.Info("quote confirmed", zap.String("quote_no", "QT260101001"))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "QT260101001", logs.All()[0].ContextMap()["quote_no"])
}

func TestEnrich(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithActorID(ctx, "actor-1")
	ctx = WithContext(ctx, base)

	L(ctx).Info("payment submitted")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", fields["trace_id"])
	assert.Equal(t, "0102030405060708", fields["span_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "actor-1", fields["actor_id"])
}

func TestFromContext_DefaultsToNop(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.NotPanics(t, func() { l.Info("dropped") })
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetActorID(context.Background()))
}

func TestGinMiddleware_LevelByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(GinMiddleware(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/frozen", func(c *gin.Context) { c.Status(http.StatusConflict) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/frozen", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path+"?page=1", nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "page=1", entries[0].ContextMap()["query"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.ErrorLevel)

	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/panic", func(c *gin.Context) { panic("unexpected") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn,
		WithSlowThreshold(10*time.Millisecond),
		WithLockWaitThreshold(500*time.Millisecond),
	)
	ctx := context.Background()
	plain := func() (string, int64) { return "SELECT * FROM quote_payments WHERE quote_id = 1", 3 }
	locking := func() (string, int64) { return "SELECT * FROM quotes WHERE id = 1 for update", 1 }

	gl.Trace(ctx, time.Now(), locking, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len(), "record not found is ignored")

	gl.Trace(ctx, time.Now(), locking, errors.New("deadlock detected"))
	require.Equal(t, 1, logs.FilterMessage("SQL Error").Len())
	assert.Equal(t, true, logs.FilterMessage("SQL Error").All()[0].ContextMap()["lock"])

	gl.Trace(ctx, time.Now().Add(-100*time.Millisecond), plain, nil)
	assert.Equal(t, 1, logs.FilterMessage("Slow SQL").Len())

	gl.Trace(ctx, time.Now().Add(-100*time.Millisecond), locking, nil)
	assert.Equal(t, 0, logs.FilterMessage("Row lock wait exceeded threshold").Len(), "short lock waits are expected")

	gl.Trace(ctx, time.Now().Add(-time.Second), locking, nil)
	assert.Equal(t, 1, logs.FilterMessage("Row lock wait exceeded threshold").Len())

	gl.Trace(ctx, time.Now(), plain, nil)
	assert.Equal(t, 3, logs.Len(), "fast queries are not logged at warn level")

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), plain, errors.New("ignored"))
	assert.Equal(t, 3, logs.Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("ERROR"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(" warn "))
}
