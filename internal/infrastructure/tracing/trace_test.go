package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/logging"
)

func observed() (*logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.Wrap(zap.New(core), zapcore.DebugLevel), logs
}

func TestStartSpanContinuesTrace(t *testing.T) {
	tracer := New("test", nil)
	defer tracer.Close()

	root, ctx := tracer.StartSpan(context.Background(), "root")
	child, childCtx := tracer.StartSpan(ctx, "child")

	assert.NotEmpty(t, root.TraceID)
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.NotEqual(t, root.SpanID, child.SpanID)
	assert.Equal(t, child.SpanID, GetSpanID(childCtx))
}

func TestInjectExtract(t *testing.T) {
	ctx := WithTrace(context.Background(), "trace-1", "span-1")
	h := http.Header{}
	Inject(ctx, h)

	traceID, spanID := Extract(h)
	assert.Equal(t, TraceID("trace-1"), traceID)
	assert.Equal(t, SpanID("span-1"), spanID)

	empty := http.Header{}
	Inject(context.Background(), empty)
	assert.Empty(t, empty)
}

func TestCloseFlushesSpans(t *testing.T) {
	logger, logs := observed()
	tracer := New("test", logger)

	ok, _ := tracer.StartSpan(context.Background(), "ok")
	ok.Finish()
	tracer.Submit(ok)

	failed, _ := tracer.StartSpan(context.Background(), "failed")
	failed.SetError(errors.New("boom"))
	failed.Finish()
	tracer.Submit(failed)

	tracer.Close()

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, 1, logs.FilterMessage("Span completed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Span completed with error").Len())
}

func TestSubmitAfterCloseIsDropped(t *testing.T) {
	logger, logs := observed()
	tracer := New("test", logger)
	tracer.Close()

	late, _ := tracer.StartSpan(context.Background(), "late")
	late.Finish()
	assert.NotPanics(t, func() { tracer.Submit(late) })
	assert.NotPanics(t, tracer.Close)
	assert.Equal(t, 0, logs.Len())
}

func TestSubmitRacingClose(t *testing.T) {
	tracer := New("test", nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				span, _ := tracer.StartSpan(context.Background(), "work")
				span.Finish()
				tracer.Submit(span)
			}
		}()
	}
	tracer.Close()
	wg.Wait()
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, logs := observed()
	tracer := New("test", logger)

	var seen TraceID
	r := gin.New()
	r.Use(HTTPMiddleware(tracer))
	r.GET("/ping", func(c *gin.Context) {
		seen = GetTraceID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderTraceID, "from-shim")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, TraceID("from-shim"), seen)
	assert.Equal(t, "from-shim", w.Header().Get(HeaderTraceID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderTraceID))
	assert.NotEqual(t, "from-shim", w.Header().Get(HeaderTraceID))

	tracer.Close()
	entries := logs.FilterMessage("Span completed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "/ping", entries[0].ContextMap()["operation"])
	assert.EqualValues(t, http.StatusNoContent, entries[0].ContextMap()["status"])
}
