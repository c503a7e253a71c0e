/*
Package tracing provides lightweight request tracing.

Every HTTP request gets a span. The trace ID comes from the X-Trace-ID
header when the shim sends one, otherwise a fresh ULID is issued. It is
echoed in the response and travels in the request context, so commands
sent to the browser shim while handling the request carry it too and
shim-side logs can be matched with backend logs.

Finished spans are buffered and logged by a single collector goroutine:
at debug level normally, at warn level when the span recorded an error.

# Usage

	tracer := tracing.New("admonitor", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// Inside a handler
	logger.Info("Handled", tracing.Field(c.Request.Context()))
*/
package tracing
