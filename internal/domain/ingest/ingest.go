package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AdMonitor/internal/domain/classifier"
	"github.com/GriffinCanCode/AdMonitor/internal/domain/reconciler"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

// DefaultOriginPattern matches the GraphQL endpoint the player reports to
const DefaultOriginPattern = "*://gql.twitch.tv/**"

// maxInflated caps a decompressed body
const maxInflated = 4 << 20

var gzipMagic = []byte{0x1f, 0x8b}

// Drop reasons and the accepted marker, used in logs and metrics
const (
	ReasonAccepted = "accepted"
	ReasonOrigin   = "origin"
	ReasonMethod   = "method"
	ReasonNoTab    = "no_tab"
	ReasonNoBody   = "no_body"
)

// RawChunk is one piece of an intercepted request body
type RawChunk struct {
	Bytes []byte `json:"bytes,omitempty"`
}

// RequestBody holds the raw chunks of an intercepted body
type RequestBody struct {
	Raw []RawChunk `json:"raw,omitempty"`
}

// RequestDetails is what the interceptor reports for one outgoing request
type RequestDetails struct {
	Method      string          `json:"method"`
	URL         string          `json:"url,omitempty"`
	TabID       *types.EntityID `json:"tabId,omitempty"`
	RequestBody *RequestBody    `json:"requestBody,omitempty"`
}

// firstChunk returns the bytes of the first body chunk, if any
func (d *RequestDetails) firstChunk() []byte {
	if d.RequestBody == nil || len(d.RequestBody.Raw) == 0 {
		return nil
	}
	return d.RequestBody.Raw[0].Bytes
}

// BatchHandler receives classified batches
type BatchHandler interface {
	HandleBatch(ctx context.Context, id types.EntityID, batch classifier.Batch) reconciler.Outcome
}

// Result reports what happened to one request record
type Result struct {
	Accepted bool               `json:"accepted"`
	Reason   string             `json:"reason"`
	Tags     []string           `json:"tags,omitempty"`
	Outcome  reconciler.Outcome `json:"-"`
	Action   string             `json:"outcome,omitempty"`
}

// Ingestor filters and classifies intercepted requests
type Ingestor struct {
	classifier *classifier.Classifier
	handler    BatchHandler
	patterns   []string
	logger     *logging.Logger
	metrics    *monitoring.Metrics
}

// Option configures an Ingestor
type Option func(*Ingestor)

// WithOriginPatterns replaces the watched origin patterns. An empty list
// watches every origin.
func WithOriginPatterns(patterns ...string) Option {
	return func(i *Ingestor) { i.patterns = patterns }
}

// WithMetrics attaches a metrics collector
func WithMetrics(m *monitoring.Metrics) Option {
	return func(i *Ingestor) { i.metrics = m }
}

// New creates an ingestor feeding handler
func New(c *classifier.Classifier, handler BatchHandler, logger *logging.Logger, opts ...Option) (*Ingestor, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	i := &Ingestor{
		classifier: c,
		handler:    handler,
		patterns:   []string{DefaultOriginPattern},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	for _, p := range i.patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid origin pattern %q", p)
		}
	}
	return i, nil
}

// Ingest filters one request record and, if relevant, classifies its body
// and hands the batch to the handler
func (i *Ingestor) Ingest(ctx context.Context, details RequestDetails) Result {
	if details.URL != "" && !i.watched(details.URL) {
		return i.drop(details, ReasonOrigin)
	}
	if details.Method != "POST" {
		return i.drop(details, ReasonMethod)
	}
	if details.TabID == nil || !details.TabID.Valid() {
		return i.drop(details, ReasonNoTab)
	}
	body := details.firstChunk()
	if len(body) == 0 {
		return i.drop(details, ReasonNoBody)
	}

	batch := i.classifier.Classify(i.inflate(body))
	id := *details.TabID

	i.logger.Debug("Classified intercepted request",
		zap.Stringer("tab", id),
		zap.Strings("tags", batch.Strings()))
	i.metrics.RecordIntercepted(ReasonAccepted)
	i.metrics.RecordTags(batch.Strings())

	outcome := i.handler.HandleBatch(ctx, id, batch)
	return Result{
		Accepted: true,
		Reason:   ReasonAccepted,
		Tags:     batch.Strings(),
		Outcome:  outcome,
		Action:   outcome.String(),
	}
}

func (i *Ingestor) watched(url string) bool {
	if len(i.patterns) == 0 {
		return true
	}
	for _, p := range i.patterns {
		if ok, _ := doublestar.Match(p, url); ok {
			return true
		}
	}
	return false
}

// inflate decompresses gzip bodies. Anything that fails to inflate is
// passed through and will classify as invalid.
func (i *Ingestor) inflate(body []byte) []byte {
	if !bytes.HasPrefix(body, gzipMagic) {
		return body
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		i.logger.Debug("Body looked gzipped but was not", zap.Error(err))
		return body
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxInflated))
	if err != nil {
		i.logger.Debug("Failed to inflate body", zap.Error(err))
		return body
	}
	return out
}

func (i *Ingestor) drop(details RequestDetails, reason string) Result {
	i.logger.Debug("Dropped intercepted request",
		zap.String("reason", reason),
		zap.String("method", details.Method),
		zap.String("url", details.URL))
	i.metrics.RecordIntercepted(reason)
	return Result{Reason: reason}
}
