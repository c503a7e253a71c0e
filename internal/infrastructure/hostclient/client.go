// Package hostclient reaches the browser shim over HTTP. The shim serves
// POST /commands, taking a host.Command and answering a host.Reply.
//
// Requests go through a rate limiter, a circuit breaker and
// retryablehttp's transport, in that order.
package hostclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/host"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AdMonitor/internal/shared/id"
)

// CommandsPath is where the shim accepts commands
const CommandsPath = "/commands"

// Config configures the client
type Config struct {
	BaseURL      string
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit is requests per second; zero means unlimited
	RateLimit float64
	// BreakerThreshold is the consecutive failures that open the breaker
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

// DefaultConfig returns the client defaults for a shim on localhost
func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://127.0.0.1:8765",
		RetryMax:         3,
		RetryWaitMin:     100 * time.Millisecond,
		RetryWaitMax:     time.Second,
		BreakerThreshold: 5,
		BreakerCooldown:  10 * time.Second,
	}
}

// Client is a host.Bridge over HTTP
type Client struct {
	host.Bridge

	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates a client for the shim at cfg.BaseURL
func New(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil

	// Retries happen in the retryablehttp transport, not in resty
	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "AdMonitor-Host/1.0").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1)
	}

	breaker := resilience.New("host-http", resilience.Settings{
		Threshold: cfg.BreakerThreshold,
		Cooldown:  cfg.BreakerCooldown,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Host breaker state change",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	c := &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
	}
	c.Bridge = host.Over(c)
	return c
}

// WithMetrics attaches a metrics collector
func (c *Client) WithMetrics(m *monitoring.Metrics) *Client {
	c.metrics = m
	return c
}

// Connected reports whether the host is currently considered reachable
func (c *Client) Connected() bool {
	return c.breaker.State() != resilience.StateOpen
}

// Do sends one command and returns the shim's reply
func (c *Client) Do(ctx context.Context, cmd host.Command) (*host.Reply, error) {
	if cmd.ID == "" {
		cmd.ID = id.NewCommandID().String()
	}
	cmd.TraceID = string(tracing.GetTraceID(ctx))
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("host rate limit: %w", err)
	}

	c.metrics.RecordBridgeMessage("out", cmd.Method)

	var reply host.Reply
	err := c.breaker.Execute(func() error {
		req := c.resty.R().SetContext(ctx)
		tracing.Inject(ctx, req.Header)
		resp, err := req.
			SetBody(cmd).
			SetResult(&reply).
			Post(CommandsPath)
		if err != nil {
			return err
		}
		if resp.StatusCode() == http.StatusNotFound {
			reply = host.Reply{ID: cmd.ID, NotFound: true}
			return nil
		}
		if resp.IsError() {
			return fmt.Errorf("host answered %s", resp.Status())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", cmd.Method, err)
	}

	c.metrics.RecordBridgeMessage("in", cmd.Method)
	if reply.ID != "" && reply.ID != cmd.ID {
		return nil, fmt.Errorf("%s failed: reply %s does not match command %s", cmd.Method, reply.ID, cmd.ID)
	}
	return &reply, nil
}
