package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/host"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

var (
	ErrUserMuted = errors.New("tab muted by user")
	ErrRejected  = errors.New("entity handler rejected request")
)

// Action names used in logs and metrics
const (
	ActionMute   = "mute"
	ActionUnmute = "unmute"
	ActionHide   = "hide"
	ActionShow   = "show"
	ActionDebug  = "debug"
)

// DefaultTimeout bounds a single host call
const DefaultTimeout = 5 * time.Second

// Gateway drives a host.Bridge on behalf of the reconciler
type Gateway struct {
	bridge  host.Bridge
	timeout time.Duration
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates a gateway. A non-positive timeout uses DefaultTimeout.
func New(bridge host.Bridge, timeout time.Duration, logger *logging.Logger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gateway{bridge: bridge, timeout: timeout, logger: logger}
}

// WithMetrics attaches a metrics collector
func (g *Gateway) WithMetrics(metrics *monitoring.Metrics) *Gateway {
	g.metrics = metrics
	return g
}

// Mute mutes the tab unless the user already muted it
func (g *Gateway) Mute(ctx context.Context, id types.EntityID) bool {
	return g.run(ctx, ActionMute, id, func(ctx context.Context) error {
		tab, err := g.bridge.GetTab(ctx, id)
		if err != nil {
			return fmt.Errorf("query tab: %w", err)
		}
		if tab.MutedInfo.UserMuted() {
			return ErrUserMuted
		}
		return g.bridge.SetMuted(ctx, id, true)
	})
}

// Unmute unmutes the tab
func (g *Gateway) Unmute(ctx context.Context, id types.EntityID) bool {
	return g.run(ctx, ActionUnmute, id, func(ctx context.Context) error {
		return g.bridge.SetMuted(ctx, id, false)
	})
}

// HidePlayer asks the tab's handler to hide its player
func (g *Gateway) HidePlayer(ctx context.Context, id types.EntityID) bool {
	return g.run(ctx, ActionHide, id, func(ctx context.Context) error {
		return g.send(ctx, id, types.Message{Task: types.TaskTogglePlayer, Hide: types.Bool(true)})
	})
}

// ShowPlayer asks the tab's handler to restore its player
func (g *Gateway) ShowPlayer(ctx context.Context, id types.EntityID) bool {
	return g.run(ctx, ActionShow, id, func(ctx context.Context) error {
		return g.send(ctx, id, types.Message{Task: types.TaskTogglePlayer, Hide: types.Bool(false)})
	})
}

// ToggleDebug flips the debug flag of the tab's handler
func (g *Gateway) ToggleDebug(ctx context.Context, id types.EntityID) bool {
	return g.run(ctx, ActionDebug, id, func(ctx context.Context) error {
		return g.send(ctx, id, types.Message{Task: types.TaskToggleDebug})
	})
}

func (g *Gateway) send(ctx context.Context, id types.EntityID, msg types.Message) error {
	resp, err := g.bridge.SendMessage(ctx, id, msg)
	if err != nil {
		return err
	}
	if resp == nil {
		return host.ErrNoResponse
	}
	if !resp.Success {
		if resp.Message != "" {
			return fmt.Errorf("%w: %s", ErrRejected, resp.Message)
		}
		return ErrRejected
	}
	return nil
}

// run applies the timeout and folds every failure into false
func (g *Gateway) run(ctx context.Context, name string, id types.EntityID, fn func(context.Context) error) (ok bool) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	timer := monitoring.NewTimer(g.metrics, name)
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("action panicked",
				zap.String("action", name),
				zap.Stringer("tab", id),
				zap.Any("panic", r))
			ok = false
		}
		timer.Stop(ok)
	}()

	if err := fn(ctx); err != nil {
		g.logger.Error("action failed",
			zap.String("action", name),
			zap.Stringer("tab", id),
			tracing.Field(ctx),
			zap.Error(err))
		return false
	}

	g.logger.Debug("action applied",
		zap.String("action", name),
		zap.Stringer("tab", id))
	return true
}
