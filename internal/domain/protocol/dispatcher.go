package protocol

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/bytedance/sonic"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AdMonitor/internal/shared/types"
)

var (
	ErrTaskNotString = errors.New("task was provided as a non-string value")
	ErrUnknownTask   = errors.New("unknown task")
	ErrMalformed     = errors.New("malformed message")
)

// Reserved message keys; everything else on a log message becomes a field
const (
	keyTask    = "task"
	keyTabID   = "tabId"
	keyMessage = "message"
	keyLevel   = "level"
)

// Toggler performs the manual toggles
type Toggler interface {
	ToggleMute(ctx context.Context, id types.EntityID) bool
	TogglePlayer(ctx context.Context, id types.EntityID) bool
	ToggleDebug(ctx context.Context, tab *types.EntityID) bool
}

// Dispatcher routes messages to their task handlers
type Dispatcher struct {
	toggles Toggler
	logger  *logging.Logger
	policy  *bluemonday.Policy
	metrics *monitoring.Metrics
}

// NewDispatcher creates a dispatcher
func NewDispatcher(toggles Toggler, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		toggles: toggles,
		logger:  logger,
		policy:  bluemonday.StrictPolicy(),
	}
}

// WithMetrics attaches a metrics collector
func (d *Dispatcher) WithMetrics(m *monitoring.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// HandleRaw decodes a JSON message and dispatches it
func (d *Dispatcher) HandleRaw(ctx context.Context, raw []byte) (interface{}, error) {
	var msg map[string]interface{}
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		d.logger.Debug("Undecodable message", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	return d.Handle(ctx, msg)
}

// Handle dispatches a decoded message. Only a non-string task is an error;
// every other failure is reported in the response.
func (d *Dispatcher) Handle(ctx context.Context, msg map[string]interface{}) (interface{}, error) {
	task, ok := msg[keyTask].(string)
	if !ok {
		d.logger.Error("Rejected message", zap.Error(ErrTaskNotString))
		return nil, ErrTaskNotString
	}
	tab := entityParam(msg[keyTabID])

	d.logger.Debug("Received task", zap.String("task", task))

	switch task {
	case types.TaskLog:
		d.log(msg)
		d.metrics.RecordTask(task, true)
		return true, nil
	case types.TaskToggleDebug:
		return d.respond(task, d.toggles.ToggleDebug(ctx, tab)), nil
	case types.TaskToggleMute:
		if tab == nil {
			return d.missingTab(task), nil
		}
		return d.respond(task, d.toggles.ToggleMute(ctx, *tab)), nil
	case types.TaskTogglePlayer:
		if tab == nil {
			return d.missingTab(task), nil
		}
		return d.respond(task, d.toggles.TogglePlayer(ctx, *tab)), nil
	default:
		d.logger.Error("Unknown task", zap.String("task", task))
		d.metrics.RecordTask("unknown", false)
		return types.Response{Success: false, Message: fmt.Sprintf("%v: %s", ErrUnknownTask, task)}, nil
	}
}

func (d *Dispatcher) respond(task string, ok bool) types.Response {
	d.metrics.RecordTask(task, ok)
	return types.Response{Success: ok}
}

func (d *Dispatcher) missingTab(task string) types.Response {
	d.logger.Error("Task needs a tab", zap.String("task", task))
	d.metrics.RecordTask(task, false)
	return types.Response{Success: false, Message: "missing tabId"}
}

// log writes a page-originated log line with markup stripped from the text
func (d *Dispatcher) log(msg map[string]interface{}) {
	text := ""
	switch m := msg[keyMessage].(type) {
	case string:
		text = m
	case nil:
	default:
		text = fmt.Sprint(m)
	}
	text = d.policy.Sanitize(text)

	level, _ := msg[keyLevel].(string)

	fields := make(map[string]interface{}, len(msg))
	for k, v := range msg {
		switch k {
		case keyTask, keyTabID, keyMessage, keyLevel:
			continue
		}
		fields[k] = v
	}
	if tab := entityParam(msg[keyTabID]); tab != nil {
		fields["tab"] = tab.String()
	}

	d.logger.Log(level, text, fields)
}

// entityParam reads a tab id sent as a JSON number or a decimal string
func entityParam(v interface{}) *types.EntityID {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || t > math.MaxInt32 {
			return nil
		}
		id := types.EntityID(t)
		if id.Valid() {
			return &id
		}
	case string:
		if id, err := types.ParseEntityID(t); err == nil {
			return &id
		}
	}
	return nil
}
