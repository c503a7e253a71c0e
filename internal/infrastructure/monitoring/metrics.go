package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. All methods are safe on a nil
// receiver so components can run without metrics in tests.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Ingest metrics
	Intercepted *prometheus.CounterVec
	Tags        *prometheus.CounterVec

	// Reconciliation metrics
	Transitions *prometheus.CounterVec
	Actions     *prometheus.CounterVec
	ActionTime  *prometheus.HistogramVec
	PlayingAds  prometheus.Gauge

	// Bridge metrics
	BridgeConnected prometheus.Gauge
	BridgeMessages  *prometheus.CounterVec

	// Protocol metrics
	Tasks *prometheus.CounterVec

	startTime time.Time
	snapshot  Snapshot
	mu        sync.RWMutex
}

// Snapshot holds current counter values for the JSON health API
type Snapshot struct {
	Intercepted   int64   `json:"intercepted"`
	Classified    int64   `json:"classified"`
	Transitions   int64   `json:"transitions"`
	FailedActions int64   `json:"failed_actions"`
	Uptime        float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector registered with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{startTime: time.Now()}

	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admonitor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admonitor_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
	m.Intercepted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admonitor_intercepted_requests_total",
			Help: "Intercepted requests by ingest result",
		},
		[]string{"result"},
	)
	m.Tags = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admonitor_event_tags_total",
			Help: "Classified event records by tag",
		},
		[]string{"tag"},
	)
	m.Transitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admonitor_transitions_total",
			Help: "Reconciler state transitions by kind",
		},
		[]string{"kind"},
	)
	m.Actions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admonitor_actions_total",
			Help: "Side-effect actions by kind and outcome",
		},
		[]string{"action", "outcome"},
	)
	m.ActionTime = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admonitor_action_duration_seconds",
			Help:    "Side-effect action duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"action"},
	)
	m.PlayingAds = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "admonitor_tabs_playing_ads",
			Help: "Tabs currently believed to be playing ads",
		},
	)
	m.BridgeConnected = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "admonitor_bridge_connected",
			Help: "1 while a browser bridge is connected",
		},
	)
	m.BridgeMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admonitor_bridge_messages_total",
			Help: "Bridge messages by direction and method",
		},
		[]string{"direction", "method"},
	)
	m.Tasks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admonitor_protocol_tasks_total",
			Help: "Protocol tasks by name and outcome",
		},
		[]string{"task", "outcome"},
	)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "admonitor_uptime_seconds",
			Help: "Backend uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordIntercepted records one intercepted request and its ingest result
func (m *Metrics) RecordIntercepted(result string) {
	if m == nil {
		return
	}
	m.Intercepted.WithLabelValues(result).Inc()
	m.mu.Lock()
	m.snapshot.Intercepted++
	m.mu.Unlock()
}

// RecordTags counts classified records
func (m *Metrics) RecordTags(tags []string) {
	if m == nil {
		return
	}
	for _, tag := range tags {
		m.Tags.WithLabelValues(tag).Inc()
	}
	m.mu.Lock()
	m.snapshot.Classified += int64(len(tags))
	m.mu.Unlock()
}

// RecordTransition records a reconciler transition
func (m *Metrics) RecordTransition(kind string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(kind).Inc()
	m.mu.Lock()
	m.snapshot.Transitions++
	m.mu.Unlock()
}

// RecordAction records a side-effect attempt
func (m *Metrics) RecordAction(action string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
		m.mu.Lock()
		m.snapshot.FailedActions++
		m.mu.Unlock()
	}
	m.Actions.WithLabelValues(action, outcome).Inc()
	m.ActionTime.WithLabelValues(action).Observe(duration.Seconds())
}

// SetPlayingAds sets the number of tabs believed to be playing ads
func (m *Metrics) SetPlayingAds(count int) {
	if m == nil {
		return
	}
	m.PlayingAds.Set(float64(count))
}

// SetBridgeConnected flags whether a browser bridge is attached
func (m *Metrics) SetBridgeConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.BridgeConnected.Set(1)
		return
	}
	m.BridgeConnected.Set(0)
}

// RecordBridgeMessage records a bridge message
func (m *Metrics) RecordBridgeMessage(direction, method string) {
	if m == nil {
		return
	}
	m.BridgeMessages.WithLabelValues(direction, method).Inc()
}

// RecordTask records a protocol task
func (m *Metrics) RecordTask(task string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.Tasks.WithLabelValues(task, outcome).Inc()
}

// Snapshot returns current counter values
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.Uptime = time.Since(m.startTime).Seconds()
	return s
}
