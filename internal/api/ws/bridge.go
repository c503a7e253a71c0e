package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/host"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AdMonitor/internal/shared/id"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var errDisconnected = errors.New("bridge disconnected")

var upgrader = websocket.Upgrader{
	CheckOrigin: checkOrigin,
}

// checkOrigin admits extension pages and local tools
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	switch {
	case origin == "":
		return true
	case strings.HasPrefix(origin, "moz-extension://"),
		strings.HasPrefix(origin, "chrome-extension://"),
		strings.HasPrefix(origin, "http://localhost"),
		strings.HasPrefix(origin, "http://127.0.0.1"):
		return true
	}
	return false
}

// Bridge is a host.Bridge backed by the shim's websocket
type Bridge struct {
	host.Bridge

	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	conn    *connection
	pending map[string]*pending
	closed  bool
}

type connection struct {
	id      id.ConnectionID
	ws      *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
}

type pending struct {
	conn  *connection
	reply chan host.Reply
}

// NewBridge creates a bridge with no shim attached
func NewBridge(logger *logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.NewNop()
	}
	b := &Bridge{
		logger:  logger,
		pending: make(map[string]*pending),
	}
	b.Bridge = host.Over(b)
	return b
}

// WithMetrics attaches a metrics collector
func (b *Bridge) WithMetrics(m *monitoring.Metrics) *Bridge {
	b.metrics = m
	return b
}

// Connected reports whether a shim is attached
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// HandleConnection upgrades the request and serves the shim until it leaves
func (b *Bridge) HandleConnection(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	conn := &connection{id: id.NewConnectionID(), ws: ws, done: make(chan struct{})}
	if !b.attach(conn) {
		_ = conn.close(websocket.CloseGoingAway, "shutting down")
		return
	}
	b.logger.Info("Bridge connected", zap.Stringer("conn", conn.id))

	go b.keepalive(conn)
	b.readLoop(conn)

	b.detach(conn)
	_ = ws.Close()
	b.logger.Info("Bridge disconnected", zap.Stringer("conn", conn.id))
}

func (b *Bridge) readLoop(conn *connection) {
	conn.ws.SetReadLimit(1 << 20)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Warn("Bridge read error", zap.Stringer("conn", conn.id), zap.Error(err))
			}
			return
		}

		var reply host.Reply
		if err := sonic.Unmarshal(data, &reply); err != nil || reply.ID == "" {
			b.logger.Debug("Ignoring undecodable bridge message", zap.Stringer("conn", conn.id))
			continue
		}
		b.deliver(reply)
	}
}

func (b *Bridge) keepalive(conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-conn.done:
			return
		}
	}
}

// Do implements host.Transport
func (b *Bridge) Do(ctx context.Context, cmd host.Command) (*host.Reply, error) {
	cmd.ID = id.NewCommandID().String()
	cmd.TraceID = string(tracing.GetTraceID(ctx))
	data, err := sonic.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	conn := b.conn
	if conn == nil {
		b.mu.Unlock()
		return nil, host.ErrNotConnected
	}
	p := &pending{conn: conn, reply: make(chan host.Reply, 1)}
	b.pending[cmd.ID] = p
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, cmd.ID)
		b.mu.Unlock()
	}()

	if err := conn.write(websocket.TextMessage, data); err != nil {
		return nil, err
	}
	b.metrics.RecordBridgeMessage("out", cmd.Method)

	select {
	case reply := <-p.reply:
		b.metrics.RecordBridgeMessage("in", cmd.Method)
		return &reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bridge) deliver(reply host.Reply) {
	b.mu.Lock()
	p, ok := b.pending[reply.ID]
	b.mu.Unlock()
	if !ok {
		b.logger.Debug("Reply for unknown command", zap.String("id", reply.ID))
		return
	}
	select {
	case p.reply <- reply:
	default:
	}
}

func (b *Bridge) attach(conn *connection) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	prev := b.conn
	b.conn = conn
	b.mu.Unlock()

	if prev != nil {
		b.logger.Info("Replacing bridge connection", zap.Stringer("old", prev.id), zap.Stringer("new", conn.id))
		_ = prev.close(websocket.ClosePolicyViolation, "replaced")
	}
	b.metrics.SetBridgeConnected(true)
	return true
}

// detach fails every command still waiting on conn
func (b *Bridge) detach(conn *connection) {
	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
		b.metrics.SetBridgeConnected(false)
	}
	for cmdID, p := range b.pending {
		if p.conn != conn {
			continue
		}
		select {
		case p.reply <- host.Reply{ID: cmdID, Error: errDisconnected.Error()}:
		default:
		}
	}
	b.mu.Unlock()
	conn.stop()
}

// Close disconnects the shim and refuses new connections
func (b *Bridge) Close() error {
	b.mu.Lock()
	b.closed = true
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.close(websocket.CloseGoingAway, "shutting down")
}

func (c *connection) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, data)
}

// close sends a close frame and drops the socket, which ends the read loop
func (c *connection) close(code int, reason string) error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.ws.Close()
}

func (c *connection) stop() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}
