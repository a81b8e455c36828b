package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cordpulse/internal/config"
	"cordpulse/internal/dataprocessing"
	apierrors "cordpulse/internal/errors"
	"cordpulse/internal/infrastructure"
	"cordpulse/internal/services"
	"cordpulse/pkg/contracts/events"
)

// Error codes sent in error messages.
const (
	CodeInvalidMessage     = "INVALID_MESSAGE"
	CodeDatasetUnavailable = "DATASET_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
	CodeInternal           = "INTERNAL_ERROR"
)

// sendBuffer bounds replies queued for the write pump.
const sendBuffer = 16

// Client is one WebSocket session. ReadPump handles one filter change at a
// time and queues the reply; WritePump writes replies and pings.
type Client struct {
	hub       *Hub
	conn      Connection
	dashboard Dashboard
	cfg       config.WebSocketConfig
	timeout   time.Duration
	metrics   *OTelMetrics

	send chan []byte
	done chan struct{}

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTraceID ties the session's log lines to the upgrade request.
func WithTraceID(traceID string) ClientOption {
	return func(c *Client) { c.traceID = traceID }
}

// WithMetrics records session metrics.
func WithMetrics(m *OTelMetrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithBuildTimeout bounds each dashboard build.
func WithBuildTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a session over conn
func NewClient(hub *Hub, conn Connection, dashboard Dashboard, cfg config.WebSocketConfig, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		hub:         hub,
		conn:        conn,
		dashboard:   dashboard,
		cfg:         cfg,
		timeout:     config.DefaultRequestTimeout,
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
		id:          uuid.New().String(),
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.traceID == "" {
		c.traceID = c.id
	}
	c.logger = infrastructure.WithComponent(logger, "websocket.client").With(
		slog.String("client_id", c.id))
	return c
}

// ID returns the client id
func (c *Client) ID() string { return c.id }

func (c *Client) context() context.Context {
	return infrastructure.WithTraceID(context.Background(), c.traceID)
}

// Greet queues the connect message.
func (c *Client) Greet() {
	c.enqueue(c.context(), events.NewMessage("", events.MessageTypeConnect, events.ConnectMessage{
		ClientID:        c.id,
		ProtocolVersion: events.ProtocolVersion,
	}))
}

// ReadPump reads messages until the peer goes away. It unregisters the
// client and stops the write pump on return.
func (c *Client) ReadPump() {
	ctx := c.context()
	reason := "closed"
	defer func() {
		if c.hub != nil {
			c.hub.Unregister(c)
		}
		close(c.send)
		c.metrics.RecordDisconnection(ctx, time.Since(c.connectedAt), reason)
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				reason = "error"
				c.logger.WarnContext(ctx, "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			} else {
				c.logger.DebugContext(ctx, "WebSocket read ended", slog.String("error", err.Error()))
			}
			return
		}

		reply, ok := c.handle(ctx, data)
		if ok {
			c.enqueue(ctx, reply)
		}
	}
}

// handle turns one inbound frame into its reply. Heartbeats get none.
func (c *Client) handle(ctx context.Context, data []byte) (events.WebSocketMessage, bool) {
	start := time.Now()

	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.metrics.RecordMessage(ctx, DirectionInbound, "invalid", len(data))
		return c.errorReply(ctx, "", CodeInvalidMessage, fmt.Sprintf("invalid message: %v", err)), true
	}
	c.metrics.RecordMessage(ctx, DirectionInbound, string(env.Type), len(data))

	if env.Type == events.MessageTypeHeartbeat {
		return events.WebSocketMessage{}, false
	}

	state, err := env.FilterState()
	if err != nil {
		return c.errorReply(ctx, env.ID, CodeInvalidMessage, err.Error()), true
	}

	buildCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	view, err := c.dashboard.Build(buildCtx, state)
	if err != nil {
		code, msg := describeError(err)
		c.logger.WarnContext(ctx, "Dashboard update failed",
			slog.String("code", code),
			slog.String("error", err.Error()))
		return c.errorReply(ctx, env.ID, code, msg), true
	}

	c.metrics.RecordLatency(ctx, time.Since(start))
	c.logger.DebugContext(ctx, "Dashboard update",
		slog.String("message_id", env.ID),
		slog.Int("filtered_rows", view.FilteredRows),
		slog.Duration("duration", time.Since(start)))

	msg := events.NewMessage(env.ID, events.MessageTypeDashboardUpdate, view)
	msg.TraceID = c.traceID
	return msg, true
}

func (c *Client) errorReply(ctx context.Context, id, code, message string) events.WebSocketMessage {
	c.metrics.RecordMessageError(ctx, code)
	msg := events.NewErrorMessage(id, code, message)
	msg.TraceID = c.traceID
	return msg
}

// describeError maps a build failure onto an error code and the text shown
// to the user.
func describeError(err error) (code, message string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CodeTimeout, "The dashboard update took too long and was cancelled"
	}
	if dataprocessing.IsDataLoadError(err) {
		return CodeDatasetUnavailable, services.FailureStatus(err).Message
	}

	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		if details, ok := apiErr.Details.(apierrors.ValidationErrors); ok && len(details.Errors) > 0 {
			msgs := make([]string, len(details.Errors))
			for i, fe := range details.Errors {
				msgs[i] = fe.Message
			}
			return apiErr.ErrorCode, strings.Join(msgs, "; ")
		}
		return apiErr.ErrorCode, apiErr.Message
	}

	var appErr *apierrors.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Type), appErr.Message
	}
	return CodeInternal, "Failed to build the dashboard"
}

// enqueue hands a reply to the write pump, giving up once it has stopped.
func (c *Client) enqueue(ctx context.Context, msg events.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to encode message",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return
	}
	select {
	case c.send <- data:
		c.metrics.RecordMessage(ctx, DirectionOutbound, string(msg.Type), len(data))
	case <-c.done:
	}
}

// WritePump writes queued messages and keeps the connection alive with
// pings until ReadPump stops.
func (c *Client) WritePump() {
	ctx := c.context()
	ticker := time.NewTicker(c.cfg.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(ctx, "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				// drain until ReadPump notices the broken connection
				c.conn.Close()
				for range c.send {
				}
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(ctx, "Failed to send ping message",
					slog.String("error", err.Error()))
				c.conn.Close()
				for range c.send {
				}
				return
			}
		}
	}
}

// Done is closed when the write pump has stopped.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
