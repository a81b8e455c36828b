package websocket

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"cordpulse/internal/config"
	apierrors "cordpulse/internal/errors"
	"cordpulse/internal/infrastructure"
)

// Handler upgrades /ws requests and runs one session per connection.
type Handler struct {
	hub            *Hub
	dashboard      Dashboard
	cfg            config.WebSocketConfig
	allowedOrigins []string
	buildTimeout   time.Duration
	metrics        *OTelMetrics
	upgrader       websocket.Upgrader
	logger         *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithAllowedOrigins accepts cross-origin upgrades from these origins.
func WithAllowedOrigins(origins []string) HandlerOption {
	return func(h *Handler) { h.allowedOrigins = origins }
}

// WithHandlerMetrics records upgrade and session metrics.
func WithHandlerMetrics(m *OTelMetrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithSessionTimeout bounds each dashboard build of a session.
func WithSessionTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) { h.buildTimeout = d }
}

// NewHandler creates the upgrade handler.
func NewHandler(hub *Hub, dashboard Dashboard, cfg config.WebSocketConfig, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub:          hub,
		dashboard:    dashboard,
		cfg:          cfg,
		buildTimeout: config.DefaultRequestTimeout,
		logger:       infrastructure.WithComponent(logger, "websocket.handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error:           h.upgradeError,
	}
	return h
}

// checkOrigin allows same-origin requests, requests without an Origin
// header and the configured origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed || allowed == "*" {
			return true
		}
	}
	h.logger.WarnContext(r.Context(), "WebSocket origin not allowed",
		slog.String("origin", origin),
		slog.Any("allowed_origins", h.allowedOrigins))
	return false
}

func (h *Handler) upgradeError(w http.ResponseWriter, r *http.Request, status int, reason error) {
	ctx := r.Context()
	h.metrics.RecordConnectionError(ctx, status)
	h.logger.ErrorContext(ctx, "WebSocket upgrade error",
		slog.Int("status", status),
		slog.String("reason", reason.Error()),
		slog.String("origin", r.Header.Get("Origin")))

	problem := apierrors.NewProblemDetails(
		status,
		apierrors.TypeWebSocketUpgrade,
		http.StatusText(status),
		fmt.Sprintf("WebSocket upgrade failed: %v", reason),
		r.URL.Path,
	).WithExtension("error_code", "WEBSOCKET_UPGRADE_FAILED").
		WithExtension("trace_id", infrastructure.GetTraceID(ctx))
	render.Render(w, r, problem)
}

// ServeHTTP upgrades the connection and blocks until the session ends.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered
		return
	}

	client := NewClient(h.hub, NewConnectionWrapper(conn), h.dashboard, h.cfg, h.logger,
		WithTraceID(infrastructure.GetTraceID(ctx)),
		WithMetrics(h.metrics),
		WithBuildTimeout(h.buildTimeout))

	if !h.hub.Register(client) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(h.cfg.WriteWait))
		conn.Close()
		return
	}
	h.metrics.RecordConnection(ctx)
	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.ErrorContext(ctx, "WebSocket write pump panic", slog.Any("panic", rec))
			}
		}()
		client.WritePump()
	}()
	client.Greet()
	client.ReadPump()
}
