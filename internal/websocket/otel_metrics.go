package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// OTelMetrics provides OpenTelemetry metrics for WebSocket sessions. A nil
// *OTelMetrics records nothing.
type OTelMetrics struct {
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	connectionErrors   metric.Int64Counter

	messagesTotal  metric.Int64Counter
	messageBytes   metric.Int64Counter
	messageErrors  metric.Int64Counter
	messageLatency metric.Float64Histogram
}

// NewOTelMetrics creates the WebSocket instruments on meter
func NewOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(meterName)
	}
	m := &OTelMetrics{}
	var err error

	if m.connectionsTotal, err = meter.Int64Counter("websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections")); err != nil {
		return nil, err
	}
	if m.connectionsActive, err = meter.Int64UpDownCounter("websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections")); err != nil {
		return nil, err
	}
	if m.connectionDuration, err = meter.Float64Histogram("websocket_connection_duration_seconds",
		metric.WithDescription("Duration of WebSocket connections"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.connectionErrors, err = meter.Int64Counter("websocket_connection_errors_total",
		metric.WithDescription("Total number of failed WebSocket upgrades")); err != nil {
		return nil, err
	}
	if m.messagesTotal, err = meter.Int64Counter("websocket_messages_total",
		metric.WithDescription("Total number of WebSocket messages")); err != nil {
		return nil, err
	}
	if m.messageBytes, err = meter.Int64Counter("websocket_message_bytes_total",
		metric.WithDescription("Total bytes of WebSocket messages"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.messageErrors, err = meter.Int64Counter("websocket_message_errors_total",
		metric.WithDescription("Total number of error replies")); err != nil {
		return nil, err
	}
	if m.messageLatency, err = meter.Float64Histogram("websocket_message_latency_seconds",
		metric.WithDescription("Time from a filter change to its reply"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return m, nil
}

const meterName = "cordpulse.websocket"

// RecordConnection records a new WebSocket connection
func (m *OTelMetrics) RecordConnection(ctx context.Context) {
	if m == nil {
		return
	}
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

// RecordDisconnection records a WebSocket disconnection
func (m *OTelMetrics) RecordDisconnection(ctx context.Context, duration time.Duration, reason string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("disconnect_reason", reason))
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordConnectionError records a failed upgrade
func (m *OTelMetrics) RecordConnectionError(ctx context.Context, status int) {
	if m == nil {
		return
	}
	m.connectionErrors.Add(ctx, 1, metric.WithAttributes(attribute.Int("status", status)))
}

// RecordMessage records one message in direction with its type and size
func (m *OTelMetrics) RecordMessage(ctx context.Context, direction, msgType string, size int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("type", msgType),
	)
	m.messagesTotal.Add(ctx, 1, attrs)
	m.messageBytes.Add(ctx, int64(size), attrs)
}

// RecordMessageError records an error reply with its code
func (m *OTelMetrics) RecordMessageError(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.messageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// RecordLatency records how long a filter change took to answer
func (m *OTelMetrics) RecordLatency(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.messageLatency.Record(ctx, d.Seconds())
}
