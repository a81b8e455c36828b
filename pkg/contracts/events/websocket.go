// Package events defines the WebSocket message contract of the dashboard.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cordpulse/pkg/contracts/domain"
)

// ErrUnexpectedType is returned when an envelope is not a filter change.
var ErrUnexpectedType = errors.New("unexpected message type")

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeFilterChanged is sent by the client with a full FilterState.
	MessageTypeFilterChanged MessageType = "filter:changed"
	// MessageTypeDashboardUpdate answers a filter change with a DashboardView.
	MessageTypeDashboardUpdate MessageType = "dashboard:update"

	MessageTypeConnect   MessageType = "connect"
	MessageTypeHeartbeat MessageType = "heartbeat"
	MessageTypeError     MessageType = "error"
)

// Envelope is an inbound message. Data is decoded according to Type.
type Envelope struct {
	ID   string          `json:"id,omitempty"`
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// FilterState decodes the payload of a filter:changed envelope. An absent
// payload is the default filter state.
func (e Envelope) FilterState() (domain.FilterState, error) {
	var state domain.FilterState
	if e.Type != MessageTypeFilterChanged {
		return state, fmt.Errorf("%w: %q", ErrUnexpectedType, e.Type)
	}
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return state, nil
	}
	if err := json.Unmarshal(e.Data, &state); err != nil {
		return state, fmt.Errorf("invalid filter state: %w", err)
	}
	return state, nil
}

// WebSocketMessage is an outbound message.
type WebSocketMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// ErrorMessage is the payload of an error message.
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ConnectMessage is sent once after the upgrade.
type ConnectMessage struct {
	ClientID        string `json:"client_id"`
	ProtocolVersion string `json:"protocol_version"`
}

// ProtocolVersion versions the message contract.
const ProtocolVersion = "1.0"

// NewMessage builds an outbound message stamped with the current time.
func NewMessage(id string, msgType MessageType, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		ID:        id,
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// NewErrorMessage builds an error message.
func NewErrorMessage(id, code, message string) WebSocketMessage {
	return NewMessage(id, MessageTypeError, ErrorMessage{Message: message, Code: code})
}
