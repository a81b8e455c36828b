package websocket

import (
	"errors"
	"sync"
	"time"
)

// ErrMockClosed is returned by a MockConnection after Close.
var ErrMockClosed = errors.New("connection closed")

// MockConnection is an in-memory Connection for tests. Reads are served
// from queued messages; once the queue is empty ReadMessage either fails
// or, with Blocking set, waits for Push or Close.
type MockConnection struct {
	mu sync.Mutex

	// WriteMessageFunc overrides the default of recording the message.
	WriteMessageFunc func(messageType int, data []byte) error
	WrittenMessages  []MockMessage

	ReadMessages []MockMessage
	Blocking     bool

	Closed        bool
	ReadDeadline  time.Time
	WriteDeadline time.Time
	ReadLimit     int64
	PongHandler   func(string) error
	RemoteAddress string

	wake   chan struct{}
	closed chan struct{}
}

// MockMessage is one frame read from or written to a MockConnection.
type MockMessage struct {
	Type int
	Data []byte
	Err  error
}

// NewMockConnection creates a new mock connection
func NewMockConnection() *MockConnection {
	return &MockConnection{
		RemoteAddress: "127.0.0.1:8080",
		wake:          make(chan struct{}, 1),
		closed:        make(chan struct{}),
	}
}

// WriteMessage implements Connection.WriteMessage
func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Closed {
		return ErrMockClosed
	}
	if m.WriteMessageFunc != nil {
		return m.WriteMessageFunc(messageType, data)
	}
	m.WrittenMessages = append(m.WrittenMessages, MockMessage{Type: messageType, Data: data})
	return nil
}

// ReadMessage implements Connection.ReadMessage
func (m *MockConnection) ReadMessage() (int, []byte, error) {
	for {
		m.mu.Lock()
		if m.Closed {
			m.mu.Unlock()
			return 0, nil, ErrMockClosed
		}
		if len(m.ReadMessages) > 0 {
			msg := m.ReadMessages[0]
			m.ReadMessages = m.ReadMessages[1:]
			m.mu.Unlock()
			return msg.Type, msg.Data, msg.Err
		}
		blocking := m.Blocking
		m.mu.Unlock()

		if !blocking {
			return 0, nil, errors.New("no more messages")
		}
		select {
		case <-m.wake:
		case <-m.closed:
		}
	}
}

// Push queues a frame for ReadMessage and wakes a blocked reader.
func (m *MockConnection) Push(messageType int, data []byte) {
	m.mu.Lock()
	m.ReadMessages = append(m.ReadMessages, MockMessage{Type: messageType, Data: data})
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Close implements Connection.Close. It is safe to call more than once.
func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Closed {
		m.Closed = true
		close(m.closed)
	}
	return nil
}

// SetReadDeadline implements Connection.SetReadDeadline
func (m *MockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadDeadline = t
	return nil
}

// SetWriteDeadline implements Connection.SetWriteDeadline
func (m *MockConnection) SetWriteDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteDeadline = t
	return nil
}

// SetReadLimit implements Connection.SetReadLimit
func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

// SetPongHandler implements Connection.SetPongHandler
func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PongHandler = h
}

// RemoteAddr implements Connection.RemoteAddr
func (m *MockConnection) RemoteAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RemoteAddress
}

// AddReadMessage queues a frame, optionally with a read error.
func (m *MockConnection) AddReadMessage(messageType int, data []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadMessages = append(m.ReadMessages, MockMessage{Type: messageType, Data: data, Err: err})
}

// GetWrittenMessages returns a copy of the frames written so far.
func (m *MockConnection) GetWrittenMessages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockMessage, len(m.WrittenMessages))
	copy(result, m.WrittenMessages)
	return result
}

// IsClosed reports whether Close was called.
func (m *MockConnection) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Closed
}
