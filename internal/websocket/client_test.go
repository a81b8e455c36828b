package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cordpulse/internal/config"
	"cordpulse/internal/dataprocessing"
	apierrors "cordpulse/internal/errors"
	"cordpulse/internal/shared/testutil"
	"cordpulse/pkg/contracts/domain"
	"cordpulse/pkg/contracts/events"
)

type dashboardFunc func(ctx context.Context, state domain.FilterState) (*domain.DashboardView, error)

func (f dashboardFunc) Build(ctx context.Context, state domain.FilterState) (*domain.DashboardView, error) {
	return f(ctx, state)
}

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		MaxMessageSize:  4096,
		WriteWait:       time.Second,
		PongWait:        time.Minute,
	}
}

type reply struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// runSession feeds frames to a client and returns every text frame it wrote.
func runSession(t *testing.T, dashboard Dashboard, frames ...string) ([]reply, *MockConnection) {
	t.Helper()
	conn := NewMockConnection()
	for _, f := range frames {
		conn.AddReadMessage(websocket.TextMessage, []byte(f), nil)
	}
	logger, _ := testutil.NewTestLogger(t)
	client := NewClient(nil, conn, dashboard, testConfig(), logger)

	go client.WritePump()
	client.ReadPump()

	select {
	case <-client.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("write pump did not stop")
	}

	var out []reply
	for _, m := range conn.GetWrittenMessages() {
		if m.Type != websocket.TextMessage {
			continue
		}
		var r reply
		require.NoError(t, json.Unmarshal(m.Data, &r))
		out = append(out, r)
	}
	return out, conn
}

func errorOf(t *testing.T, r reply) events.ErrorMessage {
	t.Helper()
	require.Equal(t, string(events.MessageTypeError), r.Type)
	var msg events.ErrorMessage
	require.NoError(t, json.Unmarshal(r.Data, &msg))
	return msg
}

func TestClient_FilterChanged(t *testing.T) {
	var got domain.FilterState
	dashboard := dashboardFunc(func(_ context.Context, state domain.FilterState) (*domain.DashboardView, error) {
		got = state
		return &domain.DashboardView{FilteredRows: 2, Filter: domain.AppliedFilter{MinYear: 2020, MaxYear: 2021, Journal: "Lancet"}}, nil
	})

	replies, conn := runSession(t, dashboard,
		`{"id":"m1","type":"filter:changed","data":{"min_year":2020,"max_year":2021,"journal":"Lancet"}}`)

	require.Len(t, replies, 1)
	assert.Equal(t, "m1", replies[0].ID)
	assert.Equal(t, string(events.MessageTypeDashboardUpdate), replies[0].Type)

	var view domain.DashboardView
	require.NoError(t, json.Unmarshal(replies[0].Data, &view))
	assert.Equal(t, 2, view.FilteredRows)
	assert.Equal(t, "Lancet", view.Filter.Journal)

	require.NotNil(t, got.MinYear)
	assert.Equal(t, 2020, *got.MinYear)
	assert.Equal(t, "Lancet", got.Journal)

	assert.True(t, conn.IsClosed())
	assert.EqualValues(t, 4096, conn.ReadLimit)
	assert.NotNil(t, conn.PongHandler)

	written := conn.GetWrittenMessages()
	assert.Equal(t, websocket.CloseMessage, written[len(written)-1].Type)
}

func TestClient_OneReplyPerMessage(t *testing.T) {
	calls := 0
	dashboard := dashboardFunc(func(_ context.Context, state domain.FilterState) (*domain.DashboardView, error) {
		calls++
		return &domain.DashboardView{Filter: domain.AppliedFilter{Journal: state.Journal}}, nil
	})

	replies, _ := runSession(t, dashboard,
		`{"type":"filter:changed","data":{"journal":"BMJ"}}`,
		`{"type":"heartbeat"}`,
		`{"type":"filter:changed"}`,
	)

	assert.Equal(t, 2, calls)
	require.Len(t, replies, 2)
	var first, second domain.DashboardView
	require.NoError(t, json.Unmarshal(replies[0].Data, &first))
	require.NoError(t, json.Unmarshal(replies[1].Data, &second))
	assert.Equal(t, "BMJ", first.Filter.Journal)
	assert.Empty(t, second.Filter.Journal, "no state carries over between events")
}

func TestClient_ErrorReplies(t *testing.T) {
	loadErr := &dataprocessing.DataLoadError{Path: "metadata.csv", Op: "read", Err: errors.New("boom")}
	validation := apierrors.NewValidationErrors([]apierrors.ValidationError{
		{Field: "max_year", Message: "max_year must not be less than MinYear"},
	})

	tests := []struct {
		name     string
		frame    string
		buildErr error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "invalid json",
			frame:    `{not json`,
			wantCode: CodeInvalidMessage,
			wantMsg:  "invalid message",
		},
		{
			name:     "unexpected type",
			frame:    `{"type":"chart:zoom"}`,
			wantCode: CodeInvalidMessage,
			wantMsg:  "unexpected message type",
		},
		{
			name:     "bad payload",
			frame:    `{"type":"filter:changed","data":{"min_year":"soon"}}`,
			wantCode: CodeInvalidMessage,
			wantMsg:  "invalid filter state",
		},
		{
			name:     "dataset unavailable",
			frame:    `{"type":"filter:changed"}`,
			buildErr: loadErr,
			wantCode: CodeDatasetUnavailable,
			wantMsg:  "Failed to load dataset: read metadata.csv: boom",
		},
		{
			name:     "validation",
			frame:    `{"type":"filter:changed","data":{"min_year":2021,"max_year":2019}}`,
			buildErr: validation,
			wantCode: "VALIDATION_FAILED",
			wantMsg:  "max_year must not be less than MinYear",
		},
		{
			name:     "timeout",
			frame:    `{"type":"filter:changed"}`,
			buildErr: context.DeadlineExceeded,
			wantCode: CodeTimeout,
			wantMsg:  "took too long",
		},
		{
			name:     "unexpected failure",
			frame:    `{"type":"filter:changed"}`,
			buildErr: errors.New("disk on fire"),
			wantCode: CodeInternal,
			wantMsg:  "Failed to build the dashboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dashboard := dashboardFunc(func(context.Context, domain.FilterState) (*domain.DashboardView, error) {
				if tt.buildErr != nil {
					return nil, tt.buildErr
				}
				return &domain.DashboardView{}, nil
			})

			replies, _ := runSession(t, dashboard, tt.frame)
			require.Len(t, replies, 1)
			msg := errorOf(t, replies[0])
			assert.Equal(t, tt.wantCode, msg.Code)
			assert.Contains(t, msg.Message, tt.wantMsg)
		})
	}
}

func TestClient_SessionSurvivesErrors(t *testing.T) {
	dashboard := dashboardFunc(func(context.Context, domain.FilterState) (*domain.DashboardView, error) {
		return &domain.DashboardView{FilteredRows: 1}, nil
	})

	replies, _ := runSession(t, dashboard, `garbage`, `{"type":"filter:changed"}`)
	require.Len(t, replies, 2)
	assert.Equal(t, string(events.MessageTypeError), replies[0].Type)
	assert.Equal(t, string(events.MessageTypeDashboardUpdate), replies[1].Type)
}

func TestClient_BuildTimeout(t *testing.T) {
	dashboard := dashboardFunc(func(ctx context.Context, _ domain.FilterState) (*domain.DashboardView, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	conn := NewMockConnection()
	conn.AddReadMessage(websocket.TextMessage, []byte(`{"type":"filter:changed"}`), nil)
	logger, _ := testutil.NewTestLogger(t)
	client := NewClient(nil, conn, dashboard, testConfig(), logger, WithBuildTimeout(10*time.Millisecond))

	go client.WritePump()
	client.ReadPump()
	<-client.Done()

	written := conn.GetWrittenMessages()
	require.NotEmpty(t, written)
	var r reply
	require.NoError(t, json.Unmarshal(written[0].Data, &r))
	assert.Equal(t, CodeTimeout, errorOf(t, r).Code)
}

func TestClient_Greet(t *testing.T) {
	conn := NewMockConnection()
	logger, _ := testutil.NewTestLogger(t)
	client := NewClient(nil, conn, nil, testConfig(), logger, WithTraceID("trace-1"))

	go client.WritePump()
	client.Greet()
	client.ReadPump()
	<-client.Done()

	written := conn.GetWrittenMessages()
	require.NotEmpty(t, written)
	var msg struct {
		Type string                `json:"type"`
		Data events.ConnectMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(written[0].Data, &msg))
	assert.Equal(t, string(events.MessageTypeConnect), msg.Type)
	assert.Equal(t, client.ID(), msg.Data.ClientID)
	assert.Equal(t, events.ProtocolVersion, msg.Data.ProtocolVersion)
}

func TestClient_WriteFailureStopsSession(t *testing.T) {
	dashboard := dashboardFunc(func(context.Context, domain.FilterState) (*domain.DashboardView, error) {
		return &domain.DashboardView{}, nil
	})
	conn := NewMockConnection()
	conn.Blocking = true
	conn.WriteMessageFunc = func(int, []byte) error { return errors.New("broken pipe") }
	logger, _ := testutil.NewTestLogger(t)
	client := NewClient(nil, conn, dashboard, testConfig(), logger)

	go client.WritePump()
	conn.Push(websocket.TextMessage, []byte(`{"type":"filter:changed"}`))

	finished := make(chan struct{})
	go func() {
		client.ReadPump()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("read pump kept running after a write failure")
	}
	assert.True(t, conn.IsClosed())
}
