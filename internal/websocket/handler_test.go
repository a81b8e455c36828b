package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cordpulse/internal/cache"
	"cordpulse/internal/config"
	"cordpulse/internal/files"
	"cordpulse/internal/services"
	"cordpulse/internal/shared/testutil"
	"cordpulse/pkg/contracts/domain"
	"cordpulse/pkg/contracts/events"
)

type wsFixture struct {
	hub    *Hub
	server *httptest.Server
	url    string
}

func newWSFixture(t *testing.T, opts ...HandlerOption) *wsFixture {
	t.Helper()
	// sessions may log after the test returns
	logger := slog.New(testutil.NewBufferedSlogHandler(nil))

	dir := t.TempDir()
	path := testutil.WriteMetadataFile(t, dir)
	svc := services.NewDashboardService(
		config.DatasetConfig{Path: path, SampleSize: 3},
		files.NewSource(dir),
		cache.NewDatasetCache(time.Hour),
		services.WithLogger(logger),
	)

	hub := NewHub(logger)
	srv := httptest.NewServer(NewHandler(hub, svc, testConfig(), logger, opts...))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.Stop(ctx)
		srv.Close()
	})
	return &wsFixture{hub: hub, server: srv, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
}

func (f *wsFixture) dial(t *testing.T, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) reply {
	t.Helper()
	var r reply
	require.NoError(t, conn.ReadJSON(&r))
	return r
}

func TestHandler_Session(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, nil)

	hello := readReply(t, conn)
	assert.Equal(t, string(events.MessageTypeConnect), hello.Type)
	assert.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	tests := []struct {
		name    string
		data    string
		journal string
		rows    int
	}{
		{name: "defaults", data: `{}`, journal: "All", rows: 5},
		{name: "journal", data: `{"journal":"Lancet"}`, journal: "Lancet", rows: 3},
		{name: "journal and years", data: `{"journal":"Lancet","min_year":2021,"max_year":2021}`, journal: "Lancet", rows: 2},
		{name: "unknown journal", data: `{"journal":"Science"}`, journal: "Science", rows: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := `{"id":"` + tt.name + `","type":"filter:changed","data":` + tt.data + `}`
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))

			r := readReply(t, conn)
			require.Equal(t, string(events.MessageTypeDashboardUpdate), r.Type)
			assert.Equal(t, tt.name, r.ID)

			var view domain.DashboardView
			require.NoError(t, json.Unmarshal(r.Data, &view))
			assert.Equal(t, tt.journal, view.Filter.Journal)
			assert.Equal(t, tt.rows, view.FilteredRows)
			assert.Equal(t, 6, view.TotalRows)
			assert.Len(t, view.Charts, 4)
		})
	}
}

func TestHandler_InvalidFilter(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, nil)
	readReply(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"filter:changed","data":{"min_year":2021,"max_year":2019}}`)))
	msg := errorOf(t, readReply(t, conn))
	assert.Equal(t, "VALIDATION_FAILED", msg.Code)
	assert.Contains(t, msg.Message, "max_year")

	// the session is still usable
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"filter:changed"}`)))
	assert.Equal(t, string(events.MessageTypeDashboardUpdate), readReply(t, conn).Type)
}

func TestHandler_OriginCheck(t *testing.T) {
	f := newWSFixture(t, WithAllowedOrigins([]string{"http://dashboard.example"}))

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{name: "no origin", ok: true},
		{name: "same host", origin: f.server.URL, ok: true},
		{name: "allowed", origin: "http://dashboard.example", ok: true},
		{name: "foreign", origin: "http://evil.example", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(f.url, header)
			if tt.ok {
				require.NoError(t, err)
				conn.Close()
				return
			}

			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)

			var problem map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
			assert.Equal(t, "WEBSOCKET_UPGRADE_FAILED", problem["error_code"])
			assert.Equal(t, "/errors/websocket/upgrade-failed", problem["type"])
		})
	}
}

func TestHandler_StopClosesSessions(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, nil)
	readReply(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.hub.Stop(ctx))

	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// new upgrades are turned away once stopped
	late := f.dial(t, nil)
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
