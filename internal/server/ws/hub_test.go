package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanBus struct {
	mu   sync.Mutex
	subs map[string]chan []byte
}

func newChanBus() *chanBus { return &chanBus{subs: map[string]chan []byte{}} }

func (b *chanBus) ch(name string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.subs[name]
	if !ok {
		c = make(chan []byte, 8)
		b.subs[name] = c
	}
	return c
}

func (b *chanBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.ch(channel) <- payload
	return nil
}

func (b *chanBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	return b.ch(channel), nil
}

type frame struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ClientCount() == n }, 3*time.Second, 10*time.Millisecond)
}

func TestHub_RelaysBusEvents(t *testing.T) {
	bus := newChanBus()
	hub := NewHub(bus, nil, Config{Mode: "Server"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	hello := readFrame(t, conn)
	assert.Equal(t, "status", hello.Channel)
	assert.Contains(t, string(hello.Data), `"mode":"server"`)
	waitForClients(t, hub, 1)

	require.NoError(t, bus.Publish(ctx, "trades", []byte(`{"event":"trade_recorded"}`)))
	got := readFrame(t, conn)
	assert.Equal(t, "trades", got.Channel)
	assert.JSONEq(t, `{"event":"trade_recorded"}`, string(got.Data))
}

func TestHub_Unsubscribe(t *testing.T) {
	bus := newChanBus()
	hub := NewHub(bus, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	readFrame(t, conn)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.WriteJSON(subscribeMsg{Action: "unsubscribe", Channels: []string{"prices"}}))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for c := range hub.clients {
			if c.isSubscribed("prices") {
				return false
			}
		}
		return true
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Publish(ctx, "prices", []byte(`{"symbol":"AAPL"}`)))
	require.NoError(t, bus.Publish(ctx, "positions", []byte("plain text")))

	got := readFrame(t, conn)
	assert.Equal(t, "positions", got.Channel)
	assert.JSONEq(t, `"plain text"`, string(got.Data))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker(nil)(req))
}
