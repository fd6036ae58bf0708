package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler 把收到的帧原样加上 type=echo 发回
type echoHandler struct {
	mu     sync.Mutex
	opened int
	closed int
}

func (h *echoHandler) OnSessionOpen(*Session) {
	h.mu.Lock()
	h.opened++
	h.mu.Unlock()
}

func (h *echoHandler) OnSessionClose(*Session) {
	h.mu.Lock()
	h.closed++
	h.mu.Unlock()
}

func (h *echoHandler) OnMessage(sess *Session, data []byte) {
	var in map[string]any
	if err := json.Unmarshal(data, &in); err != nil {
		_ = sess.Push(map[string]string{"type": "error"})
		return
	}
	_ = sess.Push(map[string]any{"type": "echo", "body": in})
}

func (h *echoHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opened, h.closed
}

func newTestServer(t *testing.T) (*Server, *echoHandler, string) {
	t.Helper()
	srv := NewServer(Path("/ws"), Heartbeat(5*time.Second, 100*time.Millisecond, time.Second))
	h := &echoHandler{}
	srv.RegisterHandler(h)
	srv.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}).Methods(http.MethodGet)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		srv.hub.closeAll()
		ts.Close()
	})
	return srv, h, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestServer_Echo(t *testing.T) {
	srv, h, endpoint := newTestServer(t)

	got := make(chan []byte, 4)
	c, err := NewClient(context.Background(),
		WithEndpoint(endpoint),
		WithPushHandler(map[string]PushHandler{
			"echo": func(data []byte) { got <- data },
		}),
	)
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.IsAlive())

	require.NoError(t, c.Send(map[string]string{"type": "hello", "name": "ann"}))
	select {
	case data := <-got:
		assert.JSONEq(t, `{"type":"echo","body":{"type":"hello","name":"ann"}}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("no echo")
	}

	require.Eventually(t, func() bool { return srv.SessionCount() == 1 }, time.Second, 10*time.Millisecond)
	c.Close()
	require.Eventually(t, func() bool {
		_, closed := h.counts()
		return closed == 1 && srv.SessionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, c.IsAlive())
	assert.Error(t, c.Send(map[string]string{"type": "late"}))
}

func TestServer_HTTPRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestServer_MaxConn(t *testing.T) {
	srv := NewServer(MaxConnLimit(0))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	_, err := NewClient(context.Background(), WithEndpoint("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws"))
	assert.Error(t, err)
}

func TestClientCreation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(ctx, WithEndpoint("ws://test:8080"))
	assert.Error(t, err)

	_, err = NewClient(context.Background(), WithEndpoint("ws://%zz"))
	assert.ErrorIs(t, err, errInvalidURL)
}

func TestHub(t *testing.T) {
	h := newHub(2)
	require.True(t, h.reserve())
	require.True(t, h.reserve())
	assert.False(t, h.reserve(), "over limit")

	a, b := &Session{id: "a"}, &Session{id: "b"}
	h.add(a)
	h.add(b)
	assert.Equal(t, 2, h.len())
	assert.Same(t, a, h.get("a"))

	h.remove(a)
	h.remove(a)
	assert.Equal(t, 1, h.len())
	assert.Nil(t, h.get("a"))
	assert.True(t, h.reserve(), "slot returned on remove")
}

func TestClientBackOff(t *testing.T) {
	c := &Client{opts: &clientOptions{baseDelay: time.Second, maxDelay: 2 * time.Second}}
	b := c.newBackOff()

	bounds := [][2]time.Duration{
		{900 * time.Millisecond, 1100 * time.Millisecond},
		{1350 * time.Millisecond, 1650 * time.Millisecond},
		{1800 * time.Millisecond, 2200 * time.Millisecond},
		{1800 * time.Millisecond, 2200 * time.Millisecond},
	}
	for i, want := range bounds {
		d := b.NextBackOff()
		assert.GreaterOrEqual(t, d, want[0], "attempt %d", i+1)
		assert.LessOrEqual(t, d, want[1], "attempt %d", i+1)
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		in       string
		insecure bool
		want     string
	}{
		{"127.0.0.1:8765/ws", true, "ws://127.0.0.1:8765/ws"},
		{"czech.example.com/ws", false, "wss://czech.example.com/ws"},
		{"ws://host/ws", false, "ws://host/ws"},
	}
	for _, tt := range tests {
		u, err := endpointURL(tt.in, tt.insecure)
		require.NoError(t, err)
		assert.Equal(t, tt.want, u.String())
	}
}
