package signaling

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

	"github.com/1ureka/sigcore/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// fabric is an in-process stand-in for the call-routing fabric. handle is
// called for every inbound frame; frames written to push are sent as-is.
type fabric struct {
	t      *testing.T
	srv    *httptest.Server
	handle func(msg map[string]any, reply func(v any))

	mu     sync.Mutex
	conn   *websocket.Conn
	ready  chan struct{}
	frames []map[string]any
}

func newFabric(t *testing.T, handle func(msg map[string]any, reply func(v any))) *fabric {
	f := &fabric{t: t, handle: handle, ready: make(chan struct{})}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fabric) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fabric) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	close(f.ready)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		f.mu.Lock()
		f.frames = append(f.frames, msg)
		f.mu.Unlock()
		if f.handle != nil {
			f.handle(msg, f.push)
		}
	}
}

func (f *fabric) push(v any) {
	<-f.ready
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.NoError(f.t, f.conn.WriteJSON(v))
}

func (f *fabric) received() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any{}, f.frames...)
}

func dial(t *testing.T, f *fabric) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, f.url())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestExecuteUnwrapsNestedResult(t *testing.T) {
	f := newFabric(t, func(msg map[string]any, reply func(v any)) {
		reply(map[string]any{
			"jsonrpc": "2.0",
			"id":      msg["id"],
			"result": map[string]any{
				"code":    "200",
				"node_id": "node-7",
				"result":  map[string]any{"result": map[string]any{"message": "OK"}},
			},
		})
	})
	c := dial(t, f)

	res, err := c.Execute(context.Background(), protocol.BuildRequest("webrtc.verto", nil, ""))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": "OK", "node_id": "node-7"}, res)
}

func TestExecuteReturnsProtocolError(t *testing.T) {
	f := newFabric(t, func(msg map[string]any, reply func(v any)) {
		reply(map[string]any{
			"jsonrpc": "2.0",
			"id":      msg["id"],
			"error":   map[string]any{"code": -32000, "message": "denied"},
		})
	})
	c := dial(t, f)

	_, err := c.Execute(context.Background(), protocol.BuildRequest("call.mute", nil, ""))
	var pe *protocol.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "-32000", pe.Code)
	assert.Equal(t, "denied", pe.Message)
}

func TestEventsAreAcknowledgedAndOrdered(t *testing.T) {
	f := newFabric(t, nil)
	c := dial(t, f)

	for i, typ := range []string{"call.joined", "member.joined", "member.updated"} {
		f.push(map[string]any{
			"jsonrpc": "2.0",
			"id":      string(rune('a' + i)),
			"method":  protocol.MethodEvent,
			"params": map[string]any{
				"event_type": typ,
				"params":     map[string]any{"seq": float64(i)},
			},
		})
	}

	var got []string
	for range 3 {
		select {
		case ev := <-c.Events():
			got = append(got, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	assert.Equal(t, []string{"call.joined", "member.joined", "member.updated"}, got)

	assert.Eventually(t, func() bool { return len(f.received()) == 3 }, 2*time.Second, 10*time.Millisecond)
	for _, ack := range f.received() {
		assert.Equal(t, map[string]any{}, ack["result"])
	}
}

func TestPingIsAnswered(t *testing.T) {
	cases := []struct {
		name string
		id   any
	}{
		{"string id", "ping-1"},
		{"numeric id", 42.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFabric(t, nil)
			_ = dial(t, f)

			f.push(map[string]any{"jsonrpc": "2.0", "id": tc.id, "method": protocol.MethodPing, "params": map[string]any{}})

			var answer map[string]any
			assert.Eventually(t, func() bool {
				for _, msg := range f.received() {
					if msg["id"] == tc.id {
						answer = msg
						return true
					}
				}
				return false
			}, 2*time.Second, 10*time.Millisecond)
			require.NotNil(t, answer)
			assert.Equal(t, map[string]any{}, answer["result"])
			assert.NotContains(t, answer, "error")
		})
	}
}

// TestCloseSettlesInflight verifies that a request without a response is
// rejected when the client closes, and that later requests fail fast.
func TestCloseSettlesInflight(t *testing.T) {
	f := newFabric(t, func(map[string]any, func(v any)) {})
	c := dial(t, f)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Execute(context.Background(), protocol.BuildRequest("call.mute", nil, ""))
		errCh <- err
	}()

	assert.Eventually(t, func() bool { return len(f.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	c.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight request did not settle")
	}

	_, err := c.Execute(context.Background(), protocol.BuildRequest("call.mute", nil, ""))
	assert.ErrorIs(t, err, ErrNoSession)

	_, open := <-c.Events()
	assert.False(t, open)
}

func TestExecuteHonorsCallerDeadline(t *testing.T) {
	f := newFabric(t, func(map[string]any, func(v any)) {})
	c := dial(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Execute(ctx, protocol.BuildRequest("call.mute", nil, ""))

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "call.mute", te.Method)
}
