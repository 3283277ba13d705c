package signaling

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/1ureka/sigcore/internal/protocol"
	"github.com/1ureka/sigcore/internal/util"
)

// eventBufferSize is the capacity of the inbound event queue.
const eventBufferSize = 256

// pending is a request waiting for its response.
type pending struct {
	req *protocol.Request
	ch  chan protocol.Outcome
}

// Client is a JSON-RPC session over one WebSocket connection.
//
// Requests are matched to responses by id. When the connection ends every
// request still in flight settles with ErrClosed and the event stream is
// closed.
type Client struct {
	conn   *websocket.Conn
	sender *sender

	events chan protocol.Event
	done   chan struct{}

	mu       sync.Mutex
	inflight map[string]*pending
	closed   bool
	err      error
}

// Dial connects to url and starts the read loop.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, err := connect(ctx, url)
	if err != nil {
		return nil, err
	}
	util.LogDebug("WS connected: %s", url)
	return newClient(conn), nil
}

func newClient(conn *websocket.Conn) *Client {
	c := &Client{
		conn:     conn,
		sender:   &sender{conn: conn},
		events:   make(chan protocol.Event, eventBufferSize),
		done:     make(chan struct{}),
		inflight: make(map[string]*pending),
	}
	r := &receiver{conn: conn, sender: c.sender, client: c}

	// The receiver is the only writer of c.events, so it closes it.
	go func() {
		c.shutdown(r.watch())
		close(c.events)
	}()

	return c
}

// Events returns the ordered stream of inbound server events. It is closed
// when the connection ends.
func (c *Client) Events() <-chan protocol.Event {
	return c.events
}

// Done returns a channel that is closed when the connection has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the reason the connection ended, or nil while it is open.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Execute sends req and waits for its parsed outcome. Protocol-level errors
// are returned as *protocol.ProtocolError; a cancelled ctx yields a
// *TimeoutError and the late response, if any, is discarded.
func (c *Client) Execute(ctx context.Context, req *protocol.Request) (map[string]any, error) {
	p := &pending{req: req, ch: make(chan protocol.Outcome, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrNoSession
	}
	c.inflight[req.ID] = p
	c.mu.Unlock()

	if err := c.sender.send(req); err != nil {
		c.forget(req.ID)
		util.Stats.AddFailed()
		return nil, fmt.Errorf("%s: %w", req.Method, errors.Join(ErrNoSession, err))
	}
	util.Stats.AddSent()

	select {
	case out := <-p.ch:
		if out.Error != nil {
			util.Stats.AddFailed()
			return nil, out.Error
		}
		return out.Result, nil

	case <-c.done:
		// settle may have raced with shutdown.
		select {
		case out := <-p.ch:
			if out.Error != nil {
				util.Stats.AddFailed()
				return nil, out.Error
			}
			return out.Result, nil
		default:
		}
		util.Stats.AddFailed()
		return nil, fmt.Errorf("%s: %w", req.Method, ErrClosed)

	case <-ctx.Done():
		c.forget(req.ID)
		util.Stats.AddFailed()
		return nil, &TimeoutError{Method: req.Method, Err: ctx.Err()}
	}
}

// Close closes the connection. In-flight requests settle with ErrClosed.
func (c *Client) Close() error {
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline())
	c.shutdown(ErrClosed)
	<-c.done
	return err
}

// settle delivers a response to its pending request.
func (c *Client) settle(res *protocol.Response) {
	c.mu.Lock()
	p, ok := c.inflight[res.ID]
	delete(c.inflight, res.ID)
	c.mu.Unlock()

	if !ok {
		util.LogDebug("signaling: response for unknown request %s", res.ID)
		return
	}
	p.ch <- protocol.ParseResponse(p.req, res)
}

// deliver queues an event for the consumer. It reports false once the
// client has shut down.
func (c *Client) deliver(ev protocol.Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

// shutdown marks the client closed exactly once, releases waiters and
// closes the socket.
func (c *Client) shutdown(reason error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.err = reason
	c.inflight = make(map[string]*pending)
	c.mu.Unlock()

	close(c.done)
	_ = c.conn.Close()
	util.LogDebug("signaling: connection ended: %v", reason)
}
