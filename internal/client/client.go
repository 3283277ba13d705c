// Package client wires a session together: it dials the fabric, performs
// the signalwire.connect handshake with any persisted resumption state, and
// runs the router over the inbound event stream.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/1ureka/sigcore/internal/call"
	"github.com/1ureka/sigcore/internal/media"
	"github.com/1ureka/sigcore/internal/protocol"
	"github.com/1ureka/sigcore/internal/router"
	"github.com/1ureka/sigcore/internal/session"
	"github.com/1ureka/sigcore/internal/signaling"
	"github.com/1ureka/sigcore/internal/util"
)

// Protocol version announced in signalwire.connect.
var protocolVersion = map[string]any{"major": 4, "minor": 0, "revision": 0}

// Options configure a Client.
type Options struct {
	URL             string
	Token           string
	ProfileID       string
	DisableReattach bool
	// Storage persists resumption state. Nil keeps nothing.
	Storage session.Storage
	Retry   call.RetryConfig
	// Media reports the last peer-connection state of a resumed session.
	// Nil means no media was ever negotiated.
	Media *media.Monitor
}

// Resume describes how a connect related to a previous session.
type Resume struct {
	// Reattached is true when a persisted protocol id was offered.
	Reattached  bool
	PriorCallID string
	// ICERestart is true when the resumed media must renegotiate ICE.
	ICERestart bool
}

// Client is one signaling session.
type Client struct {
	opts   Options
	resume *session.Resumption
	router *router.Router
	call   *call.Call

	mu   sync.Mutex
	conn *signaling.Client
}

// New builds an unconnected Client and registers the router hooks that
// persist the prior call id.
func New(opts Options) (*Client, error) {
	c := &Client{
		opts: opts,
		resume: session.NewResumption(session.Options{
			Token:           opts.Token,
			ProfileID:       opts.ProfileID,
			DisableReattach: opts.DisableReattach,
			Storage:         opts.Storage,
		}),
		router: router.New(),
	}

	cl, err := call.New(c, c.router, opts.Retry)
	if err != nil {
		return nil, err
	}
	c.call = cl

	c.router.On(router.CallJoined, c.onCallJoined)
	c.router.On(router.CallLeft, c.onCallLeft)
	return c, nil
}

// Router exposes the public event surface and member registry.
func (c *Client) Router() *router.Router { return c.router }

// Call exposes the call actions.
func (c *Client) Call() *call.Call { return c.call }

// Resumption exposes the derived key set and reattach gate.
func (c *Client) Resumption() *session.Resumption { return c.resume }

// Execute implements call.Executor on the current connection.
func (c *Client) Execute(ctx context.Context, req *protocol.Request) (map[string]any, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, signaling.ErrNoSession
	}
	return conn.Execute(ctx, req)
}

// Connect dials the fabric and authenticates. A rejected handshake forgets
// any persisted state before returning the error.
func (c *Client) Connect(ctx context.Context) (Resume, error) {
	conn, err := signaling.Dial(ctx, c.opts.URL)
	if err != nil {
		return Resume{}, err
	}

	params := map[string]any{
		"version":        protocolVersion,
		"authentication": map[string]any{"jwt_token": c.opts.Token},
	}
	prior := c.resume.Protocol()
	if prior != "" {
		params["protocol"] = prior
	}
	if state := c.resume.AuthState(); state != "" {
		params["authorization_state"] = state
	}

	res, err := conn.Execute(ctx, protocol.BuildRequest(protocol.MethodConnect, params, ""))
	if err != nil {
		_ = conn.Close()
		var pe *protocol.ProtocolError
		if errors.As(err, &pe) {
			c.resume.Forget()
		}
		return Resume{}, fmt.Errorf("connect: %w", err)
	}

	if p, ok := res["protocol"].(string); ok {
		c.resume.SetProtocol(p)
	}
	if state, ok := res["authorization_state"].(string); ok {
		c.resume.SetAuthState(state)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	out := Resume{Reattached: prior != ""}
	if out.Reattached {
		out.PriorCallID = c.resume.PriorCallID()
		out.ICERestart = c.opts.Media != nil && c.opts.Media.NeedsICERestart()
	}
	util.LogDebug("client: connected (reattached=%v, ice restart=%v)", out.Reattached, out.ICERestart)
	return out, nil
}

// Run routes inbound events until the connection ends or ctx is done. When
// the fabric ends the session for good, persisted state is forgotten.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return signaling.ErrNoSession
	}

	err := c.router.Run(ctx, conn.Events())
	if ctx.Err() != nil {
		return err
	}

	reason := conn.Err()
	if Terminal(reason) {
		util.LogInfo("session ended by the fabric, forgetting resumption state")
		c.resume.Forget()
	}
	return reason
}

// Close ends the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Terminal reports whether a disconnect reason ends the session for good:
// a normal or policy close initiated by the fabric.
func Terminal(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.ClosePolicyViolation
}

func (c *Client) onCallJoined(ev router.Event) {
	callID, _ := ev.Params["call_id"].(string)
	origin, _ := ev.Params["origin_call_id"].(string)
	if callID != "" && callID == origin {
		c.resume.SetPriorCallID(callID)
	}
}

func (c *Client) onCallLeft(ev router.Event) {
	callID, _ := ev.Params["call_id"].(string)
	if callID != "" && callID == c.resume.PriorCallID() {
		c.resume.ClearPriorCallID()
	}
}
