package signaling

import (
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/1ureka/sigcore/internal/protocol"
	"github.com/1ureka/sigcore/internal/util"
)

// receiver reads inbound frames and routes them: responses settle pending
// requests, events are acknowledged and queued, pings are answered.
type receiver struct {
	conn   *websocket.Conn
	sender *sender
	client *Client
}

// watch runs until the connection fails or is closed.
func (r *receiver) watch() error {
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read WS message: %w", err)
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			util.LogWarning("signaling: dropping frame: %v", err)
			continue
		}

		switch {
		case msg.IsResponse():
			res, err := msg.Response()
			if err != nil {
				util.LogWarning("signaling: %v", err)
				continue
			}
			r.client.settle(res)

		case msg.Method == protocol.MethodPing:
			if err := r.sender.reply(msg); err != nil {
				return err
			}

		case msg.Method == protocol.MethodEvent:
			req := &protocol.Request{JSONRPC: msg.JSONRPC, ID: msg.ID, Method: msg.Method, Params: msg.Params}
			if msg.ID != "" {
				if err := r.sender.reply(msg); err != nil {
					return err
				}
			}
			ev, err := protocol.EventFromRequest(req)
			if err != nil {
				util.LogWarning("signaling: %v", err)
				continue
			}
			if !r.client.deliver(ev) {
				return nil
			}

		default:
			util.LogDebug("signaling: ignoring method %q", msg.Method)
		}
	}
}
