// Package signaling is the JSON-RPC transport to the call-routing fabric.
// It issues requests over a WebSocket, settles them with the parsed
// response, and streams inbound server events in arrival order.
package signaling

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// connect dials the given WebSocket URL and returns the connection (private).
func connect(ctx context.Context, url string) (*websocket.Conn, error) {
	dialer := websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to WS server: %w", err)
	}
	return conn, nil
}
