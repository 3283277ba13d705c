package signaling

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/sigcore/internal/protocol"
)

const writeTimeout = 5 * time.Second

// sender serializes outgoing envelopes to the WebSocket (private).
type sender struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// send writes an envelope to the WebSocket, guarded by a mutex.
func (s *sender) send(v any) error {
	data, err := protocol.Encode(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(deadline()); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// reply acknowledges a server-initiated request, echoing its id.
func (s *sender) reply(msg *protocol.Message) error {
	return s.send(msg.Reply(nil))
}

func deadline() time.Time {
	return time.Now().Add(writeTimeout)
}
