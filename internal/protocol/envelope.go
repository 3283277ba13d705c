// Package protocol defines the JSON-RPC 2.0 envelopes exchanged with the
// call-routing fabric and the codec that unwraps nested Verto responses.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the only JSON-RPC version spoken on the wire.
const Version = "2.0"

// Methods with special handling in the codec or the signaling client.
const (
	MethodConnect = "signalwire.connect"
	MethodEvent   = "signalwire.event"
	MethodPing    = "signalwire.ping"
)

// Request is an outbound (or inbound server-initiated) JSON-RPC request.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

// Response is a JSON-RPC response. Exactly one of Result or Error is set on
// a well-formed response.
type Response struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Result  map[string]any `json:"result,omitempty"`
	Error   *RPCError      `json:"error,omitempty"`

	rawID json.RawMessage // id as received, echoed verbatim
}

// MarshalJSON writes exactly one of "result" or "error". A success response
// with no result carries an empty object.
func (r Response) MarshalJSON() ([]byte, error) {
	id := r.rawID
	if len(id) == 0 {
		b, err := json.Marshal(r.ID)
		if err != nil {
			return nil, err
		}
		id = b
	}

	if r.Error != nil {
		return json.Marshal(struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      json.RawMessage `json:"id"`
			Error   *RPCError       `json:"error"`
		}{r.JSONRPC, id, r.Error})
	}

	result := r.Result
	if result == nil {
		result = map[string]any{}
	}
	return json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  map[string]any  `json:"result"`
	}{r.JSONRPC, id, result})
}

// RPCError is the top-level JSON-RPC error object.
type RPCError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Message is any inbound frame before it is classified as a request,
// notification or response.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"` // numeric ids keep their JSON spelling
	Method  string          `json:"method,omitempty"`
	Params  map[string]any  `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`

	rawID json.RawMessage
}

var errInvalidID = errors.New("id must be a string or a number")

// UnmarshalJSON accepts string and numeric ids.
func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	var aux struct {
		plain
		ID json.RawMessage `json:"id,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = Message(aux.plain)

	raw := bytes.TrimSpace(aux.ID)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return nil
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &m.ID); err != nil {
			return err
		}
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("decode id %s: %w", raw, errInvalidID)
		}
		m.ID = n.String()
	}
	m.rawID = append(json.RawMessage(nil), raw...)
	return nil
}

// Reply builds the success response to a server-initiated request, echoing
// its id exactly as received.
func (m *Message) Reply(result map[string]any) *Response {
	res := BuildResponse(m.ID, result)
	res.rawID = m.rawID
	return res
}

// IsResponse reports whether m answers a previously issued request.
func (m *Message) IsResponse() bool {
	return m.Method == "" && m.ID != ""
}

// Response converts m into a Response. It fails when the result is not a
// JSON object.
func (m *Message) Response() (*Response, error) {
	res := &Response{JSONRPC: m.JSONRPC, ID: m.ID, Error: m.Error}
	if len(m.Result) > 0 && string(m.Result) != "null" {
		if err := json.Unmarshal(m.Result, &res.Result); err != nil {
			return nil, fmt.Errorf("response %s: result is not an object: %w", m.ID, err)
		}
	}
	return res, nil
}
