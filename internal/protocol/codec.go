package protocol

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"

	"github.com/google/uuid"
)

// Outcome is the result of parsing a response: exactly one of Result or
// Error is set.
type Outcome struct {
	Result map[string]any
	Error  *ProtocolError
}

// Err returns the outcome's error as an error value, or nil.
func (o Outcome) Err() error {
	if o.Error == nil {
		return nil
	}
	return o.Error
}

// BuildRequest creates a request envelope. A random id is generated when id
// is empty.
func BuildRequest(method string, params map[string]any, id string) *Request {
	if id == "" {
		id = uuid.NewString()
	}
	return &Request{
		JSONRPC: Version,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// BuildResponse creates a successful response to the request with the given id.
func BuildResponse(id string, result map[string]any) *Response {
	if result == nil {
		result = map[string]any{}
	}
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// Encode serializes an envelope for transmission.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// Decode deserializes an inbound frame.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if msg.JSONRPC != Version {
		return nil, fmt.Errorf("decode envelope: unsupported jsonrpc version %q", msg.JSONRPC)
	}
	return &msg, nil
}

// ParseResponse interprets res as the answer to req. It never mutates its
// inputs and never panics on malformed nesting.
//
// A top-level error wins. Otherwise the result is unwrapped: a nested
// "result" field marks an embedded Verto envelope whose "code" must be a
// success code; a second level of nesting is followed recursively, with the
// outer node_id inherited by the innermost result.
func ParseResponse(req *Request, res *Response) Outcome {
	if res.Error != nil {
		return Outcome{Error: errorFromRPC(res.Error)}
	}
	if req != nil && req.Method == MethodConnect {
		return Outcome{Result: orEmpty(res.Result)}
	}
	return unwrap(orEmpty(res.Result), "")
}

func unwrap(result map[string]any, nodeID string) Outcome {
	nested, ok := result["result"]
	if !ok || nested == nil {
		return Outcome{Result: withNodeID(result, nodeID)}
	}

	if code, ok := result["code"]; ok && !IsSuccessCode(code) {
		return Outcome{Error: errorFromObject(result)}
	}

	hop, _ := result["node_id"].(string)
	inner, ok := nested.(map[string]any)
	if !ok {
		return Outcome{Result: withNodeID(result, nodeID)}
	}
	if verr, ok := inner["error"].(map[string]any); ok {
		return Outcome{Error: errorFromObject(verr)}
	}
	if deeper, ok := inner["result"].(map[string]any); ok {
		return unwrap(deeper, hop)
	}
	return Outcome{Result: withNodeID(inner, hop)}
}

// IsSuccessCode reports whether a nested envelope code is a 2xx code. Both
// string ("200") and numeric (200) forms are accepted.
func IsSuccessCode(code any) bool {
	var n int
	switch c := code.(type) {
	case string:
		v, err := strconv.Atoi(c)
		if err != nil {
			return false
		}
		n = v
	case float64:
		if c != float64(int(c)) {
			return false
		}
		n = int(c)
	case int:
		n = c
	default:
		return false
	}
	return n >= 200 && n <= 226
}

func withNodeID(result map[string]any, nodeID string) map[string]any {
	if nodeID == "" {
		return result
	}
	out := maps.Clone(result)
	out["node_id"] = nodeID
	return out
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
