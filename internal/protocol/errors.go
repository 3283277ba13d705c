package protocol

import (
	"fmt"
	"strconv"
)

// ProtocolError is an erroring or malformed RPC response. Code is kept as a
// string because nested Verto envelopes carry codes as strings ("404") while
// JSON-RPC errors carry them as numbers.
type ProtocolError struct {
	Code    string
	Message string
	Data    map[string]any
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rpc error %s", e.Code)
	}
	return fmt.Sprintf("rpc error %s: %s", e.Code, e.Message)
}

func errorFromRPC(e *RPCError) *ProtocolError {
	return &ProtocolError{
		Code:    strconv.Itoa(e.Code),
		Message: e.Message,
		Data:    e.Data,
	}
}

// errorFromObject builds a ProtocolError out of a nested error object such
// as {code:"403", message:"..."}. The whole object is kept as Data.
func errorFromObject(obj map[string]any) *ProtocolError {
	pe := &ProtocolError{Data: obj}
	switch c := obj["code"].(type) {
	case string:
		pe.Code = c
	case float64:
		pe.Code = strconv.FormatFloat(c, 'f', -1, 64)
	case int:
		pe.Code = strconv.Itoa(c)
	case nil:
	default:
		pe.Code = fmt.Sprint(c)
	}
	if msg, ok := obj["message"].(string); ok {
		pe.Message = msg
	}
	return pe
}
