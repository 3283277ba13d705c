package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildRequestGeneratesID verifies that an id is generated only when
// none is supplied.
func TestBuildRequestGeneratesID(t *testing.T) {
	a := BuildRequest("call.mute", nil, "")
	b := BuildRequest("call.mute", nil, "")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, Version, a.JSONRPC)

	fixed := BuildRequest("call.mute", map[string]any{"x": 1}, "fixed-id")
	assert.Equal(t, "fixed-id", fixed.ID)
	assert.Equal(t, "call.mute", fixed.Method)
}

// TestParseResponseSuccessCodes verifies that every 2xx code yields the
// result unchanged.
func TestParseResponseSuccessCodes(t *testing.T) {
	codes := []any{"200", "201", "202", "226", 200.0, 201.0, 226.0}
	for _, code := range codes {
		req := BuildRequest("call.layout.list", nil, "")
		result := map[string]any{"code": code, "message": "OK"}
		out := ParseResponse(req, BuildResponse(req.ID, result))
		require.Nil(t, out.Error, "code %v", code)
		assert.Equal(t, result, out.Result, "code %v", code)
	}
}

func TestParseResponseTopLevelError(t *testing.T) {
	req := BuildRequest("call.mute", nil, "")
	res := &Response{JSONRPC: Version, ID: req.ID, Error: &RPCError{Code: -32603, Message: "boom"}}

	out := ParseResponse(req, res)
	require.NotNil(t, out.Error)
	assert.Nil(t, out.Result)
	assert.Equal(t, "-32603", out.Error.Code)
	assert.Equal(t, "boom", out.Error.Message)
	assert.Error(t, out.Err())
}

func TestParseResponseNestedUnwrap(t *testing.T) {
	req := BuildRequest("webrtc.verto", nil, "")
	res := BuildResponse(req.ID, map[string]any{
		"code":    "200",
		"node_id": "N",
		"result": map[string]any{
			"result": map[string]any{"message": "OK"},
		},
	})

	out := ParseResponse(req, res)
	require.Nil(t, out.Error)
	assert.Equal(t, map[string]any{"message": "OK", "node_id": "N"}, out.Result)
}

func TestParseResponseNestedErrorCode(t *testing.T) {
	testCases := []struct {
		name string
		code any
	}{
		{"string 404", "404"},
		{"numeric 500", 500.0},
		{"string 199", "199"},
		{"string 227", "227"},
		{"non numeric", "nope"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			nested := map[string]any{
				"code":    tc.code,
				"message": "denied",
				"result":  map[string]any{},
			}
			out := ParseResponse(BuildRequest("call.mute", nil, "1"), BuildResponse("1", nested))
			require.NotNil(t, out.Error)
			assert.Equal(t, "denied", out.Error.Message)
			assert.Equal(t, nested, out.Error.Data)
		})
	}
}

func TestParseResponseVertoError(t *testing.T) {
	res := BuildResponse("1", map[string]any{
		"code": "200",
		"result": map[string]any{
			"jsonrpc": "2.0",
			"error":   map[string]any{"code": -32002.0, "message": "CALL DOES NOT EXIST"},
		},
	})
	out := ParseResponse(BuildRequest("webrtc.verto", nil, "1"), res)
	require.NotNil(t, out.Error)
	assert.Equal(t, "-32002", out.Error.Code)
	assert.Equal(t, "CALL DOES NOT EXIST", out.Error.Message)
}

func TestParseResponseSingleLevelKeepsOuterNode(t *testing.T) {
	res := BuildResponse("1", map[string]any{
		"code":    "200",
		"node_id": "node-1",
		"result":  map[string]any{"callID": "c-1"},
	})
	out := ParseResponse(BuildRequest("webrtc.verto", nil, "1"), res)
	require.Nil(t, out.Error)
	assert.Equal(t, map[string]any{"callID": "c-1", "node_id": "node-1"}, out.Result)
}

func TestParseResponseConnectBypassesUnwrap(t *testing.T) {
	result := map[string]any{
		"protocol": "signalwire_abc",
		"result":   map[string]any{"ignored": true},
		"code":     "500",
	}
	req := BuildRequest(MethodConnect, nil, "1")
	out := ParseResponse(req, BuildResponse("1", result))
	require.Nil(t, out.Error)
	assert.Equal(t, result, out.Result)
}

// TestParseResponsePureAndIdempotent verifies that parsing does not mutate
// the response and yields the same outcome when repeated.
func TestParseResponsePureAndIdempotent(t *testing.T) {
	raw := `{"jsonrpc":"2.0","id":"1","result":{"code":"200","node_id":"N","result":{"result":{"message":"OK"}}}}`
	var res Response
	require.NoError(t, json.Unmarshal([]byte(raw), &res))
	before, err := json.Marshal(res)
	require.NoError(t, err)

	req := BuildRequest("webrtc.verto", nil, "1")
	first := ParseResponse(req, &res)
	second := ParseResponse(req, &res)

	after, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Equal(t, first, second)
}

func TestDecodeClassifiesFrames(t *testing.T) {
	notif, err := Decode([]byte(`{"jsonrpc":"2.0","id":"9","method":"signalwire.event","params":{"event_type":"call.state"}}`))
	require.NoError(t, err)
	assert.False(t, notif.IsResponse())
	assert.Equal(t, MethodEvent, notif.Method)

	resp, err := Decode([]byte(`{"jsonrpc":"2.0","id":"9","result":{"a":1}}`))
	require.NoError(t, err)
	assert.True(t, resp.IsResponse())
	r, err := resp.Response()
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Result["a"])

	_, err = Decode([]byte(`{"jsonrpc":"1.0","id":"9"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncodeRoundTripsRequest(t *testing.T) {
	req := BuildRequest("call.mute", map[string]any{"channels": []any{"audio"}}, "abc")
	data, err := Encode(req)
	require.NoError(t, err)

	msg, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "abc", msg.ID)
	assert.Equal(t, "call.mute", msg.Method)
	assert.Equal(t, []any{"audio"}, msg.Params["channels"])
}

func TestResponseAlwaysCarriesResultOrError(t *testing.T) {
	cases := []struct {
		name string
		res  *Response
		want string
	}{
		{"empty ack", BuildResponse("evt-1", nil), `{"jsonrpc":"2.0","id":"evt-1","result":{}}`},
		{"bare struct", &Response{JSONRPC: Version, ID: "evt-2"}, `{"jsonrpc":"2.0","id":"evt-2","result":{}}`},
		{"with result", BuildResponse("evt-3", map[string]any{"a": 1}), `{"jsonrpc":"2.0","id":"evt-3","result":{"a":1}}`},
		{"error", &Response{JSONRPC: Version, ID: "evt-4", Error: &RPCError{Code: -32601, Message: "nope"}},
			`{"jsonrpc":"2.0","id":"evt-4","error":{"code":-32601,"message":"nope"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Encode(tc.res)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))
		})
	}
}

func TestDecodeAcceptsNumericIDs(t *testing.T) {
	cases := []struct {
		name   string
		frame  string
		wantID string
		echo   string
	}{
		{"string", `{"jsonrpc":"2.0","id":"7","method":"signalwire.ping"}`, "7", `"7"`},
		{"integer", `{"jsonrpc":"2.0","id":7,"method":"signalwire.ping"}`, "7", `7`},
		{"large integer", `{"jsonrpc":"2.0","id":9007199254740993,"method":"signalwire.event","params":{}}`, "9007199254740993", `9007199254740993`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Decode([]byte(tc.frame))
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, msg.ID)

			data, err := Encode(msg.Reply(nil))
			require.NoError(t, err)
			var out map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(data, &out))
			assert.Equal(t, tc.echo, string(out["id"]))
			assert.JSONEq(t, `{}`, string(out["result"]))
		})
	}

	_, err := Decode([]byte(`{"jsonrpc":"2.0","id":true,"method":"signalwire.ping"}`))
	assert.Error(t, err)

	notif, err := Decode([]byte(`{"jsonrpc":"2.0","id":null,"method":"signalwire.event","params":{}}`))
	require.NoError(t, err)
	assert.Empty(t, notif.ID)
}
