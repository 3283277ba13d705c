package protocol

import "fmt"

// Event is one inbound server event, unwrapped from its signalwire.event
// notification.
type Event struct {
	Type   string
	Params map[string]any
}

// EventFromRequest unwraps a signalwire.event request of the form
// {event_type, params}.
func EventFromRequest(req *Request) (Event, error) {
	if req.Method != MethodEvent {
		return Event{}, fmt.Errorf("not an event: %s", req.Method)
	}
	typ, _ := req.Params["event_type"].(string)
	if typ == "" {
		return Event{}, fmt.Errorf("event %s: missing event_type", req.ID)
	}
	params, _ := req.Params["params"].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}
	return Event{Type: typ, Params: params}, nil
}
