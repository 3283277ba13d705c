package router

import "maps"

// The member-position worker speaks the room domain, where a member object
// is keyed by "id"; the call domain keys it by "member_id". toRoom and toCall
// are exact inverses on the member objects they touch and leave every other
// field alone.

var (
	callToRoomNames = map[string]string{
		CallJoined:    roomJoined,
		MemberJoined:  roomMemberJoined,
		MemberUpdated: roomMemberUpdated,
		MemberLeft:    roomMemberLeft,
		LayoutChanged: roomLayoutChanged,
	}
	roomToCallNames = invert(callToRoomNames)
)

// toRoom converts a call-domain event into its room-domain form. It reports
// false for events the position worker does not consume.
func toRoom(ev Event) (Event, bool) {
	name, ok := callToRoomNames[ev.Type]
	if !ok {
		return Event{}, false
	}
	return Event{Type: name, Params: renameMembers(ev.Params, "member_id", "id")}, true
}

// toCall converts a room-domain event back into the call domain.
func toCall(ev Event) (Event, bool) {
	name, ok := roomToCallNames[ev.Type]
	if !ok {
		return Event{}, false
	}
	return Event{Type: name, Params: renameMembers(ev.Params, "id", "member_id")}, true
}

// renameMembers returns a copy of params in which the key from is renamed to
// to on params.member and on every entry of params.room_session.members.
func renameMembers(params map[string]any, from, to string) map[string]any {
	out := maps.Clone(params)
	if m := obj(params, "member"); m != nil {
		out["member"] = renameKey(m, from, to)
	}
	if rs := obj(params, "room_session"); rs != nil {
		rsOut := maps.Clone(rs)
		if list, ok := rs["members"].([]any); ok {
			renamed := make([]any, len(list))
			for i, item := range list {
				if m, ok := item.(map[string]any); ok {
					renamed[i] = renameKey(m, from, to)
				} else {
					renamed[i] = item
				}
			}
			rsOut["members"] = renamed
		}
		out["room_session"] = rsOut
	}
	return out
}

func renameKey(m map[string]any, from, to string) map[string]any {
	out := maps.Clone(m)
	if v, ok := out[from]; ok {
		delete(out, from)
		out[to] = v
	}
	return out
}

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
