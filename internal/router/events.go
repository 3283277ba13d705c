// Package router consumes the inbound server event stream of a session and
// turns it into the public call event surface.
//
// A single dispatch loop gates call.joined events on the origin call, then
// hands every event to the task owning its call segment. Each segment task
// processes its events in arrival order and forks a member-position worker.
// The member registry and the self-member/capability cache are the only state
// shared across tasks; each mutation happens under one lock acquisition.
package router

import (
	"strings"

	"github.com/1ureka/sigcore/internal/protocol"
)

// Event is a public (or internal) router event.
type Event = protocol.Event

// Inbound and public event names in the call domain.
const (
	CallJoined    = "call.joined"
	CallState     = "call.state"
	CallUpdated   = "call.updated"
	CallLeft      = "call.left"
	RoomLeft      = "room.left"
	LayoutChanged = "layout.changed"

	MemberJoined  = "member.joined"
	MemberUpdated = "member.updated"
	MemberLeft    = "member.left"
	MemberTalking = "member.talking"

	MemberTalkingStarted = "member.talking.started"
	MemberTalkingEnded   = "member.talking.ended"
)

// Internal room-domain names, used only behind the member-position worker
// boundary.
const (
	roomJoined          = "video.room.joined"
	roomMemberJoined    = "video.member.joined"
	roomMemberUpdated   = "video.member.updated"
	roomMemberLeft      = "video.member.left"
	roomLayoutChanged   = "video.layout.changed"
	offCanvas           = "off-canvas"
	propCurrentPosition = "current_position"
)

// isMemberEvent reports whether name is a member.* event.
func isMemberEvent(name string) bool {
	return strings.HasPrefix(name, "member.")
}

// UpdatedEventName returns the namespaced event emitted for one changed
// member property, e.g. "audio_muted" -> "member.updated.audioMuted".
func UpdatedEventName(property string) string {
	return MemberUpdated + "." + camelCase(property)
}

func camelCase(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// str reads a string field from a JSON object.
func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// obj reads a nested JSON object.
func obj(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	return o
}
