package router

import (
	"encoding/json"
	"maps"
)

// Member types.
const (
	MemberTypeMember = "member"
	MemberTypeScreen = "screen"
	MemberTypeDevice = "device"
)

// Member is the typed view of a MemberRecord.
type Member struct {
	ID                string         `json:"member_id"`
	CallID            string         `json:"call_id"`
	NodeID            string         `json:"node_id"`
	RoomID            string         `json:"room_id"`
	RoomSessionID     string         `json:"room_session_id"`
	ParentID          string         `json:"parent_id"`
	Name              string         `json:"name"`
	Type              string         `json:"type"`
	CurrentPosition   string         `json:"current_position"`
	RequestedPosition string         `json:"requested_position"`
	AudioMuted        bool           `json:"audio_muted"`
	VideoMuted        bool           `json:"video_muted"`
	Talking           bool           `json:"talking"`
	Visible           bool           `json:"visible"`
	Deaf              bool           `json:"deaf"`
	HandRaised        bool           `json:"handraised"`
	InputVolume       float64        `json:"input_volume"`
	OutputVolume      float64        `json:"output_volume"`
	InputSensitivity  float64        `json:"input_sensitivity"`
	Meta              map[string]any `json:"meta"`
	SubscriberData    map[string]any `json:"subscriber_data"`
}

// MemberRecord is the registry entry for one member: the top-level fields
// of the last member event (room ids) and the merged nested member object.
type MemberRecord struct {
	Top    map[string]any
	Member map[string]any
}

func newRecord() *MemberRecord {
	return &MemberRecord{Top: map[string]any{}, Member: map[string]any{}}
}

// ID returns the record's member id.
func (r *MemberRecord) ID() string { return str(r.Member, "member_id") }

// RoomSessionID returns the room session the member belongs to.
func (r *MemberRecord) RoomSessionID() string {
	if id := str(r.Member, "room_session_id"); id != "" {
		return id
	}
	return str(r.Top, "room_session_id")
}

// Params rebuilds the public event payload for the record.
func (r *MemberRecord) Params() map[string]any {
	out := maps.Clone(r.Top)
	out["member"] = maps.Clone(r.Member)
	return out
}

// View decodes the record into a Member. Room ids fall back to the
// top-level fields when the nested object omits them.
func (r *MemberRecord) View() Member {
	merged := maps.Clone(r.Member)
	for _, key := range []string{"room_id", "room_session_id"} {
		if _, ok := merged[key]; !ok {
			if v, ok := r.Top[key]; ok {
				merged[key] = v
			}
		}
	}

	var m Member
	data, err := json.Marshal(merged)
	if err != nil {
		return Member{ID: r.ID()}
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return Member{ID: r.ID()}
	}
	return m
}

func (r *MemberRecord) clone() *MemberRecord {
	return &MemberRecord{Top: maps.Clone(r.Top), Member: maps.Clone(r.Member)}
}
