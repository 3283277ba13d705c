package router

import (
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Registry is the arena of MemberRecords keyed by member id.
type Registry struct {
	mu      sync.Mutex
	records map[string]*MemberRecord
}

func newRegistry() *Registry {
	return &Registry{records: make(map[string]*MemberRecord)}
}

// memberChange is the outcome of applying one member event.
type memberChange struct {
	record  *MemberRecord // snapshot after the change
	changed []string      // changed nested properties
	created bool
	removed bool
}

// apply merges a member event into the registry under a single lock
// acquisition. It reports false when the event carries no member id or is a
// talking event for an unknown member.
func (reg *Registry) apply(name string, params map[string]any) (memberChange, bool) {
	member := obj(params, "member")
	id := str(member, "member_id")
	if id == "" {
		return memberChange{}, false
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	rec, ok := reg.records[id]
	created := false
	if !ok {
		// Talking payloads carry little more than the id.
		if name == MemberTalking {
			return memberChange{}, false
		}
		rec = newRecord()
		reg.records[id] = rec
		created = true
	}

	for k, v := range params {
		if k != "member" {
			rec.Top[k] = v
		}
	}

	var changed []string
	for k, v := range member {
		if k == "updated" {
			continue
		}
		if old, ok := rec.Member[k]; !ok || !reflect.DeepEqual(old, v) {
			changed = append(changed, k)
		}
		rec.Member[k] = v
	}

	if hinted := stringList(member["updated"]); len(hinted) > 0 {
		changed = hinted
	} else {
		changed = slices.DeleteFunc(changed, func(k string) bool { return k == "member_id" })
		slices.Sort(changed)
	}

	out := memberChange{record: rec.clone(), changed: changed, created: created}
	if name == MemberLeft {
		delete(reg.records, id)
		out.removed = true
	}
	return out, true
}

// seed inserts or merges a member object taken from a call.joined payload.
func (reg *Registry) seed(top map[string]any, member map[string]any) {
	id := str(member, "member_id")
	if id == "" {
		return
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rec, ok := reg.records[id]
	if !ok {
		rec = newRecord()
		reg.records[id] = rec
	}
	for k, v := range top {
		rec.Top[k] = v
	}
	for k, v := range member {
		rec.Member[k] = v
	}
}

// Get returns a snapshot of the record for id.
func (reg *Registry) Get(id string) (*MemberRecord, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rec, ok := reg.records[id]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

// RemoveSession removes every record belonging to roomSessionID and returns
// the removed ids.
func (reg *Registry) RemoveSession(roomSessionID string) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var removed []string
	for id, rec := range reg.records {
		if rec.RoomSessionID() == roomSessionID {
			delete(reg.records, id)
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	return removed
}

// Len returns the number of records.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.records)
}

// Members returns typed views of every record, sorted by id.
func (reg *Registry) Members() []Member {
	reg.mu.Lock()
	out := make([]Member, 0, len(reg.records))
	for _, rec := range reg.records {
		out = append(out, rec.View())
	}
	reg.mu.Unlock()

	slices.SortFunc(out, func(a, b Member) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func stringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, x := range raw {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
