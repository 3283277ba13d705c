package router

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/1ureka/sigcore/internal/capability"
	"github.com/1ureka/sigcore/internal/util"
	"golang.org/x/sync/errgroup"
)

// Router turns the inbound event stream into public events and keeps the
// member registry and the self-member anchor current.
type Router struct {
	*Emitter
	members *Registry

	mu       sync.Mutex
	self     *MemberRecord
	selfCall string
	caps     capability.Tree
	capsID   uint32
	info     map[string]Segment // call id -> segment fields

	// Owned by the dispatch loop.
	gate      originGate
	segments  map[string]*segment
	bySession map[string]string // room session id -> call id
}

// New creates an idle Router. Register handlers before calling Run.
func New() *Router {
	return &Router{
		Emitter:   newEmitter(),
		members:   newRegistry(),
		caps:      capability.New(nil),
		capsID:    util.FlagSetID(nil),
		info:      make(map[string]Segment),
		segments:  make(map[string]*segment),
		bySession: make(map[string]string),
	}
}

// Run is the dispatch loop. It consumes events until the channel is closed
// or ctx is done, then waits for every segment task to finish. Segments
// drain their queued events when the channel closes.
func (r *Router) Run(ctx context.Context, events <-chan Event) error {
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	fork := func(fn func() error) { g.Go(fn) }

loop:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			r.dispatch(taskCtx, ev, fork)
		case <-ctx.Done():
			break loop
		}
	}

	for id := range r.segments {
		r.dropSegment(id)
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *Router) dispatch(ctx context.Context, ev Event, fork func(func() error)) {
	if !r.gate.admit(ev) {
		util.Stats.AddDropped()
		util.LogDebug("router: dropped %s for call %s before origin joined", ev.Type, str(ev.Params, "call_id"))
		return
	}
	util.Stats.AddRouted()

	callID := r.owner(ev)
	seg := r.segments[callID]

	if ev.Type == CallJoined && seg == nil && callID != "" {
		seg = newSegment(r, callID)
		r.segments[callID] = seg
		fork(func() error {
			seg.run(ctx, fork)
			return nil
		})
	}
	if ev.Type == CallJoined {
		if rsid := str(ev.Params, "room_session_id"); rsid != "" {
			r.bySession[rsid] = callID
		}
		// Recorded in admission order: the origin anchors the self member.
		if callID != "" {
			r.joined(ev)
		}
	}

	if seg == nil {
		r.inline(ev)
		return
	}
	if !seg.deliver(ctx, ev) {
		util.LogWarning("router: segment %s is gone, handling %s inline", callID, ev.Type)
		r.dropSegment(callID)
		r.inline(ev)
		return
	}
	if ev.Type == CallLeft {
		r.dropSegment(callID)
	}
}

// owner returns the call id of the segment an event belongs to.
func (r *Router) owner(ev Event) string {
	if strings.HasPrefix(ev.Type, "call.") {
		return str(ev.Params, "call_id")
	}
	rsid := str(ev.Params, "room_session_id")
	if rsid == "" {
		rsid = str(obj(ev.Params, "member"), "room_session_id")
	}
	return r.bySession[rsid]
}

// dropSegment forgets a segment; its task exits after draining its inbox.
func (r *Router) dropSegment(callID string) {
	seg, ok := r.segments[callID]
	if !ok {
		return
	}
	delete(r.segments, callID)
	close(seg.inbox)
	for rsid, id := range r.bySession {
		if id == callID {
			delete(r.bySession, rsid)
		}
	}
}

// inline handles events that have no owning segment.
func (r *Router) inline(ev Event) {
	switch {
	case isMemberEvent(ev.Type):
		r.handleMember(ev)
	case ev.Type == CallLeft:
		r.left(str(ev.Params, "call_id"), ev)
	default:
		r.emit(ev.Type, ev.Params)
	}
}

// joined records the segment fields of an accepted call.joined, seeds the
// registry and caches the self member when none is cached yet.
func (r *Router) joined(ev Event) {
	p := ev.Params
	flags := stringList(p["capabilities"])
	seg := Segment{
		CallID:        str(p, "call_id"),
		OriginCallID:  str(p, "origin_call_id"),
		RoomID:        str(p, "room_id"),
		RoomSessionID: str(p, "room_session_id"),
		NodeID:        str(p, "node_id"),
		MemberID:      str(p, "member_id"),
		Flags:         flags,
		Capabilities:  capability.New(flags),
	}

	top := map[string]any{"room_id": seg.RoomID, "room_session_id": seg.RoomSessionID}
	var selfObj map[string]any
	if list, ok := obj(p, "room_session")["members"].([]any); ok {
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			r.members.seed(top, m)
			if seg.MemberID != "" && str(m, "member_id") == seg.MemberID {
				selfObj = m
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.info[seg.CallID] = seg
	if r.self == nil && selfObj != nil {
		r.self = &MemberRecord{Top: maps.Clone(top), Member: maps.Clone(selfObj)}
		r.selfCall = seg.CallID
		util.LogDebug("router: self member %s on call %s", seg.MemberID, seg.CallID)
	}
	if r.self != nil && r.self.ID() == seg.MemberID {
		r.setCapsLocked(flags)
	}
}

// left tears down a segment: members of its room session are removed, the
// self anchor is cleared when it belonged to the call, and both call.left
// and room.left are emitted with the same payload.
func (r *Router) left(callID string, ev Event) {
	rsid := str(ev.Params, "room_session_id")

	r.mu.Lock()
	if seg, ok := r.info[callID]; ok {
		if rsid == "" {
			rsid = seg.RoomSessionID
		}
		delete(r.info, callID)
	}
	if r.self != nil && r.selfCall == callID {
		r.self = nil
		r.selfCall = ""
		r.setCapsLocked(nil)
	}
	r.mu.Unlock()

	if rsid != "" {
		removed := r.members.RemoveSession(rsid)
		util.LogDebug("router: call %s left, removed %d members", callID, len(removed))
	}

	r.emit(CallLeft, ev.Params)
	r.emit(RoomLeft, ev.Params)
}

// handleMember applies a member event to the registry and emits the public
// events it produces.
func (r *Router) handleMember(ev Event) {
	change, ok := r.members.apply(ev.Type, ev.Params)
	if !ok {
		if ev.Type == MemberTalking && str(obj(ev.Params, "member"), "member_id") != "" {
			r.emitTalking(ev.Params, obj(ev.Params, "member"))
			return
		}
		util.LogDebug("router: ignoring %s without a known member", ev.Type)
		return
	}
	id := change.record.ID()

	switch ev.Type {
	case MemberUpdated:
		r.refreshSelf(id, change.record, ev.Params)
		r.emit(MemberUpdated, change.record.Params())
		for _, prop := range change.changed {
			r.emit(UpdatedEventName(prop), change.record.Params())
		}

	case MemberTalking:
		r.emitTalking(change.record.Params(), change.record.Member)

	case MemberLeft:
		r.emit(MemberLeft, ev.Params)

	default:
		r.emit(ev.Type, change.record.Params())
	}
}

// emitTalking emits member.talking followed by member.talking.started or
// member.talking.ended according to the member's talking flag.
func (r *Router) emitTalking(params, member map[string]any) {
	r.emit(MemberTalking, params)
	if talking, ok := member["talking"].(bool); ok {
		if talking {
			r.emit(MemberTalkingStarted, params)
		} else {
			r.emit(MemberTalkingEnded, params)
		}
	}
}

// refreshSelf keeps the self anchor in step with member.updated events and
// replaces the capability tree when the event carries a new flag list.
func (r *Router) refreshSelf(id string, rec *MemberRecord, params map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.self == nil || r.self.ID() != id {
		return
	}
	r.self = rec.clone()

	raw, ok := obj(params, "member")["capabilities"]
	if !ok {
		raw, ok = params["capabilities"]
	}
	if ok {
		r.setCapsLocked(stringList(raw))
	}
}

func (r *Router) setCapsLocked(flags []string) {
	id := util.FlagSetID(flags)
	if id == r.capsID {
		return
	}
	r.capsID = id
	r.caps = capability.New(flags)
	if seg, ok := r.info[r.selfCall]; ok {
		seg.Flags = flags
		seg.Capabilities = r.caps
		r.info[r.selfCall] = seg
	}
	util.LogDebug("router: capabilities updated (%08x)", id)
}

// SelfMemberID returns the cached self member id, or "" before any call has
// joined.
func (r *Router) SelfMemberID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.self == nil {
		return ""
	}
	return r.self.ID()
}

// Capabilities returns the permission tree of the self member.
func (r *Router) Capabilities() capability.Tree {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.caps
}

// Self returns the self member anchor and the segment it joined through.
func (r *Router) Self() (*MemberRecord, Segment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.self == nil {
		return nil, Segment{}, false
	}
	return r.self.clone(), r.info[r.selfCall], true
}

// Member returns the registry record for id.
func (r *Router) Member(id string) (*MemberRecord, bool) {
	return r.members.Get(id)
}

// Members returns every known member sorted by id.
func (r *Router) Members() []Member {
	return r.members.Members()
}

// Segment returns the fields of the segment for callID.
func (r *Router) Segment(callID string) (Segment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seg, ok := r.info[callID]
	return seg, ok
}

// Segments returns every live segment sorted by call id.
func (r *Router) Segments() []Segment {
	r.mu.Lock()
	out := slices.Collect(maps.Values(r.info))
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b Segment) int { return strings.Compare(a.CallID, b.CallID) })
	return out
}
