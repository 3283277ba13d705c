package router

import (
	"context"

	"github.com/1ureka/sigcore/internal/capability"
	"github.com/1ureka/sigcore/internal/util"
)

const inboxBufferSize = 64

// Segment is one leg of a call, keyed by call id.
type Segment struct {
	CallID        string
	OriginCallID  string
	RoomID        string
	RoomSessionID string
	NodeID        string
	MemberID      string
	Flags         []string
	Capabilities  capability.Tree
}

// segment is the task owning one call id. It processes its events in
// arrival order and owns the member-position worker for the call.
type segment struct {
	r      *Router
	callID string
	inbox  chan Event
	done   chan struct{}
	worker *positionWorker
}

func newSegment(r *Router, callID string) *segment {
	return &segment{
		r:      r,
		callID: callID,
		inbox:  make(chan Event, inboxBufferSize),
		done:   make(chan struct{}),
	}
}

// run drains the inbox until it is closed or ctx is done. A failure inside
// the segment is logged and ends this task only.
func (s *segment) run(ctx context.Context, fork func(func() error)) {
	defer close(s.done)
	defer func() {
		if s.worker != nil {
			close(s.worker.inbox)
		}
	}()
	defer func() {
		if v := recover(); v != nil {
			util.LogError("router: segment %s stopped: %v", s.callID, v)
		}
	}()

	for {
		select {
		case ev, ok := <-s.inbox:
			if !ok {
				return
			}
			s.handle(ctx, ev, fork)
		case <-ctx.Done():
			return
		}
	}
}

// deliver queues ev for the segment. It reports false when the segment has
// already stopped.
func (s *segment) deliver(ctx context.Context, ev Event) bool {
	select {
	case s.inbox <- ev:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *segment) handle(ctx context.Context, ev Event, fork func(func() error)) {
	switch {
	case ev.Type == CallJoined:
		if s.worker == nil {
			s.startWorker(ctx, ev, fork)
		}
		s.r.emit(ev.Type, ev.Params)

	case ev.Type == CallLeft:
		s.r.left(s.callID, ev)

	case isMemberEvent(ev.Type):
		s.r.handleMember(ev)
		if ev.Type != MemberTalking {
			s.forward(ctx, ev)
		}

	case ev.Type == LayoutChanged:
		s.r.emit(ev.Type, ev.Params)
		s.forward(ctx, ev)

	default:
		s.r.emit(ev.Type, ev.Params)
	}
}

func (s *segment) startWorker(ctx context.Context, joined Event, fork func(func() error)) {
	room, ok := toRoom(joined)
	if !ok {
		return
	}
	w := newPositionWorker(room, func(out Event) {
		if ev, ok := toCall(out); ok {
			s.r.handleMember(ev)
		}
	})
	s.worker = w
	fork(func() error { return w.run(ctx) })
}

func (s *segment) forward(ctx context.Context, ev Event) {
	if s.worker == nil {
		return
	}
	if room, ok := toRoom(ev); ok {
		s.worker.send(ctx, room)
	}
}
