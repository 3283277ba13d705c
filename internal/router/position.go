package router

import (
	"context"
	"maps"

	"github.com/1ureka/sigcore/internal/util"
)

// positionWorker tracks layout positions for the members of one call and
// emits video.member.updated events when a member's current_position
// changes. It works on room-domain events only.
type positionWorker struct {
	inbox   chan Event
	done    chan struct{}
	members map[string]map[string]any // member id -> room-domain member event params
	emit    func(Event)
}

func newPositionWorker(joined Event, emit func(Event)) *positionWorker {
	w := &positionWorker{
		inbox:   make(chan Event, inboxBufferSize),
		done:    make(chan struct{}),
		members: make(map[string]map[string]any),
		emit:    emit,
	}

	rs := obj(joined.Params, "room_session")
	top := map[string]any{
		"room_id":         str(joined.Params, "room_id"),
		"room_session_id": str(joined.Params, "room_session_id"),
	}
	if list, ok := rs["members"].([]any); ok {
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok || str(m, "id") == "" {
				continue
			}
			params := maps.Clone(top)
			params["member"] = m
			w.members[str(m, "id")] = params
		}
	}
	return w
}

// run consumes events until the inbox is closed or ctx is done. A panic in
// a handler stops the worker only; later sends are discarded.
func (w *positionWorker) run(ctx context.Context) error {
	defer close(w.done)
	defer func() {
		if v := recover(); v != nil {
			util.LogError("router: position worker stopped: %v", v)
		}
	}()

	for {
		select {
		case ev, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.handle(ev)
		case <-ctx.Done():
			return nil
		}
	}
}

// send hands ev to the worker; it gives up when the worker has stopped or
// ctx is done.
func (w *positionWorker) send(ctx context.Context, ev Event) {
	select {
	case w.inbox <- ev:
	case <-w.done:
	case <-ctx.Done():
	}
}

func (w *positionWorker) handle(ev Event) {
	member := obj(ev.Params, "member")
	id := str(member, "id")

	switch ev.Type {
	case roomMemberJoined:
		if id != "" {
			w.members[id] = ev.Params
		}

	case roomMemberUpdated:
		if id == "" {
			return
		}
		prev, ok := w.members[id]
		if !ok {
			w.members[id] = ev.Params
			return
		}
		merged := maps.Clone(prev)
		for k, v := range ev.Params {
			if k != "member" {
				merged[k] = v
			}
		}
		m := maps.Clone(obj(prev, "member"))
		for k, v := range member {
			if k != "updated" {
				m[k] = v
			}
		}
		merged["member"] = m
		w.members[id] = merged

	case roomMemberLeft:
		delete(w.members, id)

	case roomLayoutChanged:
		w.applyLayout(ev.Params)

	default:
		util.LogDebug("router: position worker ignoring %s", ev.Type)
	}
}

// applyLayout sets current_position for members placed on a layer and moves
// every other member off canvas.
func (w *positionWorker) applyLayout(params map[string]any) {
	layout := obj(params, "layout")
	layers, _ := layout["layers"].([]any)

	placed := make(map[string]bool)
	for _, item := range layers {
		layer, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := str(layer, "member_id")
		if id == "" {
			continue
		}
		placed[id] = true
		w.moveTo(id, str(layer, "position"))
	}

	for id := range w.members {
		if !placed[id] {
			w.moveTo(id, offCanvas)
		}
	}
}

func (w *positionWorker) moveTo(id, position string) {
	prev, ok := w.members[id]
	if !ok || position == "" {
		return
	}
	member := obj(prev, "member")
	if str(member, propCurrentPosition) == position {
		return
	}

	m := maps.Clone(member)
	m[propCurrentPosition] = position
	params := maps.Clone(prev)
	params["member"] = m
	w.members[id] = params

	out := maps.Clone(params)
	outMember := maps.Clone(m)
	outMember["updated"] = []any{propCurrentPosition}
	out["member"] = outMember
	w.emit(Event{Type: roomMemberUpdated, Params: out})
}
