package router

// originGate admits call.joined events only once the origin segment has
// joined. It is owned by the dispatch loop and needs no locking.
type originGate struct {
	seen bool
}

// admit reports whether ev may be routed. call.state always passes. Before
// the origin call has joined, only the call.joined whose call_id equals its
// origin_call_id passes, and it opens the gate; afterwards every call.joined
// passes. Other events are not gated.
func (g *originGate) admit(ev Event) bool {
	switch ev.Type {
	case CallState:
		return true
	case CallJoined:
		if g.seen {
			return true
		}
		callID := str(ev.Params, "call_id")
		if callID != "" && callID == str(ev.Params, "origin_call_id") {
			g.seen = true
			return true
		}
		return false
	default:
		return true
	}
}
