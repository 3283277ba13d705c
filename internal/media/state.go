package media

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// ParseState maps a connection-state string onto a pion state. Unknown
// strings map to PeerConnectionStateUnknown.
func ParseState(s string) webrtc.PeerConnectionState {
	for _, st := range []webrtc.PeerConnectionState{
		webrtc.PeerConnectionStateNew,
		webrtc.PeerConnectionStateConnecting,
		webrtc.PeerConnectionStateConnected,
		webrtc.PeerConnectionStateDisconnected,
		webrtc.PeerConnectionStateFailed,
		webrtc.PeerConnectionStateClosed,
	} {
		if st.String() == s {
			return st
		}
	}
	return webrtc.PeerConnectionStateUnknown
}

// NeedsICERestart reports whether a resumed session whose peer connection
// last reported state must renegotiate ICE.
func NeedsICERestart(state webrtc.PeerConnectionState) bool {
	switch state {
	case webrtc.PeerConnectionStateClosed,
		webrtc.PeerConnectionStateFailed,
		webrtc.PeerConnectionStateDisconnected:
		return true
	default:
		return false
	}
}

// Monitor remembers the last connection state of a peer connection.
type Monitor struct {
	mu    sync.Mutex
	state webrtc.PeerConnectionState
}

// Watch starts tracking pc.
func Watch(pc *webrtc.PeerConnection) *Monitor {
	m := &Monitor{state: pc.ConnectionState()}
	pc.OnConnectionStateChange(m.observe)
	return m
}

// NewMonitor returns a Monitor seeded with state, for sessions without a
// live peer connection.
func NewMonitor(state webrtc.PeerConnectionState) *Monitor {
	return &Monitor{state: state}
}

func (m *Monitor) observe(state webrtc.PeerConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// State returns the last observed state.
func (m *Monitor) State() webrtc.PeerConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// NeedsICERestart applies NeedsICERestart to the last observed state.
func (m *Monitor) NeedsICERestart() bool {
	return NeedsICERestart(m.State())
}
