// Package media is the peer-connection side of a session: it builds pion
// PeerConnections that log through the shared logger and decides when a
// resumed session must restart ICE.
package media

import (
	"github.com/pion/webrtc/v4"
)

// DefaultICEServers are used when the configuration names none.
var DefaultICEServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// NewAPI returns a pion API whose internal logs go to the pterm logger.
func NewAPI() *webrtc.API {
	se := webrtc.SettingEngine{LoggerFactory: LoggerFactory{}}
	return webrtc.NewAPI(webrtc.WithSettingEngine(se))
}

// NewPeerConnection creates a PeerConnection using iceServers, or
// DefaultICEServers when the list is empty.
func NewPeerConnection(iceServers []string) (*webrtc.PeerConnection, error) {
	if len(iceServers) == 0 {
		iceServers = DefaultICEServers
	}
	config := webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: iceServers},
		},
	}
	return NewAPI().NewPeerConnection(config)
}

// OpenPeer creates a PeerConnection and a Monitor already tracking it. The
// caller owns the connection and must close it.
func OpenPeer(iceServers []string) (*webrtc.PeerConnection, *Monitor, error) {
	pc, err := NewPeerConnection(iceServers)
	if err != nil {
		return nil, nil, err
	}
	return pc, Watch(pc), nil
}
