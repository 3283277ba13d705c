package call

import (
	"context"
	"maps"

	"github.com/1ureka/sigcore/internal/capability"
)

// An empty memberID targets the self member in every per-member action.

func channels(kind string) func(capability.Params) map[string]any {
	return func(capability.Params) map[string]any {
		return map[string]any{"channels": []string{kind}}
	}
}

func (c *Call) member(ctx context.Context, action capability.Action, method, memberID string, extra func(capability.Params) map[string]any) error {
	_, err := c.run(ctx, request{action: action, method: method, target: true, extra: extra}, capability.Params{MemberID: memberID})
	return err
}

// AudioMute mutes the member's microphone.
func (c *Call) AudioMute(ctx context.Context, memberID string) error {
	return c.member(ctx, capability.ActionMuteAudio, "call.mute", memberID, channels("audio"))
}

// AudioUnmute unmutes the member's microphone.
func (c *Call) AudioUnmute(ctx context.Context, memberID string) error {
	return c.member(ctx, capability.ActionUnmuteAudio, "call.unmute", memberID, channels("audio"))
}

// VideoMute mutes the member's camera.
func (c *Call) VideoMute(ctx context.Context, memberID string) error {
	return c.member(ctx, capability.ActionMuteVideo, "call.mute", memberID, channels("video"))
}

// VideoUnmute unmutes the member's camera.
func (c *Call) VideoUnmute(ctx context.Context, memberID string) error {
	return c.member(ctx, capability.ActionUnmuteVideo, "call.unmute", memberID, channels("video"))
}

func (c *Call) Deaf(ctx context.Context, memberID string) error {
	return c.member(ctx, capability.ActionDeaf, "call.deaf", memberID, nil)
}

func (c *Call) Undeaf(ctx context.Context, memberID string) error {
	return c.member(ctx, capability.ActionUndeaf, "call.undeaf", memberID, nil)
}

// RemoveMember removes another member from the call. memberID is required.
func (c *Call) RemoveMember(ctx context.Context, memberID string) error {
	return c.member(ctx, capability.ActionRemoveMember, "call.member.remove", memberID, nil)
}

func (c *Call) RaiseHand(ctx context.Context, memberID string) error {
	return c.member(ctx, capability.ActionRaiseHand, "call.raisehand", memberID, nil)
}

func (c *Call) LowerHand(ctx context.Context, memberID string) error {
	return c.member(ctx, capability.ActionLowerHand, "call.lowerhand", memberID, nil)
}

// SetInputVolume sets the microphone volume, in [-50, 50].
func (c *Call) SetInputVolume(ctx context.Context, memberID string, volume float64) error {
	_, err := c.run(ctx, request{
		action: capability.ActionSetInputVolume,
		method: "call.microphone.volume.set",
		target: true,
		extra:  func(p capability.Params) map[string]any { return map[string]any{"volume": p.Volume} },
	}, capability.Params{MemberID: memberID, Volume: volume})
	return err
}

// SetOutputVolume sets the speaker volume, in [-50, 50].
func (c *Call) SetOutputVolume(ctx context.Context, memberID string, volume float64) error {
	_, err := c.run(ctx, request{
		action: capability.ActionSetOutputVolume,
		method: "call.speaker.volume.set",
		target: true,
		extra:  func(p capability.Params) map[string]any { return map[string]any{"volume": p.Volume} },
	}, capability.Params{MemberID: memberID, Volume: volume})
	return err
}

// SetInputSensitivity sets the microphone sensitivity, in [0, 100].
func (c *Call) SetInputSensitivity(ctx context.Context, memberID string, value float64) error {
	_, err := c.run(ctx, request{
		action: capability.ActionSetSensitivity,
		method: "call.microphone.sensitivity.set",
		target: true,
		extra:  func(p capability.Params) map[string]any { return map[string]any{"value": p.Sensitivity} },
	}, capability.Params{MemberID: memberID, Sensitivity: value})
	return err
}

// SetAudioFlags updates processing flags such as echo_cancellation.
func (c *Call) SetAudioFlags(ctx context.Context, memberID string, flags map[string]bool) error {
	_, err := c.run(ctx, request{
		action: capability.ActionSetAudioFlags,
		method: "call.audioflags.set",
		target: true,
		extra: func(p capability.Params) map[string]any {
			out := make(map[string]any, len(p.AudioFlags))
			for k, v := range p.AudioFlags {
				out[k] = v
			}
			return out
		},
	}, capability.Params{MemberID: memberID, AudioFlags: flags})
	return err
}

// SetMemberMeta replaces the member's meta object.
func (c *Call) SetMemberMeta(ctx context.Context, memberID string, meta map[string]any) error {
	_, err := c.run(ctx, request{
		action: capability.ActionSetMemberMeta,
		method: "call.member.meta.set",
		target: true,
		extra:  func(p capability.Params) map[string]any { return map[string]any{"meta": maps.Clone(p.Meta)} },
	}, capability.Params{MemberID: memberID, Meta: meta})
	return err
}

// SetLayout switches the call layout. positions may be nil.
func (c *Call) SetLayout(ctx context.Context, name string, positions map[string]string) error {
	_, err := c.run(ctx, request{
		action: capability.ActionSetLayout,
		method: "call.layout.set",
		extra: func(p capability.Params) map[string]any {
			out := map[string]any{"layout": p.Layout}
			if len(p.Positions) > 0 {
				out["positions"] = c.positions(p.Positions)
			}
			return out
		},
	}, capability.Params{Layout: name, Positions: positions})
	return err
}

// SetPositions moves members to layout positions. Keys are member ids or
// "self".
func (c *Call) SetPositions(ctx context.Context, positions map[string]string) error {
	_, err := c.run(ctx, request{
		action: capability.ActionSetPositions,
		method: "call.member.position.set",
		extra: func(p capability.Params) map[string]any {
			return map[string]any{"positions": c.positions(p.Positions)}
		},
	}, capability.Params{Positions: positions})
	return err
}

// positions replaces the "self" key with the self member id.
func (c *Call) positions(in map[string]string) map[string]any {
	self := c.anchor.SelfMemberID()
	out := make(map[string]any, len(in))
	for id, pos := range in {
		if id == "self" {
			id = self
		}
		out[id] = pos
	}
	return out
}

func (c *Call) Lock(ctx context.Context) error {
	_, err := c.run(ctx, request{action: capability.ActionLock, method: "call.lock"}, capability.Params{})
	return err
}

func (c *Call) Unlock(ctx context.Context) error {
	_, err := c.run(ctx, request{action: capability.ActionUnlock, method: "call.unlock"}, capability.Params{})
	return err
}

// HideVideoMuted hides video-muted members from the layout.
func (c *Call) HideVideoMuted(ctx context.Context) error {
	_, err := c.run(ctx, request{action: capability.ActionSetVmutedHide, method: "call.vmuted.hide"}, capability.Params{})
	return err
}

// ShowVideoMuted shows video-muted members again.
func (c *Call) ShowVideoMuted(ctx context.Context) error {
	_, err := c.run(ctx, request{action: capability.ActionUnsetVmutedHide, method: "call.vmuted.show"}, capability.Params{})
	return err
}

// SendDigits sends DTMF digits on the self member's call.
func (c *Call) SendDigits(ctx context.Context, digits string) error {
	_, err := c.run(ctx, request{
		action: capability.ActionSendDigits,
		method: "call.digit.send",
		extra:  func(p capability.Params) map[string]any { return map[string]any{"digits": p.Digits} },
	}, capability.Params{Digits: digits})
	return err
}

// End ends the call for every member.
func (c *Call) End(ctx context.Context) error {
	_, err := c.run(ctx, request{action: capability.ActionEnd, method: "call.end"}, capability.Params{})
	return err
}
