package capability

import (
	"context"
	"fmt"
)

// Action names a mutating call action guarded by a validator.
type Action string

const (
	ActionMuteAudio       Action = "audioMute"
	ActionUnmuteAudio     Action = "audioUnmute"
	ActionMuteVideo       Action = "videoMute"
	ActionUnmuteVideo     Action = "videoUnmute"
	ActionDeaf            Action = "deaf"
	ActionUndeaf          Action = "undeaf"
	ActionRemoveMember    Action = "removeMember"
	ActionRaiseHand       Action = "raiseHand"
	ActionLowerHand       Action = "lowerHand"
	ActionSetLayout       Action = "setLayout"
	ActionSetInputVolume  Action = "setInputVolume"
	ActionSetOutputVolume Action = "setOutputVolume"
	ActionSetSensitivity  Action = "setInputSensitivity"
	ActionSetPositions    Action = "setPositions"
	ActionLock            Action = "lock"
	ActionUnlock          Action = "unlock"
	ActionSetAudioFlags   Action = "setAudioFlags"
	ActionSendDigits      Action = "sendDigits"
	ActionEnd             Action = "end"
	ActionSetMemberMeta   Action = "setMemberMeta"
	ActionSetVmutedHide   Action = "setVmutedHide"
	ActionUnsetVmutedHide Action = "unsetVmutedHide"
)

// Bounds for the numeric parameters.
const (
	MinVolume      = -50
	MaxVolume      = 50
	MinSensitivity = 0
	MaxSensitivity = 100
)

// Caller is the state validators consult: the session's own member id and
// its current permission tree.
type Caller interface {
	SelfMemberID() string
	Capabilities() Tree
}

// Params carries the arguments of a guarded action. Only the fields
// relevant to the action are read.
type Params struct {
	MemberID    string
	Volume      float64
	Sensitivity float64
	Layout      string
	Digits      string
	AudioFlags  map[string]bool
	Meta        map[string]any
	// Positions maps member ids (or "self") to layout positions.
	Positions map[string]string
}

// Validator checks p against the caller's permissions. It must not block.
type Validator func(c Caller, p Params) error

// isSelf reports whether p targets the caller's own member.
func isSelf(c Caller, p Params) bool {
	return p.MemberID == "" || p.MemberID == c.SelfMemberID()
}

func scopeOf(c Caller, p Params) Scope {
	if isSelf(c, p) {
		return ScopeSelf
	}
	return ScopeMember
}

// memberCheck builds a validator for a per-member permission leaf.
func memberCheck(action Action, missing string, leaf func(Member) bool) Validator {
	return func(c Caller, p Params) error {
		if !leaf(c.Capabilities().Scope(scopeOf(c, p))) {
			return &CapabilityError{Action: action, Missing: missing}
		}
		return nil
	}
}

// callCheck builds a validator for a call-wide permission leaf.
func callCheck(action Action, missing string, leaf func(Tree) bool) Validator {
	return func(c Caller, _ Params) error {
		if !leaf(c.Capabilities()) {
			return &CapabilityError{Action: action, Missing: missing}
		}
		return nil
	}
}

func inRange(param string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return &RangeError{Param: param, Value: v, Min: lo, Max: hi}
	}
	return nil
}

func chain(vs ...Validator) Validator {
	return func(c Caller, p Params) error {
		for _, v := range vs {
			if err := v(c, p); err != nil {
				return err
			}
		}
		return nil
	}
}

func requireMemberID(action Action) Validator {
	return func(_ Caller, p Params) error {
		if p.MemberID == "" {
			return fmt.Errorf("%s: %w: memberId is required", action, ErrInvalidParams)
		}
		return nil
	}
}

func validatePositions(c Caller, p Params) error {
	tree := c.Capabilities()
	for id := range p.Positions {
		scope := ScopeMember
		if id == "self" || id == c.SelfMemberID() {
			scope = ScopeSelf
		}
		if !tree.Scope(scope).Position {
			return &CapabilityError{Action: ActionSetPositions, Missing: "position"}
		}
	}
	return nil
}

// Validators maps every guarded action to its validator.
var Validators = map[Action]Validator{
	ActionMuteAudio:   memberCheck(ActionMuteAudio, "audio mute", func(m Member) bool { return m.MuteAudio.On }),
	ActionUnmuteAudio: memberCheck(ActionUnmuteAudio, "audio unmute", func(m Member) bool { return m.MuteAudio.Off }),
	ActionMuteVideo:   memberCheck(ActionMuteVideo, "video mute", func(m Member) bool { return m.MuteVideo.On }),
	ActionUnmuteVideo: memberCheck(ActionUnmuteVideo, "video unmute", func(m Member) bool { return m.MuteVideo.Off }),
	ActionDeaf:        memberCheck(ActionDeaf, "deaf", func(m Member) bool { return m.Deaf.On }),
	ActionUndeaf:      memberCheck(ActionUndeaf, "undeaf", func(m Member) bool { return m.Deaf.Off }),
	ActionRemoveMember: chain(
		requireMemberID(ActionRemoveMember),
		memberCheck(ActionRemoveMember, "remove", func(m Member) bool { return m.Remove }),
	),
	ActionRaiseHand: memberCheck(ActionRaiseHand, "raisehand", func(m Member) bool { return m.RaiseHand.On }),
	ActionLowerHand: memberCheck(ActionLowerHand, "lowerhand", func(m Member) bool { return m.RaiseHand.Off }),
	ActionSetLayout: callCheck(ActionSetLayout, "setLayout", func(t Tree) bool { return t.SetLayout }),
	ActionSetInputVolume: chain(
		memberCheck(ActionSetInputVolume, "microphone volume", func(m Member) bool { return m.MicrophoneVolume }),
		func(_ Caller, p Params) error { return inRange("volume", p.Volume, MinVolume, MaxVolume) },
	),
	ActionSetOutputVolume: chain(
		memberCheck(ActionSetOutputVolume, "speaker volume", func(m Member) bool { return m.SpeakerVolume }),
		func(_ Caller, p Params) error { return inRange("volume", p.Volume, MinVolume, MaxVolume) },
	),
	ActionSetSensitivity: chain(
		memberCheck(ActionSetSensitivity, "microphone sensitivity", func(m Member) bool { return m.MicrophoneSensitivity }),
		func(_ Caller, p Params) error {
			return inRange("sensitivity", p.Sensitivity, MinSensitivity, MaxSensitivity)
		},
	),
	ActionSetPositions:    validatePositions,
	ActionLock:            callCheck(ActionLock, "lock", func(t Tree) bool { return t.Lock.On }),
	ActionUnlock:          callCheck(ActionUnlock, "unlock", func(t Tree) bool { return t.Lock.Off }),
	ActionSetAudioFlags:   memberCheck(ActionSetAudioFlags, "audio flags", func(m Member) bool { return m.AudioFlags }),
	ActionSendDigits:      callCheck(ActionSendDigits, "send digit", func(t Tree) bool { return t.SendDigit }),
	ActionEnd:             callCheck(ActionEnd, "end", func(t Tree) bool { return t.End }),
	ActionSetMemberMeta:   memberCheck(ActionSetMemberMeta, "meta", func(m Member) bool { return m.Meta }),
	ActionSetVmutedHide:   callCheck(ActionSetVmutedHide, "vmuted hide", func(t Tree) bool { return t.VmutedHide.On }),
	ActionUnsetVmutedHide: callCheck(ActionUnsetVmutedHide, "vmuted show", func(t Tree) bool { return t.VmutedHide.Off }),
}

// Validate runs the validator registered for action.
func Validate(action Action, c Caller, p Params) error {
	v, ok := Validators[action]
	if !ok {
		return fmt.Errorf("no validator for action %q", action)
	}
	return v(c, p)
}

// Guard wraps fn so that the validator for action runs first, synchronously
// and on the caller's goroutine. A validation error is returned without
// calling fn; otherwise fn receives exactly the arguments given.
func Guard[T any](action Action, c Caller, fn func(context.Context, Params) (T, error)) func(context.Context, Params) (T, error) {
	return func(ctx context.Context, p Params) (T, error) {
		if err := Validate(action, c, p); err != nil {
			var zero T
			return zero, err
		}
		return fn(ctx, p)
	}
}
