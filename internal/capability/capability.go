// Package capability turns the server-issued capability flag list into a
// permission tree and validates mutating call actions against it.
//
// Flags are dot-delimited ("self.mute.audio", "member.deaf.on", "layout").
// Every derived value is an OR over the matching flags, so flag order and
// duplicates never change the result.
package capability

import "strings"

// Scope selects the member sub-tree a flag applies to.
type Scope string

const (
	ScopeSelf   Scope = "self"
	ScopeMember Scope = "member"
)

// OnOff is a permission that can be granted in one or both directions
// (mute/unmute, lock/unlock, raise/lower hand).
type OnOff struct {
	On  bool
	Off bool
}

// newOnOff folds matching flags into an OnOff. A flag ending in ".on" grants
// only On, one ending in ".off" grants only Off, and anything else grants
// both.
func newOnOff(matching []string) OnOff {
	var s OnOff
	for _, f := range matching {
		if !strings.HasSuffix(f, ".off") {
			s.On = true
		}
		if !strings.HasSuffix(f, ".on") {
			s.Off = true
		}
	}
	return s
}

// Member holds the permissions for one scope.
type Member struct {
	MuteAudio             OnOff
	MuteVideo             OnOff
	Deaf                  OnOff
	RaiseHand             OnOff
	MicrophoneVolume      bool
	MicrophoneSensitivity bool
	SpeakerVolume         bool
	Position              bool
	Meta                  bool
	Remove                bool
	AudioFlags            bool
	End                   bool
}

// Tree is the full permission tree computed from one flag list.
type Tree struct {
	Self        Member
	Member      Member
	End         bool
	SetLayout   bool
	SendDigit   bool
	Device      bool
	Screenshare bool
	Lock        OnOff
	VmutedHide  OnOff
}

// New computes the permission tree for flags. The tree is immutable once
// built: flag lists are replaced wholesale by the server, never patched.
func New(flags []string) Tree {
	return Tree{
		Self:        newMember(prefixed(flags, string(ScopeSelf)), ScopeSelf),
		Member:      newMember(prefixed(flags, string(ScopeMember)), ScopeMember),
		End:         grants(flags, "end"),
		SetLayout:   grants(flags, "layout"),
		SendDigit:   grants(flags, "digit", "send"),
		Device:      grants(flags, "device"),
		Screenshare: grants(flags, "screenshare"),
		Lock:        newOnOff(under(flags, "lock")),
		VmutedHide:  newOnOff(under(flags, "vmuted", "hide")),
	}
}

// Scope returns the sub-tree for s.
func (t Tree) Scope(s Scope) Member {
	if s == ScopeSelf {
		return t.Self
	}
	return t.Member
}

func newMember(flags []string, scope Scope) Member {
	s := string(scope)
	return Member{
		MuteAudio:             newOnOff(under(flags, s, "mute", "audio")),
		MuteVideo:             newOnOff(under(flags, s, "mute", "video")),
		Deaf:                  newOnOff(under(flags, s, "deaf")),
		RaiseHand:             newOnOff(prefixed(flags, s+".raisehand")),
		MicrophoneVolume:      grants(flags, s, "microphone", "volume", "set"),
		MicrophoneSensitivity: grants(flags, s, "microphone", "sensitivity", "set"),
		SpeakerVolume:         grants(flags, s, "speaker", "volume", "set"),
		Position:              grants(flags, s, "position", "set"),
		Meta:                  grants(flags, s, "meta"),
		Remove:                grants(flags, s, "remove"),
		AudioFlags:            grants(flags, s, "audioflags", "set"),
		End:                   grants(flags, s, "end"),
	}
}

// under returns the flags matching a path: any ancestor of the path (which
// grants everything below it) or the path itself with any suffix.
func under(flags []string, path ...string) []string {
	var out []string
	for _, f := range flags {
		if isAncestor(f, path) || f == join(path) || strings.HasPrefix(f, join(path)+".") {
			out = append(out, f)
		}
	}
	return out
}

// grants reports whether any flag equals the path or one of its ancestors.
func grants(flags []string, path ...string) bool {
	full := join(path)
	for _, f := range flags {
		if f == full || isAncestor(f, path) {
			return true
		}
	}
	return false
}

// isAncestor reports whether f names a strict ancestor of path.
func isAncestor(f string, path []string) bool {
	for i := 1; i < len(path); i++ {
		if f == join(path[:i]) {
			return true
		}
	}
	return false
}

func prefixed(flags []string, prefix string) []string {
	var out []string
	for _, f := range flags {
		if f == prefix || strings.HasPrefix(f, prefix+".") {
			out = append(out, f)
		}
	}
	return out
}

func join(path []string) string {
	return strings.Join(path, ".")
}
