package app

import "github.com/dkeye/vspace/internal/core"

// BackpressureAction is applied to a member whose signal queue overflowed.
type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	KickMember
)

func (a BackpressureAction) String() string {
	if a == KickMember {
		return "kick"
	}
	return "drop"
}

type Policy interface {
	OnBackPressure(conf core.ConferenceService, member core.MemberSession) BackpressureAction
}

// KickPolicy disconnects slow members so they rejoin with a fresh view.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(core.ConferenceService, core.MemberSession) BackpressureAction {
	return KickMember
}

// DropPolicy keeps slow members; they miss the dropped frame.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.ConferenceService, core.MemberSession) BackpressureAction {
	return DropFrame
}
