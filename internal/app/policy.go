package app

import (
	"github.com/mvett/watchsync/internal/core"
	"github.com/mvett/watchsync/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a member whose outbound queue
// overflowed during a fan-out.
type Policy interface {
	OnBackpressure(key domain.SessionKey, id core.ConnectionID) BackpressureAction
}

// KickSlowPolicy disconnects a stalled member instead of letting it
// stall the session.
type KickSlowPolicy struct{}

func (KickSlowPolicy) OnBackpressure(domain.SessionKey, core.ConnectionID) BackpressureAction {
	return KickMember
}
