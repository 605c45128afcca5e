package core

import (
	"time"

	"github.com/mvett/watchsync/internal/domain"
	"github.com/mvett/watchsync/internal/protocol"
)

// PlaybackState is the session's single source of truth for what is
// playing and where. CapturedAt is always the server's receipt time of
// the last update, never a client clock.
type PlaybackState struct {
	ContentRef domain.ContentRef
	Transport  domain.TransportState
	Position   float64 // seconds
	CapturedAt time.Time
}

func newPlaybackState(now time.Time) PlaybackState {
	return PlaybackState{Transport: domain.Paused, CapturedAt: now}
}

// PositionAt projects the position to now. While playing, the position
// advances implicitly between observations; while paused it is frozen.
func (s PlaybackState) PositionAt(now time.Time) float64 {
	if s.Transport != domain.Playing {
		return s.Position
	}
	pos := s.Position + now.Sub(s.CapturedAt).Seconds()
	if pos < 0 {
		return 0
	}
	return pos
}

// applyUpdate computes the state after observing an Update at now.
// Compensation depends only on the message and the receipt time, plus
// the current Playing/Paused branch for Seek. elapsed is clamped at
// zero so client clocks ahead of the server never rewind the position.
func applyUpdate(cur PlaybackState, u protocol.Update, now time.Time) PlaybackState {
	elapsed := now.Sub(time.UnixMilli(u.Timestamp)).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	next := cur
	next.CapturedAt = now

	switch u.Kind {
	case protocol.KindPlay:
		next.Transport = domain.Playing
		next.Position = u.VideoTime + elapsed
	case protocol.KindPause:
		// Paused means no time passes: take the reported position as-is.
		next.Transport = domain.Paused
		next.Position = u.VideoTime
	case protocol.KindSeek:
		next.Position = u.VideoTime
		if cur.Transport == domain.Playing {
			next.Position += elapsed
		}
	case protocol.KindState, protocol.KindUpdate:
		next.Transport = u.State
		next.Position = u.VideoTime
		if u.State == domain.Playing {
			next.Position += elapsed
		}
	}

	if next.Position < 0 {
		next.Position = 0
	}
	return next
}
