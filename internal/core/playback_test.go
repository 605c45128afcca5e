package core

import (
	"testing"
	"time"

	"github.com/mvett/watchsync/internal/domain"
	"github.com/mvett/watchsync/internal/protocol"
)

var baseTime = time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

func closeTo(got, want float64) bool {
	diff := got - want
	return diff < 0.001 && diff > -0.001
}

func TestPlayCompensatesLatency(t *testing.T) {
	sent := baseTime
	received := sent.Add(2 * time.Second)

	next := applyUpdate(newPlaybackState(baseTime), protocol.Update{
		Kind:      protocol.KindPlay,
		Timestamp: sent.UnixMilli(),
		VideoTime: 10,
		State:     domain.Playing,
	}, received)

	if next.Transport != domain.Playing {
		t.Fatalf("expected Playing, got %s", next.Transport)
	}
	if !closeTo(next.Position, 12) {
		t.Fatalf("expected position 12, got %v", next.Position)
	}
	if !next.CapturedAt.Equal(received) {
		t.Fatalf("expected capture at receipt time, got %v", next.CapturedAt)
	}
}

func TestPauseFreezesTime(t *testing.T) {
	sent := baseTime
	received := sent.Add(2 * time.Second)

	next := applyUpdate(newPlaybackState(baseTime), protocol.Update{
		Kind:      protocol.KindPause,
		Timestamp: sent.UnixMilli(),
		VideoTime: 42,
		State:     domain.Paused,
	}, received)

	if next.Transport != domain.Paused {
		t.Fatalf("expected Paused, got %s", next.Transport)
	}
	if next.Position != 42 {
		t.Fatalf("paused position must not be compensated: expected 42, got %v", next.Position)
	}
}

func TestSeekCompensatesOnlyWhilePlaying(t *testing.T) {
	sent := baseTime
	received := sent.Add(1500 * time.Millisecond)
	seek := protocol.Update{
		Kind:      protocol.KindSeek,
		Timestamp: sent.UnixMilli(),
		VideoTime: 100,
	}

	playing := PlaybackState{Transport: domain.Playing, Position: 5, CapturedAt: baseTime}
	next := applyUpdate(playing, seek, received)
	if !closeTo(next.Position, 101.5) {
		t.Fatalf("seek while playing: expected 101.5, got %v", next.Position)
	}
	if next.Transport != domain.Playing {
		t.Fatalf("seek must not change transport state, got %s", next.Transport)
	}

	paused := PlaybackState{Transport: domain.Paused, Position: 5, CapturedAt: baseTime}
	next = applyUpdate(paused, seek, received)
	if next.Position != 100 {
		t.Fatalf("seek while paused: expected 100, got %v", next.Position)
	}
	if next.Transport != domain.Paused {
		t.Fatalf("seek must not change transport state, got %s", next.Transport)
	}
}

func TestStateResyncUsesMessageState(t *testing.T) {
	sent := baseTime
	received := sent.Add(time.Second)

	cur := PlaybackState{Transport: domain.Paused, Position: 7, CapturedAt: baseTime}

	next := applyUpdate(cur, protocol.Update{
		Kind:      protocol.KindState,
		Timestamp: sent.UnixMilli(),
		VideoTime: 30,
		State:     domain.Playing,
	}, received)
	if next.Transport != domain.Playing || !closeTo(next.Position, 31) {
		t.Fatalf("expected Playing/31, got %s/%v", next.Transport, next.Position)
	}

	next = applyUpdate(cur, protocol.Update{
		Kind:      protocol.KindUpdate,
		Timestamp: sent.UnixMilli(),
		VideoTime: 30,
		State:     domain.Paused,
	}, received)
	if next.Transport != domain.Paused || next.Position != 30 {
		t.Fatalf("expected Paused/30, got %s/%v", next.Transport, next.Position)
	}
}

// Replaying the same message at the same receipt time must always yield
// the same position, whatever happened to the session before.
func TestCompensationPurity(t *testing.T) {
	msg := protocol.Update{
		Kind:      protocol.KindPlay,
		Timestamp: baseTime.UnixMilli(),
		VideoTime: 250,
		State:     domain.Playing,
	}
	received := baseTime.Add(3 * time.Second)

	histories := []PlaybackState{
		newPlaybackState(baseTime),
		{Transport: domain.Playing, Position: 9999, CapturedAt: baseTime.Add(-time.Hour)},
		{Transport: domain.Paused, Position: 1, CapturedAt: baseTime},
	}

	first := applyUpdate(histories[0], msg, received)
	for _, h := range histories[1:] {
		got := applyUpdate(h, msg, received)
		if got.Position != first.Position || got.Transport != first.Transport {
			t.Fatalf("compensation depended on prior history: %v vs %v", got, first)
		}
	}
}

func TestClientClockAheadClampsElapsed(t *testing.T) {
	received := baseTime
	sent := baseTime.Add(10 * time.Second) // client clock runs fast

	next := applyUpdate(newPlaybackState(baseTime), protocol.Update{
		Kind:      protocol.KindPlay,
		Timestamp: sent.UnixMilli(),
		VideoTime: 50,
		State:     domain.Playing,
	}, received)

	if next.Position != 50 {
		t.Fatalf("expected no compensation for future timestamps, got %v", next.Position)
	}
}

func TestPositionAt(t *testing.T) {
	playing := PlaybackState{Transport: domain.Playing, Position: 120, CapturedAt: baseTime}
	if got := playing.PositionAt(baseTime.Add(5 * time.Second)); !closeTo(got, 125) {
		t.Fatalf("expected 125 while playing, got %v", got)
	}

	paused := PlaybackState{Transport: domain.Paused, Position: 120, CapturedAt: baseTime}
	if got := paused.PositionAt(baseTime.Add(5 * time.Second)); got != 120 {
		t.Fatalf("expected frozen 120 while paused, got %v", got)
	}
}
