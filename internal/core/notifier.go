package core

import (
	"context"
	"fmt"
	"time"

	"github.com/mvett/watchsync/internal/protocol"
)

// Rapid-fire seeks and play/pause flapping would otherwise spam every
// member; those classes are throttled to one notification per delay
// window, latest wins. Join/leave events go out immediately.
type noteClass int

const (
	noteImmediate noteClass = iota
	noteToggle
	noteSeek
)

type note struct {
	class noteClass
	msg   protocol.Notification
}

type notifier struct {
	ch    chan note
	delay time.Duration
}

func newNotifier(delay time.Duration) *notifier {
	return &notifier{
		ch:    make(chan note, 32),
		delay: delay,
	}
}

// enqueue never blocks a session mutation; when the queue is full the
// notification is dropped, which is harmless chrome.
func (n *notifier) enqueue(class noteClass, msg protocol.Notification) {
	select {
	case n.ch <- note{class: class, msg: msg}:
	default:
	}
}

// run drives one session's notification fan-out until ctx is cancelled,
// which happens when the Registry deletes the session.
func (n *notifier) run(ctx context.Context, s *Session) {
	pending := make(map[noteClass]protocol.Notification)
	lastSent := make(map[noteClass]time.Time)

	ticker := time.NewTicker(n.delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case nt := <-n.ch:
			if nt.class == noteImmediate {
				s.broadcastNotification(nt.msg)
				continue
			}
			if time.Since(lastSent[nt.class]) >= n.delay {
				lastSent[nt.class] = time.Now()
				s.broadcastNotification(nt.msg)
				continue
			}
			pending[nt.class] = nt.msg
		case <-ticker.C:
			for class, msg := range pending {
				if time.Since(lastSent[class]) < n.delay {
					continue
				}
				lastSent[class] = time.Now()
				s.broadcastNotification(msg)
				delete(pending, class)
			}
		}
	}
}

// seekText renders "skipped to" positions as M:SS or H:MM:SS.
func seekText(name string, pos float64) string {
	total := int(pos)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours == 0 {
		return fmt.Sprintf("%s skipped to %d:%02d", name, minutes, seconds)
	}
	return fmt.Sprintf("%s skipped to %d:%02d:%02d", name, hours, minutes, seconds)
}
