package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvett/watchsync/internal/domain"
	"github.com/mvett/watchsync/internal/protocol"
)

// member is one connection's seat in a session.
type member struct {
	viewer   domain.Viewer
	conn     Conn
	joinedAt time.Time

	// activated records a user gesture permitting autoplay on that
	// client. The hub transmits raw state regardless; the flag is
	// surfaced for the UI collaborator.
	activated bool

	// hasSynced gates the one-time Join catch-up so a duplicate Join
	// cannot race a concurrently arriving Update.
	hasSynced bool
}

// Session holds the authoritative playback state and the member set for
// one piece of content. All mutation is serialized by its mutex;
// unrelated sessions never contend.
type Session struct {
	Key domain.SessionKey

	mu        sync.Mutex
	state     PlaybackState
	members   map[ConnectionID]*member
	createdAt time.Time

	notes *notifier
}

// MemberInfo is a read-only view for APIs (no transport fields).
type MemberInfo struct {
	ID        ConnectionID `json:"id"`
	Name      string       `json:"name"`
	Activated bool         `json:"activated"`
}

// SessionInfo is a point-in-time snapshot for the session directory.
type SessionInfo struct {
	Key         domain.SessionKey     `json:"key"`
	ContentRef  domain.ContentRef     `json:"content_ref"`
	Transport   domain.TransportState `json:"transport_state"`
	Position    float64               `json:"position_seconds"`
	MemberCount int                   `json:"member_count"`
	Members     []MemberInfo          `json:"members"`
	CreatedAt   time.Time             `json:"created_at"`
}

func newSession(key domain.SessionKey, notifyDelay time.Duration, now time.Time) *Session {
	return &Session{
		Key:       key,
		state:     newPlaybackState(now),
		members:   make(map[ConnectionID]*member),
		createdAt: now,
		notes:     newNotifier(notifyDelay),
	}
}

// addMember and removeMember are driven by the Registry, which holds the
// map-level lock; the session lock still guards the member set against
// concurrent Apply calls.

func (s *Session) addMember(id ConnectionID, viewer domain.Viewer, conn Conn, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[id] = &member{viewer: viewer, conn: conn, joinedAt: now}
	log.Info().Str("module", "core.session").Str("key", string(s.Key)).
		Str("conn", string(id)).Str("viewer", viewer.Name).Msg("member added")
}

func (s *Session) removeMember(id ConnectionID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	mem, ok := s.members[id]
	if !ok {
		return len(s.members)
	}
	delete(s.members, id)
	remaining := len(s.members)
	if remaining > 0 {
		s.notes.enqueue(noteImmediate, protocol.Notification{
			Msg:    mem.viewer.Name + " left the session",
			Origin: string(id),
		})
	}
	log.Info().Str("module", "core.session").Str("key", string(s.Key)).
		Str("conn", string(id)).Int("remaining", remaining).Msg("member removed")
	return remaining
}

func (s *Session) MemberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Snapshot returns the authoritative state as of the last update.
func (s *Session) Snapshot() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Info(now time.Time) SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]MemberInfo, 0, len(s.members))
	for id, m := range s.members {
		members = append(members, MemberInfo{ID: id, Name: m.viewer.Name, Activated: m.activated})
	}
	return SessionInfo{
		Key:         s.Key,
		ContentRef:  s.state.ContentRef,
		Transport:   s.state.Transport,
		Position:    s.state.PositionAt(now),
		MemberCount: len(members),
		Members:     members,
		CreatedAt:   s.createdAt,
	}
}

// Apply runs one decoded message against the state machine and fans the
// result out. now must be the server's receipt time of the message.
func (s *Session) Apply(from ConnectionID, msg protocol.Message, now time.Time) PublishResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem, ok := s.members[from]
	if !ok {
		// Sender already removed; its messages no longer mutate anything.
		return PublishResult{}
	}

	switch m := msg.(type) {
	case protocol.Join:
		return s.applyJoin(from, mem, now)
	case protocol.Update:
		return s.applyUpdate(from, mem, m, now)
	case protocol.SwitchTo:
		return s.applySwitchTo(m, now)
	default:
		// Reload and Notification are server-to-client only; Foreign is
		// unrelated traffic. All are dropped without effect.
		return PublishResult{}
	}
}

func (s *Session) applyJoin(from ConnectionID, mem *member, now time.Time) PublishResult {
	if mem.hasSynced {
		return PublishResult{}
	}
	mem.hasSynced = true
	s.notes.enqueue(noteImmediate, protocol.Notification{
		Msg:    mem.viewer.Name + " joined the session",
		Origin: string(from),
	})

	if len(s.members) < 2 {
		// First member: nothing to catch up on, it becomes the source
		// of truth.
		return PublishResult{}
	}

	frame, err := protocol.Encode(protocol.Update{
		Kind:      protocol.KindUpdate,
		Timestamp: now.UnixMilli(),
		VideoTime: s.state.PositionAt(now),
		State:     s.state.Transport,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "core.session").Str("key", string(s.Key)).Msg("encode catch-up")
		return PublishResult{}
	}
	// Unicast to the joiner only; it has nothing new to tell the others.
	if err := mem.conn.TrySend(Frame(frame)); err != nil {
		return PublishResult{Dropped: []ConnectionID{from}}
	}
	return PublishResult{SentTo: 1}
}

func (s *Session) applyUpdate(from ConnectionID, mem *member, m protocol.Update, now time.Time) PublishResult {
	switch m.Kind {
	case protocol.KindPlay, protocol.KindPause, protocol.KindSeek:
		// These only happen on a user gesture.
		mem.activated = true
	}

	s.state = applyUpdate(s.state, m, now)
	s.notifyPlayback(from, mem.viewer.Name, m)

	frame, err := protocol.Encode(protocol.Update{
		Kind:      m.Kind,
		Timestamp: now.UnixMilli(),
		VideoTime: s.state.Position,
		State:     s.state.Transport,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "core.session").Str("key", string(s.Key)).Msg("encode update")
		return PublishResult{}
	}
	return s.fanOut(Frame(frame), from)
}

func (s *Session) applySwitchTo(m protocol.SwitchTo, now time.Time) PublishResult {
	s.state = PlaybackState{
		ContentRef: m.ID,
		Transport:  domain.Paused,
		Position:   0,
		CapturedAt: now,
	}

	frame, err := protocol.Encode(protocol.Reload{})
	if err != nil {
		log.Error().Err(err).Str("module", "core.session").Str("key", string(s.Key)).Msg("encode reload")
		return PublishResult{}
	}
	// Everyone reloads, including the requester.
	return s.fanOut(Frame(frame), "")
}

func (s *Session) notifyPlayback(from ConnectionID, name string, m protocol.Update) {
	switch m.Kind {
	case protocol.KindPause:
		s.notes.enqueue(noteToggle, protocol.Notification{Msg: name + " paused the video", Origin: string(from)})
	case protocol.KindPlay:
		s.notes.enqueue(noteToggle, protocol.Notification{Msg: name + " resumed the video", Origin: string(from)})
	case protocol.KindSeek:
		s.notes.enqueue(noteSeek, protocol.Notification{Msg: seekText(name, s.state.Position), Origin: string(from)})
	}
}

// fanOut delivers one frame to every member except the excluded sender.
// A full or closed member queue only drops that member from delivery;
// the rest still receive the frame.
func (s *Session) fanOut(frame Frame, except ConnectionID) PublishResult {
	res := PublishResult{}
	for id, m := range s.members {
		if id == except {
			continue
		}
		if err := m.conn.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.session").Str("key", string(s.Key)).
		Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("fan-out result")
	return res
}

func (s *Session) broadcastNotification(n protocol.Notification) {
	frame, err := protocol.Encode(n)
	if err != nil {
		log.Error().Err(err).Str("module", "core.session").Str("key", string(s.Key)).Msg("encode notification")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if err := m.conn.TrySend(Frame(frame)); err != nil {
			log.Warn().Str("module", "core.session").Str("key", string(s.Key)).Msg("notification dropped for slow member")
		}
	}
}
