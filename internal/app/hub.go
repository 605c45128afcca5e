// Package app wires connections to sessions. The Hub is the single
// entry point the transport adapter talks to: join, leave, and one call
// per inbound frame.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mvett/watchsync/internal/core"
	"github.com/mvett/watchsync/internal/domain"
	"github.com/mvett/watchsync/internal/protocol"
)

// Action names a privileged operation for the permission collaborator.
type Action string

const ActionSwitchContent Action = "switch_content"

// ContentValidator answers whether a content reference exists. The hub
// treats it as an opaque callback; cataloging lives upstream.
type ContentValidator func(domain.ContentRef) bool

// PermissionFunc answers whether a viewer may perform a privileged
// action. Authorization itself lives upstream.
type PermissionFunc func(viewer domain.Viewer, action Action) bool

type connEntry struct {
	key    domain.SessionKey
	viewer domain.Viewer
	conn   core.Conn
	sess   *core.Session
	cancel context.CancelFunc
}

type Hub struct {
	registry *core.Registry
	policy   Policy
	validate ContentValidator
	allow    PermissionFunc

	mu    sync.RWMutex
	conns map[core.ConnectionID]*connEntry
}

// NewHub builds a hub around the session registry. Nil collaborator
// callbacks permit everything.
func NewHub(registry *core.Registry, policy Policy, validate ContentValidator, allow PermissionFunc) *Hub {
	if policy == nil {
		policy = KickSlowPolicy{}
	}
	return &Hub{
		registry: registry,
		policy:   policy,
		validate: validate,
		allow:    allow,
		conns:    make(map[core.ConnectionID]*connEntry),
	}
}

// Join binds a live connection to the session for key, creating the
// session on first join. cancel is invoked when the hub kicks the
// connection, so the adapter can tear down its pumps.
func (h *Hub) Join(key domain.SessionKey, viewer domain.Viewer, conn core.Conn, cancel context.CancelFunc) core.ConnectionID {
	id := core.ConnectionID(uuid.NewString())
	sess := h.registry.Join(key, id, viewer, conn)

	h.mu.Lock()
	h.conns[id] = &connEntry{key: key, viewer: viewer, conn: conn, sess: sess, cancel: cancel}
	h.mu.Unlock()

	log.Info().Str("module", "app.hub").Str("key", string(key)).
		Str("conn", string(id)).Str("viewer", viewer.Name).Msg("connection joined")
	return id
}

// Leave detaches the connection from its session, deleting the session
// when it was the last member. Safe to call more than once.
func (h *Hub) Leave(id core.ConnectionID) {
	h.mu.Lock()
	e, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()
	if !ok {
		return
	}

	h.registry.Leave(e.key, id)
	if e.cancel != nil {
		e.cancel()
	}
	e.conn.Close()
	log.Info().Str("module", "app.hub").Str("key", string(e.key)).
		Str("conn", string(id)).Msg("connection left")
}

// HandleMessage runs one raw inbound frame through codec, collaborators
// and the session state machine. Every failure here is scoped to one
// frame or one connection.
func (h *Hub) HandleMessage(id core.ConnectionID, raw []byte) {
	h.mu.RLock()
	e, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		// Already gone; late frames are ignored.
		return
	}

	msg, err := protocol.Decode(raw)
	if err != nil {
		if errors.Is(err, protocol.ErrMalformed) {
			log.Debug().Str("module", "app.hub").Str("conn", string(id)).
				Err(err).Msg("malformed frame dropped")
			return
		}
		log.Warn().Str("module", "app.hub").Str("conn", string(id)).Err(err).Msg("decode failed")
		return
	}

	switch m := msg.(type) {
	case protocol.Foreign:
		// Unrelated traffic sharing the transport; not an error.
		return
	case protocol.SwitchTo:
		if h.allow != nil && !h.allow(e.viewer, ActionSwitchContent) {
			log.Warn().Str("module", "app.hub").Str("conn", string(id)).
				Str("viewer", e.viewer.Name).Msg("switch denied")
			return
		}
		if h.validate != nil && !h.validate(m.ID) {
			log.Warn().Str("module", "app.hub").Str("conn", string(id)).
				Str("content", string(m.ID)).Msg("unknown content ref dropped")
			return
		}
	}

	res := e.sess.Apply(id, msg, time.Now())
	for _, slow := range res.Dropped {
		switch h.policy.OnBackpressure(e.key, slow) {
		case KickMember:
			log.Warn().Str("module", "app.hub").Str("key", string(e.key)).
				Str("conn", string(slow)).Msg("kicking slow member")
			h.Leave(slow)
		case DropFrame, NoAction:
		}
	}
}

// Sessions snapshots the live session directory.
func (h *Hub) Sessions() []core.SessionInfo {
	return h.registry.List()
}
