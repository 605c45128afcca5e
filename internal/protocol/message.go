// Package protocol converts wire frames to and from the internal message
// union. One JSON object per frame, tagged by "type". Anything the codec
// does not recognize decodes to Foreign so unrelated traffic on the same
// transport can be ignored instead of killing the connection.
package protocol

import (
	"github.com/mvett/watchsync/internal/domain"
)

// UpdateKind discriminates client playback updates.
type UpdateKind string

const (
	KindPlay   UpdateKind = "Play"
	KindPause  UpdateKind = "Pause"
	KindSeek   UpdateKind = "Seek"
	KindState  UpdateKind = "State"
	KindUpdate UpdateKind = "Update"
)

func (k UpdateKind) valid() bool {
	switch k {
	case KindPlay, KindPause, KindSeek, KindState, KindUpdate:
		return true
	}
	return false
}

// Message is the decoded form of one wire frame.
type Message interface {
	isMessage()
}

// Join is a one-time request for the current authoritative state.
type Join struct{}

// Update reports a playback change observed on the sending client.
// Timestamp is the client's send time in millisecond epoch; VideoTime is
// the position in seconds at that instant.
type Update struct {
	Kind      UpdateKind
	Timestamp int64
	VideoTime float64
	State     domain.TransportState
}

// SwitchTo asks the session to switch to different content.
type SwitchTo struct {
	ID domain.ContentRef
}

// Reload tells every member to reload the player after a content switch.
type Reload struct{}

// Notification is a human-readable session event. Origin names the
// connection it came from so clients may filter their own.
type Notification struct {
	Msg    string
	Origin string
}

// Foreign is any frame the codec does not recognize. The dispatcher
// drops it without treating it as an error.
type Foreign struct {
	Raw []byte
}

func (Join) isMessage()         {}
func (Update) isMessage()       {}
func (SwitchTo) isMessage()     {}
func (Reload) isMessage()       {}
func (Notification) isMessage() {}
func (Foreign) isMessage()      {}
