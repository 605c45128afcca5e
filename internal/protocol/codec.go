package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mvett/watchsync/internal/domain"
)

var (
	ErrMalformed     = errors.New("malformed message")
	ErrEncodeForeign = errors.New("foreign messages cannot be encoded")
)

// contentRef accepts both a JSON string and a legacy numeric id.
type contentRef string

func (c *contentRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = contentRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = contentRef(n.String())
	return nil
}

type updateWire struct {
	Type        string                `json:"type"`
	MessageType UpdateKind            `json:"message_type"`
	Timestamp   int64                 `json:"timestamp"`
	VideoTime   float64               `json:"video_time"`
	State       domain.TransportState `json:"state"`
}

type switchToWire struct {
	Type string     `json:"type"`
	ID   contentRef `json:"id"`
}

type notificationWire struct {
	Type   string `json:"type"`
	Msg    string `json:"msg"`
	Origin string `json:"origin"`
}

type typeOnlyWire struct {
	Type string `json:"type"`
}

// Decode turns one wire frame into a Message. Frames that are not valid
// JSON objects, or that carry a known type with invalid fields, return
// ErrMalformed. Valid JSON with an unknown type decodes to Foreign.
func Decode(data []byte) (Message, error) {
	var env typeOnlyWire
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	switch env.Type {
	case "Join":
		return Join{}, nil
	case "Reload":
		return Reload{}, nil
	case "Update":
		var w updateWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if !w.MessageType.valid() {
			return nil, fmt.Errorf("%w: unknown message_type %q", ErrMalformed, w.MessageType)
		}
		if w.State != "" && !w.State.Valid() {
			return nil, fmt.Errorf("%w: unknown state %q", ErrMalformed, w.State)
		}
		if (w.MessageType == KindState || w.MessageType == KindUpdate) && w.State == "" {
			return nil, fmt.Errorf("%w: %s update without state", ErrMalformed, w.MessageType)
		}
		if w.VideoTime < 0 {
			w.VideoTime = 0
		}
		return Update{
			Kind:      w.MessageType,
			Timestamp: w.Timestamp,
			VideoTime: w.VideoTime,
			State:     w.State,
		}, nil
	case "SwitchTo":
		var w switchToWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if w.ID == "" {
			return nil, fmt.Errorf("%w: SwitchTo without id", ErrMalformed)
		}
		return SwitchTo{ID: domain.ContentRef(w.ID)}, nil
	case "Notification":
		var w notificationWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return Notification{Msg: w.Msg, Origin: w.Origin}, nil
	default:
		return Foreign{Raw: data}, nil
	}
}

// Encode renders a Message as one wire frame.
func Encode(m Message) ([]byte, error) {
	switch msg := m.(type) {
	case Join:
		return json.Marshal(typeOnlyWire{Type: "Join"})
	case Reload:
		return json.Marshal(typeOnlyWire{Type: "Reload"})
	case Update:
		return json.Marshal(updateWire{
			Type:        "Update",
			MessageType: msg.Kind,
			Timestamp:   msg.Timestamp,
			VideoTime:   msg.VideoTime,
			State:       msg.State,
		})
	case SwitchTo:
		return json.Marshal(switchToWire{Type: "SwitchTo", ID: contentRef(msg.ID)})
	case Notification:
		return json.Marshal(notificationWire{Type: "Notification", Msg: msg.Msg, Origin: msg.Origin})
	case Foreign:
		return nil, ErrEncodeForeign
	default:
		return nil, fmt.Errorf("unknown message type %T", m)
	}
}
