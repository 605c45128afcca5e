package domain

type (
	// SessionKey addresses one shared-viewing session. It is supplied
	// out-of-band by the routing layer.
	SessionKey string

	// ContentRef is an opaque content identifier. The hub never resolves
	// it; validation is delegated to the catalog collaborator.
	ContentRef string
)

// TransportState is the play/pause half of the playback state.
type TransportState string

const (
	Playing TransportState = "Playing"
	Paused  TransportState = "Paused"
)

func (s TransportState) Valid() bool {
	return s == Playing || s == Paused
}
