package core

// Frame is one encoded wire frame.
type Frame []byte

// ConnectionID identifies one live connection inside the hub.
type ConnectionID string

// Conn abstracts the transport endpoint a session fans out to.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	// TrySend queues a frame without blocking. It returns an error when
	// the connection is closed or its outbound queue is full.
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to the hub.
type PublishResult struct {
	SentTo  int
	Dropped []ConnectionID
}
