// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxViewerNameLen = 36

var (
	ErrViewerNameTooLong = errors.New("viewer name too long")
	ErrViewerNameEmpty   = errors.New("viewer name empty")
)

type ViewerID string

// Viewer is the principal behind a connection. Authentication happened
// upstream; the hub only carries the identity along.
type Viewer struct {
	ID   ViewerID `json:"id"`
	Name string   `json:"name"`
}

// NewViewer is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewViewer(name string) (*Viewer, error) {
	if len(name) == 0 {
		return nil, ErrViewerNameEmpty
	}
	if len(name) > MaxViewerNameLen {
		return nil, ErrViewerNameTooLong
	}
	id := ViewerID(uuid.NewString())
	return &Viewer{ID: id, Name: name}, nil
}

func (v *Viewer) SetName(name string) error {
	if len(name) == 0 {
		return ErrViewerNameEmpty
	}
	if len(name) > MaxViewerNameLen {
		return ErrViewerNameTooLong
	}
	v.Name = name
	return nil
}
