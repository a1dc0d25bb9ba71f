package scanner

import (
	"context"
	"sync"
	"sync/atomic"
)

// remoteSource is a bookkeeping handle for a camera that lives on the
// client device. The server cannot drive the capture hardware; it tracks
// which source the session believes is active so switches and teardown
// stay observable.
type remoteSource struct {
	id     string
	label  string
	closed atomic.Bool
	onFree func()
}

func (s *remoteSource) ID() string    { return s.id }
func (s *remoteSource) Label() string { return s.label }

func (s *remoteSource) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.onFree()
	}
	return nil
}

// RemoteOpener issues handles for client-reported camera sources. Labels
// are advertised by the client when the session starts; unknown IDs fall
// back to the ID itself so a session can still track them.
type RemoteOpener struct {
	mu     sync.Mutex
	labels map[string]string
	open   int
}

// NewRemoteOpener builds an opener with no advertised sources.
func NewRemoteOpener() *RemoteOpener {
	return &RemoteOpener{labels: make(map[string]string)}
}

// Advertise registers a client-reported source label.
func (o *RemoteOpener) Advertise(id, label string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.labels[id] = label
}

// Open returns a handle for the given source ID. An empty ID selects the
// default source.
func (o *RemoteOpener) Open(_ context.Context, id string) (Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	label := o.labels[id]
	if label == "" {
		label = id
	}
	if label == "" {
		label = "default"
	}
	o.open++
	return &remoteSource{id: id, label: label, onFree: o.release}, nil
}

// OpenCount reports how many handles are currently held. A count above one
// for a single session means a handle leaked.
func (o *RemoteOpener) OpenCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open
}

func (o *RemoteOpener) release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open--
}
